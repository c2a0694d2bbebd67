package request

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
)

// EventStreamContentType asks the service for a server-sent-events body.
const EventStreamContentType = "text/event-stream;charset=utf-8"

// PostStream posts body and returns the open response on 200/201. The caller
// must close the body. No client timeout applies unless WithTimeout is given.
func (c *Client) PostStream(ctx context.Context, path string, body interface{}, opts ...CallOption) (*http.Response, error) {
	reader, length, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Method:        http.MethodPost,
		Path:          path,
		Body:          reader,
		ContentLength: length,
		Header:        http.Header{"Content-Type": []string{EventStreamContentType}},
		Kind:          KindStream,
	}
	return c.send(ctx, env, collect(opts))
}

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Type string
	Data string
}

// ReadEvents reads server-sent events from r and invokes fn for each one.
// Returning false from fn stops reading. A connection lost mid-stream is
// reported as a *NetworkError.
func ReadEvents(ctx context.Context, r io.Reader, fn func(Event) bool) error {
	reader := bufio.NewReader(r)
	var (
		eventType string
		eventID   string
		dataLines []string
	)

	dispatch := func() bool {
		if len(dataLines) == 0 {
			eventType = ""
			eventID = ""
			return true
		}
		evt := Event{ID: eventID, Type: eventType, Data: strings.Join(dataLines, "\n")}
		dataLines = dataLines[:0]
		eventType = ""
		eventID = ""
		if fn != nil {
			return fn(evt)
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				dispatch()
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return newNetworkError(err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "id:"):
			eventID = strings.TrimSpace(line[len("id:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(line[len("data:"):], " "))
		}
		if err == io.EOF {
			dispatch()
			return nil
		}
	}
}
