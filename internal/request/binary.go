package request

import (
	"context"
	"io"
	"mime"
	"net/http"
)

// Blob is a downloaded binary body.
type Blob struct {
	ContentType string
	Filename    string
	Data        []byte
}

// GetBinary downloads path as a blob.
func (c *Client) GetBinary(ctx context.Context, path string, opts ...CallOption) (*Blob, error) {
	return c.binary(ctx, &Envelope{Method: http.MethodGet, Path: path, Kind: KindBinary}, opts)
}

// PostBinary posts a JSON body and returns the response as a blob.
func (c *Client) PostBinary(ctx context.Context, path string, body interface{}, opts ...CallOption) (*Blob, error) {
	reader, length, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Method:        http.MethodPost,
		Path:          path,
		Body:          reader,
		ContentLength: length,
		Kind:          KindBinary,
	}
	return c.binary(ctx, env, opts)
}

func (c *Client) binary(ctx context.Context, env *Envelope, opts []CallOption) (*Blob, error) {
	resp, err := c.send(ctx, env, collect(opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(err)
	}
	return &Blob{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		Data:        data,
	}, nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
