// Package request is the single point of HTTP access to the WeKnora API. Every
// call gets a fresh correlation id and every outcome is normalized: 200/201
// bodies are returned untouched, everything else becomes a *NetworkError or a
// *ServiceError.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/metrics"
)

// DefaultTimeout applies to calls that do not override it.
const DefaultTimeout = 30 * time.Second

// HeaderSource supplies identity headers, computed again for every request.
type HeaderSource interface {
	RequestHeaders() http.Header
}

// Client wraps API calls. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	BaseURL    string
	Timeout    time.Duration
	Identity   HeaderSource
	HTTPClient *http.Client
}

// New returns a client for baseURL using DefaultTimeout.
func New(baseURL string, identity HeaderSource) *Client {
	return &Client{
		BaseURL:  baseURL,
		Timeout:  DefaultTimeout,
		Identity: identity,
	}
}

// Kind selects how a response body is consumed.
type Kind int

const (
	KindJSON Kind = iota
	KindBinary
	KindStream
	KindMultipart
)

// Envelope describes one outgoing call.
type Envelope struct {
	Method        string
	Path          string
	Body          io.Reader
	ContentLength int64
	Header        http.Header
	Kind          Kind
}

// Result is the untouched body of a 200/201 response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Decode unmarshals the body into target. An empty body leaves target as is.
func (r *Result) Decode(target interface{}) error {
	if r == nil || len(r.Body) == 0 || target == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
	header  http.Header
}

// WithTimeout overrides the client timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

// WithHeader adds a header to one call. The correlation id cannot be overridden.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

func collect(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.sendJSON(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...CallOption) (*Result, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...CallOption) (*Result, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE request. body may be nil.
func (c *Client) Delete(ctx context.Context, path string, body interface{}, opts ...CallOption) (*Result, error) {
	return c.sendJSON(ctx, http.MethodDelete, path, body, opts)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body interface{}, opts []CallOption) (*Result, error) {
	reader, length, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Method:        method,
		Path:          path,
		Body:          reader,
		ContentLength: length,
		Kind:          KindJSON,
	}
	return c.Do(ctx, env, opts...)
}

// Do issues env and reads the whole response body.
func (c *Client) Do(ctx context.Context, env *Envelope, opts ...CallOption) (*Result, error) {
	resp, err := c.send(ctx, env, collect(opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(err)
	}
	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func encodeBody(body interface{}) (io.Reader, int64, error) {
	var data []byte
	switch v := body.(type) {
	case nil:
		return nil, 0, nil
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request body: %w", err)
		}
		data = encoded
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// rewinder is a request body that can be sent again on a 307/308 redirect.
type rewinder interface {
	Rewind() io.Reader
}

func (c *Client) newRequest(ctx context.Context, env *Envelope, opts callOptions) (*http.Request, error) {
	if !strings.HasPrefix(env.Path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, env.Path)
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, env.Method, base+env.Path, env.Body)
	if err != nil {
		return nil, err
	}
	if env.Body != nil && env.ContentLength > 0 {
		req.ContentLength = env.ContentLength
	}
	if rw, ok := env.Body.(rewinder); ok {
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(rw.Rewind()), nil
		}
	}

	switch env.Kind {
	case KindBinary:
		req.Header.Set("Accept", "*/*")
	case KindStream:
		req.Header.Set("Accept", "text/event-stream")
	default:
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Content-Type", "application/json")

	if c.Identity != nil {
		for key, values := range c.Identity.RequestHeaders() {
			for i, v := range values {
				if i == 0 {
					req.Header.Set(key, v)
				} else {
					req.Header.Add(key, v)
				}
			}
		}
	}
	for key, values := range env.Header {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	for key, values := range opts.header {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	req.Header.Set(RequestIDHeader, NewRequestID())
	return req, nil
}

// send returns the response only for 200/201. The caller owns the body.
func (c *Client) send(ctx context.Context, env *Envelope, opts callOptions) (*http.Response, error) {
	timeout := opts.timeout
	if timeout == 0 && env.Kind != KindStream {
		timeout = c.Timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	req, err := c.newRequest(ctx, env, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	requestID := req.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		metrics.ObserveRequest(env.Method, metrics.OutcomeNetwork, 0, time.Since(start))
		logutil.Warn("request failed without response", err, map[string]interface{}{
			"method":     env.Method,
			"path":       env.Path,
			"request_id": requestID,
		})
		return nil, newNetworkError(err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		metrics.ObserveRequest(env.Method, metrics.OutcomeOK, resp.StatusCode, time.Since(start))
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	cancel()

	serr := normalizeStatus(resp.StatusCode, data)
	outcome := metrics.OutcomeService
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		outcome = metrics.OutcomeOversized
	}
	metrics.ObserveRequest(env.Method, outcome, resp.StatusCode, time.Since(start))
	logutil.Warn("request rejected", serr, map[string]interface{}{
		"method":     env.Method,
		"path":       env.Path,
		"status":     resp.StatusCode,
		"request_id": requestID,
	})
	return nil, serr
}

// cancelOnClose releases the call deadline once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
