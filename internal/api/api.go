// Package api wraps the WeKnora REST endpoints on top of the request client.
// Calls either propagate failures or, for list endpoints the UI treats as
// optional, return a Listing that records what was swallowed.
package api

import (
	"errors"
	"net/url"
	"time"

	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/request"
	"github.com/hlong026/WeKnow-design/internal/session"
)

// DefaultExtractTimeout bounds social media extraction, which runs a long
// remote workflow.
const DefaultExtractTimeout = 8 * time.Minute

// Options tune service behaviour.
type Options struct {
	// HideOllama drops the ollama provider from provider listings.
	HideOllama bool
	// MaxUploadBytes rejects larger imports before any I/O. Zero disables the check.
	MaxUploadBytes int64
	ExtractTimeout time.Duration
}

// Service exposes typed WeKnora operations.
type Service struct {
	client  *request.Client
	session *session.Context
	opts    Options
}

// New builds a service. sess may be nil, in which case nothing is cached.
func New(client *request.Client, sess *session.Context, opts Options) *Service {
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = DefaultExtractTimeout
	}
	return &Service{client: client, session: sess, opts: opts}
}

// Envelope is the service's standard response body.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

// EnvelopeError reports a 200/201 response whose body carried success=false
// or lacked the expected data.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

func envelopeError(message, fallback string) *EnvelopeError {
	if message == "" {
		message = fallback
	}
	return &EnvelopeError{Message: message}
}

// Listing is the result of a best-effort list call. Items is never nil; Err
// holds the failure that produced an empty list, if any.
type Listing[T any] struct {
	Items []T
	Err   error
}

// Degraded reports whether the items are a fallback.
func (l Listing[T]) Degraded() bool {
	return l.Err != nil
}

// Must returns the items, or the swallowed error for callers that propagate.
func (l Listing[T]) Must() ([]T, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Items, nil
}

// decodeData requires success=true and a non-null data member.
func decodeData[T any](res *request.Result, fallback string) (*T, error) {
	var env Envelope[*T]
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil {
		return nil, envelopeError(env.Message, fallback)
	}
	return env.Data, nil
}

// decodeSuccess requires success=true and ignores data.
func decodeSuccess(res *request.Result, fallback string) error {
	var env Envelope[struct{}]
	if err := res.Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		return envelopeError(env.Message, fallback)
	}
	return nil
}

// listing turns a list call into a Listing, logging whatever it swallows.
func listing[T any](op string, res *request.Result, err error) Listing[T] {
	if err == nil {
		var env Envelope[[]T]
		if err = res.Decode(&env); err == nil && !env.Success {
			err = envelopeError(env.Message, op+" failed")
		}
		if err == nil {
			if env.Data == nil {
				env.Data = []T{}
			}
			return Listing[T]{Items: env.Data}
		}
	}
	logutil.Warn(op+" failed", err, nil)
	return Listing[T]{Items: []T{}, Err: err}
}

func withQuery(path string, values url.Values) string {
	if encoded := values.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

func segment(s string) string {
	return url.PathEscape(s)
}

var errEmptyID = errors.New("id must not be empty")
