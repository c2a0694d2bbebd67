package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// NetworkErrorMessage is reported when no response was received.
	NetworkErrorMessage = "网络错误，请检查您的网络连接"
	// PayloadTooLargeMessage replaces whatever body accompanied a 413.
	PayloadTooLargeMessage = "文件大小超过限制，请上传较小的文件"
)

var (
	// ErrPayloadTooLarge matches a *ServiceError built from a 413 response.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidPath is returned before any I/O when a path is not server-relative.
	ErrInvalidPath = errors.New("request path must be server-relative")
	// ErrNoBaseURL is returned when the client has no server to talk to.
	ErrNoBaseURL = errors.New("no base URL configured")
)

// NetworkError reports a call that never produced an HTTP response.
type NetworkError struct {
	Message string
	Err     error
}

func newNetworkError(err error) *NetworkError {
	return &NetworkError{Message: NetworkErrorMessage, Err: err}
}

func (e *NetworkError) Error() string {
	return e.Message
}

// Unwrap exposes the cause so callers can detect cancellation.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServiceError reports a response whose status was not 200 or 201.
type ServiceError struct {
	StatusCode int
	Message    string
	// Success mirrors the envelope's success flag when the body carried one.
	Success *bool
	// Fields holds the top-level members of an object body.
	Fields map[string]interface{}
	Raw    []byte
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports 413 errors as ErrPayloadTooLarge.
func (e *ServiceError) Is(target error) bool {
	return target == ErrPayloadTooLarge && e.StatusCode == http.StatusRequestEntityTooLarge
}

// Code returns a string field of the body such as a service error code.
func (e *ServiceError) Code(key string) string {
	if e.Fields == nil {
		return ""
	}
	switch v := e.Fields[key].(type) {
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// normalizeStatus turns a non-success response into a *ServiceError.
func normalizeStatus(status int, body []byte) *ServiceError {
	if status == http.StatusRequestEntityTooLarge {
		success := false
		return &ServiceError{
			StatusCode: status,
			Message:    PayloadTooLargeMessage,
			Success:    &success,
		}
	}

	serr := &ServiceError{StatusCode: status, Raw: body}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		serr.Message = strings.TrimSpace(string(body))
		return serr
	}
	switch v := decoded.(type) {
	case map[string]interface{}:
		serr.Fields = v
		serr.Message = extractMessage(v)
		if ok, isBool := v["success"].(bool); isBool {
			serr.Success = &ok
		}
	case []interface{}, nil:
		// Arrays and null carry no message.
	case string:
		serr.Message = v
	default:
		serr.Message = strings.TrimSpace(string(body))
	}
	return serr
}

// extractMessage prefers error.message, then message.
func extractMessage(obj map[string]interface{}) string {
	if nested, ok := obj["error"].(map[string]interface{}); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return msg
		}
	}
	switch msg := obj["message"].(type) {
	case nil:
		return ""
	case string:
		return msg
	default:
		return fmt.Sprint(msg)
	}
}
