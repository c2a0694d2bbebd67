package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, nil), srv
}

func TestSuccessReturnsBodyUntouched(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			body := `{"success":true,"data":{"id":"m1","nested":[1,2,3]},"extra":"kept"}`
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, body)
			})

			res, err := client.Post(context.Background(), "/api/v1/models", map[string]string{"name": "m1"})
			if err != nil {
				t.Fatalf("Post: %v", err)
			}
			if string(res.Body) != body {
				t.Fatalf("body was transformed.\nwant: %s\n got: %s", body, res.Body)
			}
			if res.StatusCode != status {
				t.Fatalf("expected status %d got %d", status, res.StatusCode)
			}
		})
	}
}

func TestPayloadTooLargeIsFixed(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = io.WriteString(w, "<html><body>413 Request Entity Too Large</body></html>")
	})

	_, err := client.Post(context.Background(), "/api/v1/system/backup/import", map[string]string{"a": "b"})
	var serr *ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ServiceError got %T (%v)", err, err)
	}
	success := false
	want := &ServiceError{StatusCode: 413, Message: PayloadTooLargeMessage, Success: &success}
	if diff := cmp.Diff(want, serr); diff != "" {
		t.Fatalf("unexpected 413 error (-want +got):\n%s", diff)
	}
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected errors.Is(err, ErrPayloadTooLarge)")
	}
}

func TestNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(url, nil)
	_, err := client.Get(context.Background(), "/api/v1/models")
	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected *NetworkError got %T (%v)", err, err)
	}
	if nerr.Message != "网络错误，请检查您的网络连接" {
		t.Fatalf("unexpected message %q", nerr.Message)
	}
	var serr *ServiceError
	if errors.As(err, &serr) {
		t.Fatalf("network failure must not be a ServiceError")
	}
}

func TestServiceErrorMessageExtraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{name: "nested error", status: 400, body: `{"error":{"message":"X"},"code":"E1"}`, message: "X", code: "E1"},
		{name: "top-level message", status: 404, body: `{"success":false,"message":"Y"}`, message: "Y"},
		{name: "object without message", status: 500, body: `{"detail":"nope"}`, message: ""},
		{name: "plain text", status: 502, body: "bad gateway\n", message: "bad gateway"},
		{name: "json string", status: 500, body: `"boom"`, message: "boom"},
		{name: "no content", status: 204, body: "", message: ""},
		{name: "json array", status: 422, body: `[{"field":"name"}]`, message: ""},
		{name: "json null", status: 500, body: `null`, message: ""},
		{name: "json number", status: 500, body: `42`, message: "42"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := client.Get(context.Background(), "/api/v1/credentials")
			var serr *ServiceError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *ServiceError got %T (%v)", err, err)
			}
			if serr.StatusCode != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, serr.StatusCode)
			}
			if serr.Message != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, serr.Message)
			}
			if serr.Code("code") != tc.code {
				t.Fatalf("expected code %q got %q", tc.code, serr.Code("code"))
			}
			if string(serr.Raw) != tc.body {
				t.Fatalf("raw body not preserved: %q", serr.Raw)
			}
		})
	}
}

func TestServiceErrorKeepsEnvelopeFields(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"bad","code":1001}`)
	})

	_, err := client.Put(context.Background(), "/api/v1/tenants/1", map[string]interface{}{})
	var serr *ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ServiceError got %T", err)
	}
	if serr.Success == nil || *serr.Success {
		t.Fatalf("expected success=false to be carried")
	}
	if serr.Code("code") != "1001" {
		t.Fatalf("expected numeric code to be readable, got %q", serr.Code("code"))
	}
	if serr.Error() != "bad" {
		t.Fatalf("unexpected Error(): %q", serr.Error())
	}
}

func TestRequestIDIsFreshPerCall(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		ids []string
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(RequestIDHeader))
		mu.Unlock()
		_, _ = io.WriteString(w, `{}`)
	})

	ctx := context.Background()
	if _, err := client.Get(ctx, "/a"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := client.Post(ctx, "/b", nil, WithHeader(RequestIDHeader, "fixed-value")); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := client.Delete(ctx, "/c", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 requests got %d", len(ids))
	}
	for i, id := range ids {
		if len(id) != RequestIDLength {
			t.Fatalf("request %d: expected %d chars got %q", i, RequestIDLength, id)
		}
		if strings.Trim(id, requestIDAlphabet) != "" {
			t.Fatalf("request %d: id %q is not alphanumeric", i, id)
		}
		if i > 0 && ids[i-1] == id {
			t.Fatalf("consecutive calls reused id %q", id)
		}
	}
}

type staticHeaders http.Header

func (s staticHeaders) RequestHeaders() http.Header { return http.Header(s) }

func TestIdentityAndCallHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, staticHeaders{"Authorization": []string{"Bearer t"}, "X-Tenant-Id": []string{"7"}})
	if _, err := client.Get(context.Background(), "/api/v1/auth/me", WithHeader("X-Tenant-ID", "9")); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Get("Authorization") != "Bearer t" {
		t.Fatalf("identity header missing: %v", got)
	}
	if got.Get("X-Tenant-ID") != "9" {
		t.Fatalf("call header should win over identity header, got %q", got.Get("X-Tenant-ID"))
	}
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type %q", got.Get("Content-Type"))
	}
}

func TestWithTimeoutSurfacesAsNetworkError(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	_, err := client.Post(context.Background(), "/api/v1/social-media/extract", nil, WithTimeout(20*time.Millisecond))
	var nerr *NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected *NetworkError got %T (%v)", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", nerr.Err)
	}
}

func TestInvalidPathAndMissingBase(t *testing.T) {
	t.Parallel()

	client := New("http://localhost:8080", nil)
	if _, err := client.Get(context.Background(), "api/v1/models"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath got %v", err)
	}
	client = New("", nil)
	if _, err := client.Get(context.Background(), "/api/v1/models"); !errors.Is(err, ErrNoBaseURL) {
		t.Fatalf("expected ErrNoBaseURL got %v", err)
	}
}

func TestEncodeFailureHappensBeforeIO(t *testing.T) {
	t.Parallel()

	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := client.Post(context.Background(), "/x", map[string]interface{}{"bad": make(chan int)})
	if err == nil {
		t.Fatalf("expected encode error")
	}
	if called {
		t.Fatalf("server must not be contacted when the body cannot be encoded")
	}
}

func TestResultDecode(t *testing.T) {
	t.Parallel()

	res := &Result{Body: []byte(`{"success":true,"data":{"id":"c1"}}`)}
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := res.Decode(&env); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !env.Success || env.Data.ID != "c1" {
		t.Fatalf("unexpected decode: %+v", env)
	}
	if err := (&Result{}).Decode(&env); err != nil {
		t.Fatalf("empty body should decode to nothing: %v", err)
	}
	if err := (&Result{Body: []byte("not json")}).Decode(&env); err == nil {
		t.Fatalf("expected decode error")
	}
}

func ExampleNewRequestID() {
	fmt.Println(len(NewRequestID()))
	// Output: 12
}
