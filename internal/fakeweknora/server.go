// Package fakeweknora is an in-memory stand-in for the WeKnora HTTP API. It
// records every request and can be told to fail specific routes.
package fakeweknora

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Options configures the fake.
type Options struct {
	// Token, when set, is required as a bearer token on /api routes.
	Token string
	// MaxImportBytes makes larger backup imports fail with 413.
	MaxImportBytes int64
	// ExtractDelay delays social media extraction responses.
	ExtractDelay time.Duration
}

// Recorded is one request as received.
type Recorded struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type failure struct {
	status int
	body   interface{}
}

// Server wraps the Gin engine and the fake's state.
type Server struct {
	engine *gin.Engine
	opts   Options

	mu       sync.Mutex
	requests []Recorded
	failures map[string]failure
	state    *state
}

// New constructs a Server with every route configured and seed data loaded.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:     opts,
		failures: map[string]failure{},
		state:    seed(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), s.recordMiddleware(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := engine.Group("/api/v1")
	v1.Use(authMiddleware(opts.Token))

	v1.GET("/auth/me", s.me)
	v1.GET("/tenants/all", s.listTenants)
	v1.GET("/tenants/search", s.searchTenants)
	v1.PUT("/tenants/:id", s.updateTenant)

	v1.GET("/models", s.listModels)
	v1.POST("/models", s.createModel)
	v1.GET("/models/providers", s.listModelProviders)
	v1.GET("/models/:id", s.getModel)
	v1.PUT("/models/:id", s.updateModel)
	v1.DELETE("/models/:id", s.deleteModel)

	v1.GET("/providers", s.listProviders)
	v1.GET("/providers/:provider", s.getProvider)
	v1.GET("/providers/:provider/models", s.getProviderModels)

	v1.GET("/credentials", s.listCredentials)
	v1.POST("/credentials", s.createCredential)
	v1.PUT("/credentials/:id", s.updateCredential)
	v1.DELETE("/credentials/:id", s.deleteCredential)
	v1.POST("/credentials/:id/test", s.testCredential)

	v1.GET("/system/backup/options", s.exportOptions)
	v1.POST("/system/backup/export", s.exportData)
	v1.POST("/system/backup/import", s.importData)

	v1.POST("/social-media/extract", s.extract)
	v1.PUT("/initialization/kb/:id/aliyun-api-key", s.updateAliyunKey)

	v1.GET("/knowledge-bases", s.listKnowledgeBases)
	v1.POST("/knowledge-chat/:session_id", s.knowledgeChat)

	s.engine = engine
	return s
}

// Engine exposes the underlying Gin engine for advanced use (testing, etc.).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// NewHTTPTest starts the fake on a local listener. Close the result when done.
func (s *Server) NewHTTPTest() *httptest.Server {
	return httptest.NewServer(s.engine)
}

// Start launches the HTTP server on the provided address.
func (s *Server) Start(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
	return srv
}

// Fail makes every later method+path request answer with status and body.
// A string body is sent as text, nil as an empty body, anything else as JSON.
func (s *Server) Fail(method, path string, status int, body interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Recover clears injected failures.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent request, or false when none arrived.
func (s *Server) LastRequest() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}
