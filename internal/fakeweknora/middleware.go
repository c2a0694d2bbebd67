package fakeweknora

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hlong026/WeKnow-design/internal/logutil"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		requestID, _ := c.Get("requestID")
		logutil.Debug("fake weknora request", map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": requestID,
		})
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// recordMiddleware captures each request and replays injected failures.
func (s *Server) recordMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			RawQuery: c.Request.URL.RawQuery,
			Header:   c.Request.Header.Clone(),
			Body:     body,
		})
		f, failing := s.failures[c.Request.Method+" "+c.Request.URL.Path]
		s.mu.Unlock()

		if failing {
			switch v := f.body.(type) {
			case nil:
				c.AbortWithStatus(f.status)
			case string:
				c.Data(f.status, "text/plain; charset=utf-8", []byte(v))
				c.Abort()
			default:
				c.AbortWithStatusJSON(f.status, v)
			}
			return
		}
		c.Next()
	}
}

func authMiddleware(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			header = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		if header == "" {
			header = c.GetHeader("X-API-Key")
		}

		if header != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}
