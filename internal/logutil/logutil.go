package logutil

import (
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"
)

// Level orders log records by severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var threshold atomic.Int32

func init() {
	threshold.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level written. Unknown names select info.
func SetLevel(name string) {
	level := LevelInfo
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	}
	threshold.Store(int32(level))
}

// SetOutput redirects log records.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(0)
}

// Debug logs a structured debug message.
func Debug(msg string, fields map[string]interface{}) {
	logJSON(LevelDebug, "debug", msg, fields)
}

// Info logs a structured info message.
func Info(msg string, fields map[string]interface{}) {
	logJSON(LevelInfo, "info", msg, fields)
}

// Warn logs a structured warning including the error string when present.
func Warn(msg string, err error, fields map[string]interface{}) {
	logJSON(LevelWarn, "warn", msg, withError(fields, err))
}

// Error logs a structured error message including the error string.
func Error(msg string, err error, fields map[string]interface{}) {
	logJSON(LevelError, "error", msg, withError(fields, err))
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	return fields
}

func logJSON(level Level, name, msg string, fields map[string]interface{}) {
	if int32(level) < threshold.Load() {
		return
	}
	entry := map[string]interface{}{
		"level":     name,
		"message":   msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		entry[k] = v
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("%s: %+v", msg, fields)
		return
	}
	log.Printf("%s", payload)
}
