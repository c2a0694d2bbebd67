// Package sessionstore persists session snapshots between wkctl invocations.
package sessionstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hlong026/WeKnow-design/internal/session"
)

// Backend is a session store that owns resources.
type Backend interface {
	session.Store
	io.Closer
}

// Config selects and configures a backend.
type Config struct {
	Driver  string
	DSN     string
	Profile string
	TTL     time.Duration
	Redis   RedisConfig
}

// Open returns the configured backend, or nil for driver "none".
func Open(cfg Config) (Backend, error) {
	profile := strings.TrimSpace(cfg.Profile)
	if profile == "" {
		profile = "default"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "file":
		path := cfg.DSN
		if path == "" {
			path = DefaultFilePath(profile)
		}
		return NewFileStore(path), nil
	case "sqlite", "postgres":
		store, err := OpenSQL(cfg.DSN, strings.ToLower(cfg.Driver), profile)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		redisCfg := cfg.Redis
		if redisCfg.Addr == "" {
			redisCfg.Addr = cfg.DSN
		}
		client, err := NewRedisClient(redisCfg)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("redis session store requires an address")
		}
		return NewRedisStore(client, redisCfg.KeyPrefix, profile, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", cfg.Driver)
	}
}

// DefaultFilePath places the snapshot next to the CLI config.
func DefaultFilePath(profile string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Sprintf("./wkctl-session-%s.yaml", profile)
	}
	return filepath.Join(dir, "wkctl", "sessions", profile+".yaml")
}
