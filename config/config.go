// Package config provides client configuration management.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LocalBaseURL is the service address used outside of Docker.
const LocalBaseURL = "http://localhost:8080"

// Config holds all client configuration.
type Config struct {
	// Transport configuration
	IsDocker       bool
	BaseURL        string
	RequestTimeout time.Duration
	ExtractTimeout time.Duration

	// Runtime settings shared with the web client
	MaxFileSizeMB int
	DisableAuth   bool
	HideOllama    bool

	// Session persistence
	SessionStoreDriver string
	SessionStoreDSN    string
	SessionProfile     string
	SessionTTL         time.Duration

	// Redis configuration
	RedisAddr        string
	RedisUsername    string
	RedisPassword    string
	RedisDB          int
	RedisTLSEnabled  bool
	RedisTLSInsecure bool
	RedisKeyPrefix   string

	LogLevel string
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	isDocker := getEnvBool("WEKNORA_IS_DOCKER", false)
	return &Config{
		IsDocker:           isDocker,
		BaseURL:            getEnv("WEKNORA_BASE_URL", DefaultBaseURL(isDocker)),
		RequestTimeout:     getEnvDuration("WEKNORA_REQUEST_TIMEOUT", 30*time.Second),
		ExtractTimeout:     getEnvDuration("WEKNORA_EXTRACT_TIMEOUT", 8*time.Minute),
		MaxFileSizeMB:      getEnvInt("WEKNORA_MAX_FILE_SIZE_MB", 50),
		DisableAuth:        getEnvBool("WEKNORA_DISABLE_AUTH", true),
		HideOllama:         getEnvBool("WEKNORA_HIDE_OLLAMA", false),
		SessionStoreDriver: getEnv("WEKNORA_SESSION_STORE", "none"),
		SessionStoreDSN:    getEnv("WEKNORA_SESSION_DSN", ""),
		SessionProfile:     getEnv("WEKNORA_SESSION_PROFILE", "default"),
		SessionTTL:         getEnvDuration("WEKNORA_SESSION_TTL", 7*24*time.Hour),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisUsername:      getEnv("REDIS_USERNAME", ""),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisTLSEnabled:    getEnvBool("REDIS_TLS_ENABLED", false),
		RedisTLSInsecure:   getEnvBool("REDIS_TLS_INSECURE_SKIP_VERIFY", false),
		RedisKeyPrefix:     getEnv("REDIS_KEY_PREFIX", "wkctl"),
		LogLevel:           getEnv("WEKNORA_LOG_LEVEL", "info"),
	}
}

// DefaultBaseURL returns the relative base inside Docker and the local
// development address otherwise.
func DefaultBaseURL(isDocker bool) string {
	if isDocker {
		return ""
	}
	return LocalBaseURL
}

// MaxFileSizeBytes converts MaxFileSizeMB to bytes. Zero disables the check.
func (c *Config) MaxFileSizeBytes() int64 {
	if c == nil || c.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s: %s, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s: %s, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		default:
			log.Printf("Invalid bool for %s: %s, using default %t", key, value, defaultValue)
		}
	}
	return defaultValue
}
