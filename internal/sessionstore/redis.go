package sessionstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hlong026/WeKnow-design/internal/session"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	TLSEnabled  bool
	TLSInsecure bool
	KeyPrefix   string
}

// NewRedisClient returns a configured Redis client or nil when no address is provided.
func NewRedisClient(cfg RedisConfig) (redis.UniversalClient, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure, // #nosec G402 – intentional opt-in
		}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisStore keeps the snapshot as JSON under one key with a TTL.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedisStore returns a store writing to <prefix>:session:<profile>.
func NewRedisStore(client redis.UniversalClient, prefix, profile string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "wkctl"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redis: client,
		key:   fmt.Sprintf("%s:session:%s", prefix, profile),
		ttl:   ttl,
	}
}

// Key returns the Redis key holding the snapshot.
func (r *RedisStore) Key() string {
	return r.key
}

func (r *RedisStore) Load(ctx context.Context) (*session.Snapshot, error) {
	data, err := r.redis.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNoSnapshot
		}
		return nil, err
	}
	return session.DecodeSnapshot(data)
}

func (r *RedisStore) Save(ctx context.Context, snap *session.Snapshot) error {
	payload, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, r.key, payload, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.redis.Del(ctx, r.key).Err()
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}

func marshalSnapshot(snap *session.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("snapshot is nil")
	}
	return json.Marshal(snap)
}
