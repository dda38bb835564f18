package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// RedisConfig for a Redis-backed Store. Defaults can be loaded via envdecode.
type RedisConfig struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all counter keys. ENV: RATELIMIT_KEY_PREFIX
	KeyPrefix string `env:"RATELIMIT_KEY_PREFIX,default=rpc:ratelimit:"`
}

// RedisStore shares one fixed-window budget across server replicas.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "rpc:ratelimit:"
	}
	return &RedisStore{client: cl, keyPrefix: prefix}, nil
}

// NewRedisFromEnv builds a RedisStore using envdecode to populate RedisConfig.
func NewRedisFromEnv() (*RedisStore, error) {
	var cfg RedisConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("ratelimit config: %w", err)
	}
	return NewRedisStore(cfg)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error { return s.client.Close() }

// Incr implements Store. INCR and the window expiry run in one transaction;
// the expiry is set only when the key has none, so the window starts at the
// first hit and is never extended by later ones.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := s.keyPrefix + key
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", k, err)
	}
	return incr.Val(), nil
}
