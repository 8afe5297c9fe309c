package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Config selects the cache backend. An empty RedisAddr means in-memory.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// DefaultConfig returns an in-memory cache config.
func DefaultConfig() Config {
	return Config{KeyPrefix: "edufarma:"}
}

// ConfigFromEnv reads REDIS_ADDR, REDIS_PASSWORD and EDUFARMA_CACHE_PREFIX.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if p := strings.TrimSpace(os.Getenv("EDUFARMA_CACHE_PREFIX")); p != "" {
		cfg.KeyPrefix = p
	}
	return cfg
}

// New returns a Redis cache when an address is configured, else memory.
func New(ctx context.Context, cfg Config) (Cache, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(), nil
	}
	return NewRedis(ctx, cfg)
}

// GetJSON decodes a cached JSON value into v.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

// SetJSON stores v as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q for cache: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
