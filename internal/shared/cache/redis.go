// Package cache holds the Redis-backed key/value store used for briefings.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tulugarseguro/agentes/internal/shared/config"
)

var ErrMiss = errors.New("cache miss")

// RedisKV is a string store with per-key expiry.
type RedisKV struct {
	c *redis.Client
}

// NewRedisClient creates a client from config. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

// Get returns ErrMiss when the key is absent or expired.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// Health pings the server.
func (r *RedisKV) Health(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *RedisKV) Name() string {
	return "cache"
}

func (r *RedisKV) Close() error {
	return r.c.Close()
}
