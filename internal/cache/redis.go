package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis"
)

// RedisCache stores JSON-encoded values under a key prefix. Entries expire
// server side after ttl.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient connects to a redis:// URL and checks the connection.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	b, err := c.client.Get(c.prefix + key).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		slog.Warn("Redis cache get failed", "key", key, "error", err)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		slog.Warn("Redis cache entry undecodable, dropping", "key", key, "error", err)
		c.Delete(key)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(key string, data T) {
	b, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Redis cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(c.prefix+key, b, c.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(key string) {
	if err := c.client.Del(c.prefix + key).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "key", key, "error", err)
	}
}

// Size counts the keys under the prefix.
func (c *RedisCache[T]) Size() int {
	keys, err := c.client.Keys(c.prefix + "*").Result()
	if err != nil {
		slog.Warn("Redis cache size failed", "error", err)
		return 0
	}
	return len(keys)
}
