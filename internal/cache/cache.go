package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rsilvagit/go-jobs/internal/api"
	"github.com/rsilvagit/go-jobs/internal/filter"
)

const (
	keyPrefix     = "gojobs:list"
	generationKey = keyPrefix + ":gen"
)

// Cache stores list responses in Redis. Entries are namespaced by a
// generation counter, so bumping the counter invalidates every entry at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at the given URL and returns a Cache.
// URL format: redis://localhost:6379/0
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Key returns the entry key for the server-side part of criteria under the
// current generation.
func (c *Cache) Key(ctx context.Context, criteria filter.Criteria) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("cache: read generation: %w", err)
	}
	return buildKey(gen, criteria), nil
}

// Load returns the list stored under key, if any.
func (c *Cache) Load(ctx context.Context, key string) (*api.ListResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var result api.ListResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// Store saves a list response under key with the configured TTL.
func (c *Cache) Store(ctx context.Context, key string, result *api.ListResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal error: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops every cached list by moving to a new generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("cache: bump generation: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// buildKey depends only on the query the server would see: search is applied
// client-side and must not split the cache.
func buildKey(gen int64, criteria filter.Criteria) string {
	hash := sha256.Sum256([]byte(criteria.Query().Encode()))
	return fmt.Sprintf("%s:%d:%x", keyPrefix, gen, hash[:8])
}
