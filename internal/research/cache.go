package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long research text is reused for the same query
const DefaultCacheTTL = 6 * time.Hour

// Cache stores research text keyed by a hash of the query
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, query, content string, ttl time.Duration) error
}

// CacheKey returns the cache key for a research query
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// RedisCache keeps research text in Redis with a native expiry
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced under "research:".
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "research:"}
}

// Get returns the cached text for key, if present
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	content, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return content, true, nil
}

// Set stores content under key. The query is kept alongside for inspection.
func (c *RedisCache) Set(ctx context.Context, key, query, content string, ttl time.Duration) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.prefix+key, content, ttl)
	pipe.Set(ctx, c.prefix+key+":query", query, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}
