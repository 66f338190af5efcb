package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"core/internal/model"
)

// RedisCache stores search results in Redis with a native TTL. Any
// Redis failure degrades to a cache miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed result cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached result for the signature and filter snapshot.
func (c *RedisCache) Get(ctx context.Context, signature string, filters model.SearchFilters) (*CachedResult, bool) {
	key := Key(signature, filters)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).Warn("result cache read failed, treating as miss")
		return nil, false
	}
	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		logrus.WithError(err).Warn("dropping unreadable cache entry")
		c.client.Del(ctx, key)
		return nil, false
	}
	return &result, true
}

// Put stores a result; a write failure only costs the next request a miss.
func (c *RedisCache) Put(ctx context.Context, signature string, filters model.SearchFilters, result *CachedResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logrus.WithError(err).Warn("result cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, Key(signature, filters), data, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("result cache write failed")
	}
}

var _ ResultCache = (*RedisCache)(nil)
