package imagehash

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MemoryCache memoizes hashes for the lifetime of a process so one batch
// never hashes the same URL twice.
type MemoryCache struct {
	next Hasher

	mu     sync.Mutex
	hashes map[string]string
}

// NewMemoryCache wraps next with an in-process cache.
func NewMemoryCache(next Hasher) *MemoryCache {
	return &MemoryCache{next: next, hashes: make(map[string]string)}
}

// Hash returns the cached hash for url, computing it once on first use.
// Errors are not cached; a transient fetch failure may succeed next time.
func (c *MemoryCache) Hash(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	h, ok := c.hashes[url]
	c.mu.Unlock()
	if ok {
		return h, nil
	}

	h, err := c.next.Hash(ctx, url)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.hashes[url] = h
	c.mu.Unlock()
	return h, nil
}

// RedisCache shares computed hashes across pipeline runs and processes.
// Portals reuse image URLs for weeks, so the download+hash cost amortizes
// well. Redis being down degrades silently to the inner hasher.
type RedisCache struct {
	rdb  *redis.Client
	next Hasher
	ttl  time.Duration
	log  zerolog.Logger
}

// NewRedisCache wraps next with a Redis-backed cache.
func NewRedisCache(rdb *redis.Client, next Hasher, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, next: next, ttl: ttl, log: log}
}

const redisKeyPrefix = "phash:"

// Hash checks Redis first and falls back to the inner hasher, writing the
// result back with the configured TTL.
func (c *RedisCache) Hash(ctx context.Context, url string) (string, error) {
	key := redisKeyPrefix + url

	h, err := c.rdb.Get(ctx, key).Result()
	if err == nil && h != "" {
		return h, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("redis hash lookup failed, hashing directly")
	}

	h, err = c.next.Hash(ctx, url)
	if err != nil {
		return "", err
	}
	if setErr := c.rdb.Set(ctx, key, h, c.ttl).Err(); setErr != nil {
		c.log.Warn().Err(setErr).Msg("redis hash store failed")
	}
	return h, nil
}
