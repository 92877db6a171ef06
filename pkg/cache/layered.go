package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: L1 in-process memory, L2 Redis. When the
// Redis layer is nil it degrades to memory-only.
type LayeredCache struct {
	mem   *MemoryCache
	redis *RedisCache
}

// NewLayeredCache creates a layered cache. redis may be nil.
func NewLayeredCache(mem *MemoryCache, redis *RedisCache) *LayeredCache {
	return &LayeredCache{mem: mem, redis: redis}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if lc.redis != nil {
		if err := lc.redis.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return lc.mem.Set(ctx, key, value, ttl)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if lc.redis == nil {
		return ErrCacheMiss
	}
	return lc.redis.Get(ctx, key, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	if lc.redis != nil {
		return lc.redis.Delete(ctx, keys...)
	}
	return nil
}
