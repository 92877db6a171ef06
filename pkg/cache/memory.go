package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

// MemoryCache is an in-process cache with lazy expiry and a hard size cap.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]memoryItem
	maxSize int
}

// NewMemoryCache creates an in-memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		data:    make(map[string]memoryItem),
		maxSize: maxSize,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.data) >= mc.maxSize {
		mc.evictExpired()
		// Still full: drop an arbitrary entry rather than grow unbounded.
		if len(mc.data) >= mc.maxSize {
			for k := range mc.data {
				delete(mc.data, k)
				break
			}
		}
	}

	mc.data[key] = memoryItem{value: b, expireAt: time.Now().Add(ttl)}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.data[key]
	if ok && time.Now().After(item.expireAt) {
		delete(mc.data, key)
		ok = false
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		delete(mc.data, k)
	}
	return nil
}

func (mc *MemoryCache) evictExpired() {
	now := time.Now()
	for k, v := range mc.data {
		if now.After(v.expireAt) {
			delete(mc.data, k)
		}
	}
}
