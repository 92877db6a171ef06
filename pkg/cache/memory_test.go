package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache(10)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := mc.Set(ctx, "k", payload{Name: "a", Count: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("round trip: %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache(10)
	var got string
	if err := mc.Get(context.Background(), "absent", &got); err != ErrCacheMiss {
		t.Fatalf("got %v want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(10)
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("expired key must miss, got %v", err)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache(10)
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("deleted key must miss, got %v", err)
	}
}

func TestMemoryCacheSizeCap(t *testing.T) {
	mc := NewMemoryCache(2)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := mc.Set(ctx, k, k, time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if n := len(mc.data); n > 2 {
		t.Fatalf("cache grew past cap: %d entries", n)
	}
}
