package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisFixture(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, nil), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, _ := newRedisFixture(t)
	ctx := context.Background()

	key := CacheKey("what are your opening hours?", "")
	if err := cache.Set(ctx, key, "9 to 6", 30*time.Minute, ExpireAbsolute); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.Get(ctx, key)
	if !ok || got != "9 to 6" {
		t.Errorf("Get = (%q, %v), want cached value", got, ok)
	}
	if _, ok := cache.Get(ctx, "missing"); ok {
		t.Error("unexpected hit on a missing key")
	}
}

func TestRedisCacheAbsoluteExpiry(t *testing.T) {
	cache, mr := newRedisFixture(t)
	ctx := context.Background()

	cache.Set(ctx, "k", "v", time.Minute, ExpireAbsolute)
	mr.FastForward(61 * time.Second)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("absolute entry should expire server-side")
	}
}

func TestRedisCacheSlidingRefresh(t *testing.T) {
	cache, mr := newRedisFixture(t)
	ctx := context.Background()

	cache.Set(ctx, "k", "answer", time.Minute, ExpireSliding)

	mr.FastForward(50 * time.Second)
	got, ok := cache.Get(ctx, "k")
	if !ok || got != "answer" {
		t.Fatalf("Get = (%q, %v), want sliding hit", got, ok)
	}

	// The read refreshed the TTL to the full minute again.
	mr.FastForward(50 * time.Second)
	if _, ok := cache.Get(ctx, "k"); !ok {
		t.Error("sliding entry should survive while being read")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("sliding entry should die after idle TTL")
	}
}

func TestCacheValueEncoding(t *testing.T) {
	mode, value, ok := decodeCacheValue(encodeCacheValue(ExpireSliding, 90*time.Second, "some: value"))
	if !ok || mode != ExpireSliding || value != "some: value" {
		t.Errorf("decode = (%v, %q, %v)", mode, value, ok)
	}
	mode, value, ok = decodeCacheValue(encodeCacheValue(ExpireAbsolute, time.Minute, "plain"))
	if !ok || mode != ExpireAbsolute || value != "plain" {
		t.Errorf("decode = (%v, %q, %v)", mode, value, ok)
	}
	if _, _, ok := decodeCacheValue("garbage"); ok {
		t.Error("unknown prefix should not decode")
	}
}
