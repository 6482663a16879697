package assistant

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T, max int) (*MemoryCache, *time.Time) {
	t.Helper()
	c := NewMemoryCache(max)
	t.Cleanup(c.Close)
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheKeyNormalization(t *testing.T) {
	a := CacheKey("  What ARE your   opening hours? ", "")
	b := CacheKey("what are your opening hours?", "")
	if a != b {
		t.Error("keys should match after normalization")
	}
	if CacheKey("hello", "") == CacheKey("hello", "user-1") {
		t.Error("user salt must change the key")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, 16)
	ctx := context.Background()

	key := CacheKey("hello", "")
	if err := c.Set(ctx, key, "hi there", time.Minute, ExpireAbsolute); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(ctx, key)
	if !ok || got != "hi there" {
		t.Errorf("Get = (%q, %v), want cached value", got, ok)
	}
	if _, ok := c.Get(ctx, CacheKey("other", "")); ok {
		t.Error("unexpected hit for a different message")
	}
}

func TestMemoryCacheAbsoluteExpiry(t *testing.T) {
	c, now := newTestCache(t, 16)
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute, ExpireAbsolute)

	// Reads do not extend an absolute entry.
	*now = now.Add(50 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be live")
	}
	*now = now.Add(11 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("absolute entry should expire at set-time + TTL")
	}
}

func TestMemoryCacheSlidingExpiry(t *testing.T) {
	c, now := newTestCache(t, 16)
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute, ExpireSliding)

	// Each read pushes the deadline out by the TTL.
	for i := 0; i < 3; i++ {
		*now = now.Add(50 * time.Second)
		if _, ok := c.Get(ctx, "k"); !ok {
			t.Fatalf("read %d: sliding entry should have been refreshed", i)
		}
	}
	*now = now.Add(61 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("sliding entry should expire after an idle TTL")
	}
}

func TestMemoryCacheBoundedEviction(t *testing.T) {
	c, now := newTestCache(t, 3)
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute, ExpireAbsolute)
	*now = now.Add(time.Second)
	c.Set(ctx, "b", "2", time.Minute, ExpireAbsolute)
	*now = now.Add(time.Second)
	c.Set(ctx, "c", "3", time.Minute, ExpireAbsolute)
	*now = now.Add(time.Second)
	c.Set(ctx, "d", "4", time.Minute, ExpireAbsolute)

	if c.Len() != 3 {
		t.Fatalf("len = %d, want bound of 3", c.Len())
	}
	// "a" was closest to expiry and must be the victim.
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("oldest-expiry entry should have been evicted")
	}
	if _, ok := c.Get(ctx, "d"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestMemoryCacheIgnoresZeroTTL(t *testing.T) {
	c, _ := newTestCache(t, 16)
	ctx := context.Background()
	c.Set(ctx, "k", "v", 0, ExpireAbsolute)
	if c.Len() != 0 {
		t.Error("zero TTL should not be stored")
	}
}
