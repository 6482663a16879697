package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// ExpiryMode selects how a cached entry's TTL behaves.
type ExpiryMode int

const (
	// ExpireAbsolute entries die at set-time + TTL regardless of reads.
	ExpireAbsolute ExpiryMode = iota
	// ExpireSliding entries refresh their TTL on every hit.
	ExpireSliding
)

// ResponseCache stores rendered replies keyed by normalized message hash.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration, mode ExpiryMode) error
}

// CacheKey derives a stable key from the message: lowercase, collapse
// whitespace, SHA-256. A non-empty salt scopes the entry to one user.
func CacheKey(message, salt string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	h := sha256.New()
	h.Write([]byte(normalized))
	if salt != "" {
		h.Write([]byte{0})
		h.Write([]byte(salt))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	value     string
	ttl       time.Duration
	mode      ExpiryMode
	expiresAt time.Time
}

// MemoryCache is a bounded in-process ResponseCache with a background TTL
// sweep. When full, the entry closest to expiry is evicted first.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int
	now        func() time.Time

	done chan struct{}
	once sync.Once
}

// NewMemoryCache creates a cache bounded at maxEntries (default 4096). Close
// must be called to stop the sweeper.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	c := &MemoryCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Close stops the sweep goroutine.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.done) })
}

// Get returns the cached value, refreshing the TTL for sliding entries.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	if e.mode == ExpireSliding {
		e.expiresAt = now.Add(e.ttl)
	}
	return e.value, true
}

// Set stores a value. Zero or negative TTLs are ignored.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration, mode ExpiryMode) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonest()
	}
	c.entries[key] = &cacheEntry{
		value:     value,
		ttl:       ttl,
		mode:      mode,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictSoonest removes the entry closest to expiry. Caller holds the lock.
func (c *MemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim = k
			soonest = e.expiresAt
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
