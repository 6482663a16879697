package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicware/assistant-platform/pkg/logging"
)

const redisCachePrefix = "assistant:cache:"

// RedisCache is the shared-deployment ResponseCache. Absolute entries rely on
// server-side TTL; sliding entries are re-expired on every hit. The mode is
// encoded as a one-byte prefix on the stored value.
type RedisCache struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisCache creates a cache over an existing Redis client.
func NewRedisCache(client *redis.Client, logger *logging.Logger) *RedisCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisCache{client: client, logger: logger}
}

// Get returns the cached value. Redis errors degrade to a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	full := redisCachePrefix + key
	raw, err := c.client.Get(ctx, full).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Error("redis cache get failed", "error", err)
		return "", false
	}

	mode, value, ok := decodeCacheValue(raw)
	if !ok {
		return "", false
	}
	if mode == ExpireSliding {
		if ttl, err := c.client.TTL(ctx, full).Result(); err == nil && ttl > 0 {
			// Best effort: a failed refresh just shortens the entry's life.
			_ = c.client.Expire(ctx, full, slidingBaseTTL(raw, ttl)).Err()
		}
	}
	return value, true
}

// Set stores a value with its expiry mode.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration, mode ExpiryMode) error {
	if ttl <= 0 {
		return nil
	}
	encoded := encodeCacheValue(mode, ttl, value)
	if err := c.client.Set(ctx, redisCachePrefix+key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("assistant: redis cache set: %w", err)
	}
	return nil
}

// encodeCacheValue prefixes the payload with "a:" (absolute) or
// "s:<ttl-seconds>:" (sliding, carrying the base TTL for refresh).
func encodeCacheValue(mode ExpiryMode, ttl time.Duration, value string) string {
	if mode == ExpireSliding {
		return fmt.Sprintf("s:%d:%s", int(ttl.Seconds()), value)
	}
	return "a:" + value
}

func decodeCacheValue(raw string) (ExpiryMode, string, bool) {
	switch {
	case strings.HasPrefix(raw, "a:"):
		return ExpireAbsolute, raw[2:], true
	case strings.HasPrefix(raw, "s:"):
		rest := raw[2:]
		idx := strings.IndexByte(rest, ':')
		if idx < 0 {
			return 0, "", false
		}
		return ExpireSliding, rest[idx+1:], true
	default:
		return 0, "", false
	}
}

// slidingBaseTTL recovers the original TTL from a sliding entry's prefix,
// falling back to the current remaining TTL.
func slidingBaseTTL(raw string, fallback time.Duration) time.Duration {
	if !strings.HasPrefix(raw, "s:") {
		return fallback
	}
	rest := raw[2:]
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 {
		return fallback
	}
	var secs int
	if _, err := fmt.Sscanf(rest[:idx], "%d", &secs); err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
