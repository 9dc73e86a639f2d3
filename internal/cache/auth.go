package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// authCachePrefix is the Redis key prefix for resolved-user cache.
	authCachePrefix = "auth:user:"
	// authCacheTTL is the time-to-live for cached auth resolutions.
	// Short on purpose: the cache only shortcuts the argon2 verification,
	// it is not a session.
	authCacheTTL = 5 * time.Minute
)

// CachedUser is the minimal auth resolution stored in Redis.
// Never the token, never the hash: only the outcome of a verification,
// keyed by a one-way digest of the presented token.
type CachedUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// GetCachedUser retrieves a cached auth resolution by cache key.
// Returns nil on a miss; a corrupted entry is treated as a miss.
func (c *Cache) GetCachedUser(ctx context.Context, cacheKey string) (*CachedUser, error) {
	key := authCachePrefix + cacheKey

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &cached, nil
}

// SetCachedUser caches a successful auth resolution.
func (c *Cache) SetCachedUser(ctx context.Context, cacheKey string, user *CachedUser) error {
	key := authCachePrefix + cacheKey

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal cached user: %w", err)
	}

	return c.client.Set(ctx, key, data, authCacheTTL).Err()
}

// DeleteCachedUser removes a cached auth resolution.
func (c *Cache) DeleteCachedUser(ctx context.Context, cacheKey string) error {
	key := authCachePrefix + cacheKey
	return c.client.Del(ctx, key).Err()
}
