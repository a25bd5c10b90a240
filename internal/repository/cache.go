package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"propertychat/internal/model"
)

// MemoryCache keeps serialized users in process. Entries are stored as JSON
// so callers never share memory with the cache.
type MemoryCache struct {
	cache  *cache.Cache
	prefix string
}

// NewMemoryCache creates a cache whose entries expire after ttl (0 = never)
func NewMemoryCache(prefix string, ttl time.Duration) *MemoryCache {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &MemoryCache{
		cache:  cache.New(expiration, 10*time.Minute),
		prefix: prefix,
	}
}

// Load implements service.LocalCache
func (c *MemoryCache) Load(_ context.Context, key string) (*model.CachedUser, error) {
	x, found := c.cache.Get(c.prefix + key)
	if !found {
		return nil, nil
	}
	raw, ok := x.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cache entry type %T", x)
	}
	return decodeCached(raw)
}

// Save implements service.LocalCache
func (c *MemoryCache) Save(_ context.Context, key string, user *model.CachedUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode cached user: %w", err)
	}
	c.cache.Set(c.prefix+key, raw, cache.DefaultExpiration)
	return nil
}

// Clear implements service.LocalCache
func (c *MemoryCache) Clear(_ context.Context, key string) error {
	c.cache.Delete(c.prefix + key)
	return nil
}

func decodeCached(raw []byte) (*model.CachedUser, error) {
	var user model.CachedUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}
