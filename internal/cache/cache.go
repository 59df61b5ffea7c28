package cache

import (
	"context"
	"sync"
	"time"

	"github.com/domeara/becool/internal/rank"
)

// Cache stores completed selection results so repeated lookups for the same
// (origin, radius, unit, date) key within the TTL skip the upstream fetch.
// Get returns cached data if present and not expired, Set stores with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (rank.SelectionResult, bool, error)
	Set(ctx context.Context, key string, value rank.SelectionResult, ttl time.Duration) error
}

// InMemoryCache implements Cache with a map and TTL-based expiration.
// Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     rank.SelectionResult
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached selection for the key if present and not expired.
// Returns (data, true, nil) on hit, (zero, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) (rank.SelectionResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return rank.SelectionResult{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return rank.SelectionResult{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a selection result with the specified TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value rank.SelectionResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
