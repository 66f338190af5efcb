package cache

import (
	"context"
	"sync"
	"time"

	"core/internal/model"
)

// MemoryCache is the in-process backend: bounded, oldest-first eviction,
// lazy expiry on read.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	ttl        time.Duration
	maxEntries int
}

type memoryEntry struct {
	result     *CachedResult
	insertedAt time.Time
}

// NewMemoryCache creates an in-memory result cache.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the cached result for the signature and filter snapshot.
func (c *MemoryCache) Get(_ context.Context, signature string, filters model.SearchFilters) (*CachedResult, bool) {
	key := Key(signature, filters)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

// Put stores a result, evicting the oldest entry when full.
func (c *MemoryCache) Put(_ context.Context, signature string, filters model.SearchFilters, result *CachedResult) {
	key := Key(signature, filters)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &memoryEntry{result: result, insertedAt: time.Now()}
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len reports the number of live entries, for stats endpoints.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ ResultCache = (*MemoryCache)(nil)
