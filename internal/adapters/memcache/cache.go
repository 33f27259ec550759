package memcache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned for absent or expired keys.
var ErrMiss = errors.New("cache miss")

const defaultMaxEntries = 512

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a bounded in-process ports.CacheService used when Valkey is not
// available. Expired entries are dropped lazily; once full, the entry
// closest to expiry is evicted. Good enough for a single-node deployment,
// not a substitute for a real cache tier.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
}

// New creates a bounded in-memory cache. maxEntries <= 0 uses the default.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set stores a value with a TTL in seconds.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(ttlSeconds) * time.Second),
	}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// evictLocked removes the entry nearest to expiry. Caller holds the lock.
func (c *Cache) evictLocked() {
	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim = key
			soonest = e.expiresAt
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
