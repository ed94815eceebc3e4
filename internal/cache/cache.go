// Package cache is a process-local read cache for tenant-scoped query
// results (stats, history, matches). Entries expire after a short TTL
// and every mutating event (import, scan completion) invalidates all of
// the tenant's keys. The cache is not coordinated across instances; a
// multi-instance deployment either shares a store or accepts staleness
// windows up to the TTL.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a cached read stays valid.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry

	now func() time.Time // overridable in tests
}

// New creates a cache with the given TTL; ttl <= 0 means DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Key builds a cache key scoped by tenant and resource, for example
// Key("t1", "history", productID, competitorID).
func Key(tenantID, resource string, parts ...string) string {
	all := append([]string{tenantID, resource}, parts...)
	return strings.Join(all, ":")
}

// Get returns the cached value if present and not expired. Expired
// entries are dropped on read.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value under the key with a fresh TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// InvalidateTenant drops every key containing the tenant identifier.
func (c *Cache) InvalidateTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.Contains(key, tenantID) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of live entries, for tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
