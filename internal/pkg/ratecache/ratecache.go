package ratecache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is a small time-boxed lookup cache for gateway conversion
// estimates. It is handed explicitly to whoever needs it instead of living
// as a package-level map, so tests and callers control its lifetime.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value     float64
	fetchedAt time.Time
}

// New creates a cache whose entries go stale after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Key builds the canonical cache key for one conversion quote.
func Key(amount float64, currencyFrom, currencyTo string) string {
	return fmt.Sprintf("%s:%s:%.2f", strings.ToLower(currencyFrom), strings.ToLower(currencyTo), amount)
}

// Get returns the cached value when it is younger than the TTL.
func (c *Cache) Get(key string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return 0, false
	}
	return e.value, true
}

// Put stores a value under key, stamped with the current time.
func (c *Cache) Put(key string, value float64) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}
