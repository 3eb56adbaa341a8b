package utils

import (
	"sync"
	"time"
)

// TTLCache is a small concurrency-safe string cache with per-entry
// expiry. Used for admin settings so hot paths (featured checks,
// listing validation) don't hit the database on every request.
type TTLCache struct {
	entries sync.Map // key -> cacheItem
	ttl     time.Duration
}

type cacheItem struct {
	value      string
	expiration int64
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{ttl: ttl}
}

// Set stores a value with the cache's default TTL.
func (c *TTLCache) Set(key, value string) {
	c.entries.Store(key, cacheItem{
		value:      value,
		expiration: time.Now().Add(c.ttl).UnixNano(),
	})
}

// Get returns the cached value, treating expired entries as misses.
// Expired entries are lazily deleted.
func (c *TTLCache) Get(key string) (string, bool) {
	val, ok := c.entries.Load(key)
	if !ok {
		return "", false
	}

	item := val.(cacheItem)
	if time.Now().UnixNano() > item.expiration {
		c.entries.Delete(key)
		return "", false
	}

	return item.value, true
}

// Delete removes an entry, typically after the underlying row changed.
func (c *TTLCache) Delete(key string) {
	c.entries.Delete(key)
}

// Purge drops everything. Settings writes call this so all nodes of a
// single process see the new value immediately.
func (c *TTLCache) Purge() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}
