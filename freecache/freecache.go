// Package freecache provides a high-performance, zero-GC overhead
// implementation of respcache.Cache using github.com/coocood/freecache
// as the underlying storage.
//
// Entry TTLs map directly onto freecache's per-entry expiry. The cache
// additionally evicts least-recently-used entries under memory pressure,
// which is harmless here: eviction looks like expiry to the middleware.
//
// Example usage:
//
//	cache := freecache.New(100 * 1024 * 1024) // 100MB cache
//	mw, err := respcache.New(cache)
package freecache

import (
	"context"
	"time"

	"github.com/coocood/freecache"
)

// Cache is an implementation of respcache.Cache backed by freecache.
type Cache struct {
	cache *freecache.Cache
}

// New creates a new Cache with the specified size in bytes.
// The cache size will be set to 512KB at minimum.
//
// For large cache sizes, you may want to call debug.SetGCPercent()
// with a lower value to reduce GC overhead.
func New(size int) *Cache {
	return &Cache{cache: freecache.NewCache(size)}
}

// Get returns the entry bytes and true if present and not expired.
// The context parameter is accepted for interface compliance; freecache
// operations are in-memory and do not block.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.cache.Get([]byte(key))
	if err != nil {
		// freecache reports both misses and expiries as ErrNotFound
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores the entry with the given TTL. freecache expiry has second
// granularity; sub-second TTLs round up. A zero or negative TTL stores
// nothing, since freecache would interpret it as "never expire".
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.cache.Set([]byte(key), value, expireSeconds(ttl))
}

func expireSeconds(ttl time.Duration) int {
	secs := int(ttl / time.Second)
	if ttl%time.Second != 0 || secs == 0 {
		secs++
	}
	return secs
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.cache.Clear()
}

// EntryCount returns the number of entries currently in the cache.
func (c *Cache) EntryCount() int64 {
	return c.cache.EntryCount()
}

// HitRate returns the ratio of cache hits to total lookups.
func (c *Cache) HitRate() float64 {
	return c.cache.HitRate()
}
