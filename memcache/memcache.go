// Package memcache provides an implementation of respcache.Cache that
// uses gomemcache to store cached entries.
//
// Cache keys are hashed before use: memcached limits keys to 250 bytes
// of printable characters, while respcache keys embed a control
// delimiter and grow with vary values. Entry TTLs map onto memcached's
// per-item expiration.
package memcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Cache is an implementation of respcache.Cache that stores entries in
// a memcache server.
type Cache struct {
	client *memcache.Client
}

// New returns a new Cache using the provided memcache server(s) with
// equal weight. If a server is listed multiple times, it gets a
// proportional amount of weight.
func New(server ...string) *Cache {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a new Cache with the given memcache client.
func NewWithClient(client *memcache.Client) *Cache {
	return &Cache{client: client}
}

// cacheKey hashes a respcache key into memcached's key alphabet and
// prefixes it to avoid collision with other data.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "respcache:" + hex.EncodeToString(sum[:])
}

// Get returns the entry bytes and true if present.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := c.client.Get(cacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set stores the entry with the given TTL. memcached expiration has
// second granularity; sub-second TTLs round up.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	secs := int32(ttl / time.Second)
	if ttl%time.Second != 0 || secs == 0 {
		secs++
	}
	return c.client.Set(&memcache.Item{
		Key:        cacheKey(key),
		Value:      value,
		Expiration: secs,
	})
}
