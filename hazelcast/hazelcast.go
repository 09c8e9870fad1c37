// Package hazelcast provides a Hazelcast-backed respcache.Cache.
// Entry TTLs map onto Hazelcast's per-entry map TTL.
package hazelcast

import (
	"context"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
)

// DefaultMapName is the distributed map used when none is configured.
const DefaultMapName = "respcache"

// Cache is an implementation of respcache.Cache that stores entries in
// a Hazelcast cluster.
type Cache struct {
	client *hazelcast.Client
	m      *hazelcast.Map
}

// New connects a new Hazelcast client with the given configuration and
// returns a Cache over mapName (DefaultMapName when empty). Call
// Shutdown when done.
func New(ctx context.Context, config hazelcast.Config, mapName string) (*Cache, error) {
	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("hazelcast: start client: %w", err)
	}
	cache, err := NewWithClient(ctx, client, mapName)
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, err
	}
	cache.client = client
	return cache, nil
}

// NewWithClient returns a Cache over mapName using an existing client.
// The caller keeps ownership of the client.
func NewWithClient(ctx context.Context, client *hazelcast.Client, mapName string) (*Cache, error) {
	if mapName == "" {
		mapName = DefaultMapName
	}
	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		return nil, fmt.Errorf("hazelcast: get map %q: %w", mapName, err)
	}
	return &Cache{m: m}, nil
}

// Get returns the entry bytes and true if present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.m.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("hazelcast: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		// foreign value under our key; treat as a miss
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores the entry with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.m.SetWithTTL(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("hazelcast: set %q: %w", key, err)
	}
	return nil
}

// Shutdown stops the client this Cache owns. It is a no-op for caches
// built with NewWithClient.
func (c *Cache) Shutdown(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Shutdown(ctx)
}
