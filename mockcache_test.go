package respcache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// countingCache is an in-memory Cache that records every operation, so
// tests can assert exact probe and store sequences.
type countingCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	ttls    map[string]time.Duration
	gets    []string
	setKeys []string
	getErr  error
	setErr  error
}

func newCountingCache() *countingCache {
	return &countingCache{
		items: map[string][]byte{},
		ttls:  map[string]time.Duration{},
	}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, key)
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[key] = value
	c.ttls[key] = ttl
	c.setKeys = append(c.setKeys, key)
	return nil
}

func (c *countingCache) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.gets)
}

func (c *countingCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.setKeys)
}

// preload stores an already-encoded entry, bypassing the middleware.
func (c *countingCache) preload(t *testing.T, key string, e Entry) {
	t.Helper()
	data, err := encodeEntry(e)
	if err != nil {
		t.Fatalf("preload %q: %v", key, err)
	}
	c.mu.Lock()
	c.items[key] = data
	c.mu.Unlock()
}

// entryAt decodes whatever is stored under key.
func (c *countingCache) entryAt(t *testing.T, key string) Entry {
	t.Helper()
	c.mu.Lock()
	data, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	e, err := decodeEntry(data)
	if err != nil {
		t.Fatalf("decode entry at %q: %v", key, err)
	}
	return e
}

// setsOfKind returns how many Set calls stored an entry of the given
// kind, and the last such entry.
func (c *countingCache) setsOfKind(t *testing.T, kind entryKind) (int, Entry) {
	t.Helper()
	c.mu.Lock()
	keys := append([]string(nil), c.setKeys...)
	c.mu.Unlock()
	count := 0
	var last Entry
	for _, key := range keys {
		e := c.entryAt(t, key)
		if e != nil && e.kind() == kind {
			count++
			last = e
		}
	}
	return count, last
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMiddleware(t *testing.T, cache Cache, opts ...Option) *Middleware {
	t.Helper()
	m, err := New(cache, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}
