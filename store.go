package respcache

import (
	"context"
	"time"
)

// getEntry fetches and decodes the entry stored under key. Backend
// errors and malformed entries degrade to a miss: the middleware never
// fails a request because of the cache subsystem. A poisoned entry is
// simply left to be overwritten by the next successful store.
//
// The returned error reports a backend failure (not a miss); callers
// use it to stop writing to a store that just failed a read.
func (m *Middleware) getEntry(ctx context.Context, key string) (Entry, error) {
	start := time.Now()
	data, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.collector.RecordCacheOperation("get", "error", time.Since(start))
		m.log().Warn("cache get failed, treating as miss", "key", key, "error", err)
		return nil, err
	}
	if !ok {
		m.collector.RecordCacheOperation("get", "miss", time.Since(start))
		return nil, nil
	}
	e, err := decodeEntry(data)
	if err != nil {
		m.collector.RecordCacheOperation("get", "decode_error", time.Since(start))
		m.log().Warn("cached entry is unreadable, treating as miss", "key", key, "error", err)
		return nil, nil
	}
	m.collector.RecordCacheOperation("get", "hit", time.Since(start))
	return e, nil
}

// setEntry encodes and stores e under key. Write failures are logged
// and swallowed; by the time a store happens the user response has
// already been served.
func (m *Middleware) setEntry(ctx context.Context, key string, e Entry, ttl time.Duration) {
	data, err := encodeEntry(e)
	if err != nil {
		m.collector.RecordCacheOperation("set", "encode_error", 0)
		m.log().Error("cannot encode cache entry", "key", key, "error", err)
		return
	}
	start := time.Now()
	if err := m.cache.Set(ctx, key, data, ttl); err != nil {
		m.collector.RecordCacheOperation("set", "error", time.Since(start))
		m.log().Warn("cache set failed", "key", key, "error", err)
		return
	}
	m.collector.RecordCacheOperation("set", "success", time.Since(start))
}
