// Package leveldbcache provides an implementation of respcache.Cache
// that uses github.com/syndtr/goleveldb/leveldb.
//
// LevelDB has no native TTL, so each stored value carries an eight-byte
// expiry stamp. Expired entries are treated as misses on read and
// deleted lazily.
package leveldbcache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

// Cache is an implementation of respcache.Cache with leveldb storage.
type Cache struct {
	db *leveldb.DB
}

// New returns a new Cache that will store leveldb in path.
func New(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbcache: open %q: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// NewWithDB returns a new Cache using the provided leveldb as
// underlying storage.
func NewWithDB(db *leveldb.DB) *Cache {
	return &Cache{db: db}
}

// Get returns the entry bytes and true if present and not expired.
// The context parameter is accepted for interface compliance but not
// used for LevelDB operations.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbcache: get %q: %w", key, err)
	}
	value, expired := unwrapExpiry(raw)
	if expired {
		// best effort: the stale row is gone either way for readers
		_ = c.db.Delete([]byte(key), nil)
		return nil, false, nil
	}
	return value, true, nil
}

// Set saves the entry under key with the given TTL.
// The context parameter is accepted for interface compliance but not
// used for LevelDB operations.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.db.Put([]byte(key), wrapExpiry(value, time.Now().Add(ttl)), nil); err != nil {
		return fmt.Errorf("leveldbcache: set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// wrapExpiry prefixes value with its absolute expiry as unix
// nanoseconds.
func wrapExpiry(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint64(out, uint64(expiresAt.UnixNano()))
	copy(out[8:], value)
	return out
}

// unwrapExpiry strips the expiry prefix, reporting whether the entry is
// past it. Values without a full prefix are treated as expired.
func unwrapExpiry(raw []byte) (value []byte, expired bool) {
	if len(raw) < 8 {
		return nil, true
	}
	expiresAt := time.Unix(0, int64(binary.LittleEndian.Uint64(raw)))
	if time.Now().After(expiresAt) {
		return nil, true
	}
	return raw[8:], false
}
