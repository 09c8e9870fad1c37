// Package diskcache provides an implementation of respcache.Cache that
// uses the diskv package to supplement an in-memory map with persistent
// storage.
//
// Keys are hashed into filenames. The filesystem has no TTL, so each
// stored value carries an eight-byte expiry stamp; expired files are
// treated as misses and erased lazily.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	"github.com/peterbourgon/diskv"
)

// Cache is an implementation of respcache.Cache that supplements the
// in-memory map with persistent storage.
type Cache struct {
	d *diskv.Diskv
}

// New returns a new Cache that will store files in basePath.
func New(basePath string) *Cache {
	return NewWithDiskv(diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 100 * 1024 * 1024, // 100MB
	}))
}

// NewWithDiskv returns a new Cache using the provided Diskv as
// underlying storage.
func NewWithDiskv(d *diskv.Diskv) *Cache {
	return &Cache{d: d}
}

// Get returns the entry bytes and true if present and not expired.
// The context parameter is accepted for interface compliance but not
// used for disk operations.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	filename := keyToFilename(key)
	raw, err := c.d.Read(filename)
	if err != nil {
		// a missing file is just a miss
		return nil, false, nil
	}
	if len(raw) < 8 {
		_ = c.d.Erase(filename)
		return nil, false, nil
	}
	expiresAt := time.Unix(0, int64(binary.LittleEndian.Uint64(raw)))
	if time.Now().After(expiresAt) {
		_ = c.d.Erase(filename)
		return nil, false, nil
	}
	return raw[8:], true, nil
}

// Set saves the entry under key with the given TTL.
// The context parameter is accepted for interface compliance but not
// used for disk operations.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var stamp [8]byte
	binary.LittleEndian.PutUint64(stamp[:], uint64(time.Now().Add(ttl).UnixNano()))
	return c.d.WriteStream(keyToFilename(key), io.MultiReader(bytes.NewReader(stamp[:]), bytes.NewReader(value)), true)
}

func keyToFilename(key string) string {
	h := sha256.New()
	// Hash.Write never returns an error according to the interface contract
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}
