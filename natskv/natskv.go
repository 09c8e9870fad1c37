// Package natskv provides a NATS JetStream Key/Value backed
// respcache.Cache.
//
// JetStream K/V buckets expire entries at bucket granularity, not per
// key, so each stored value carries its own eight-byte expiry stamp and
// reads enforce it. Configure a bucket TTL at or above the longest
// entry TTL you expect; it then acts as the reaper for stamped-out
// entries.
package natskv

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config holds the configuration for creating a NATS K/V cache.
type Config struct {
	// NATSUrl is the URL of the NATS server (e.g., "nats://localhost:4222").
	// If empty, defaults to nats.DefaultURL.
	NATSUrl string

	// Bucket is the name of the K/V bucket to use for caching.
	// Required field.
	Bucket string

	// Description is an optional description for the K/V bucket.
	Description string

	// BucketTTL bounds the lifetime of every entry in the bucket. It
	// should be at least as long as the longest per-entry TTL; zero
	// leaves reaping to bucket limits alone.
	BucketTTL time.Duration

	// NATSOptions are additional options to pass to nats.Connect.
	// Optional.
	NATSOptions []nats.Option
}

// Cache is an implementation of respcache.Cache that stores entries in
// a NATS JetStream Key/Value bucket.
type Cache struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// New connects to NATS, creates or updates the K/V bucket and returns a
// Cache. Call Close when done.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.Bucket == "" {
		return nil, errors.New("natskv: bucket name is required")
	}
	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.BucketTTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: create bucket: %w", err)
	}
	return &Cache{kv: kv, nc: nc}, nil
}

// NewWithKeyValue returns a Cache over an existing KeyValue bucket.
// The caller keeps ownership of the NATS connection.
func NewWithKeyValue(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// cacheKey hashes a respcache key into the restricted NATS K/V key
// alphabet.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "respcache." + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
}

// Get returns the entry bytes and true if present and not expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv: get %q: %w", key, err)
	}
	raw := entry.Value()
	if len(raw) < 8 {
		return nil, false, nil
	}
	expiresAt := time.Unix(0, int64(binary.LittleEndian.Uint64(raw)))
	if time.Now().After(expiresAt) {
		// best effort reap; the bucket TTL collects leftovers
		_ = c.kv.Delete(ctx, cacheKey(key))
		return nil, false, nil
	}
	return raw[8:], true, nil
}

// Set stores the entry with its expiry stamp.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stamped := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint64(stamped, uint64(time.Now().Add(ttl).UnixNano()))
	copy(stamped[8:], value)
	if _, err := c.kv.Put(ctx, cacheKey(key), stamped); err != nil {
		return fmt.Errorf("natskv: set %q: %w", key, err)
	}
	return nil
}

// Close closes the NATS connection when this Cache owns it.
func (c *Cache) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
