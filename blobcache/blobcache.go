// Package blobcache provides a respcache.Cache implementation that uses
// Go Cloud Development Kit (CDK) blob storage for cloud-agnostic cache
// storage.
//
// Supports multiple providers through gocloud.dev URL schemes:
//   - Amazon S3 ("s3://bucket?region=...")
//   - Google Cloud Storage ("gs://bucket")
//   - Azure Blob Storage ("azblob://container")
//   - Local filesystem ("file:///path")
//   - In-memory ("mem://", for testing)
//
// Blob stores have no TTL, so each object carries an eight-byte expiry
// stamp; expired objects read as misses and are deleted lazily.
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Config holds the configuration for the blob cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	// Required unless Bucket is set.
	BucketURL string

	// KeyPrefix is prepended to all object names (default: "respcache/").
	KeyPrefix string

	// Timeout bounds each blob operation (default: 30s).
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket (if nil, BucketURL is used).
	Bucket *blob.Bucket
}

// Cache is an implementation of respcache.Cache over a blob bucket.
type Cache struct {
	bucket    *blob.Bucket
	ownBucket bool
	keyPrefix string
	timeout   time.Duration
}

// New opens the configured bucket and returns a Cache. Call Close when
// done; it closes the bucket only if this Cache opened it.
func New(ctx context.Context, config Config) (*Cache, error) {
	c := &Cache{
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
	}
	if c.keyPrefix == "" {
		c.keyPrefix = "respcache/"
	}
	if c.timeout == 0 {
		c.timeout = 30 * time.Second
	}
	if c.bucket == nil {
		if config.BucketURL == "" {
			return nil, errors.New("blobcache: BucketURL or Bucket is required")
		}
		bucket, err := blob.OpenBucket(ctx, config.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobcache: open bucket: %w", err)
		}
		c.bucket = bucket
		c.ownBucket = true
	}
	return c, nil
}

// objectName hashes a respcache key into a flat object name under the
// prefix; raw keys contain control bytes unfit for object stores.
func (c *Cache) objectName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the entry bytes and true if the object exists and its
// expiry stamp has not passed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := c.objectName(key)
	raw, err := c.bucket.ReadAll(opCtx, name)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobcache: read %q: %w", key, err)
	}
	if len(raw) < 8 {
		return nil, false, nil
	}
	expiresAt := time.Unix(0, int64(binary.LittleEndian.Uint64(raw)))
	if time.Now().After(expiresAt) {
		_ = c.bucket.Delete(opCtx, name)
		return nil, false, nil
	}
	return raw[8:], true, nil
}

// Set writes the entry with its expiry stamp.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stamped := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint64(stamped, uint64(time.Now().Add(ttl).UnixNano()))
	copy(stamped[8:], value)
	if err := c.bucket.WriteAll(opCtx, c.objectName(key), stamped, nil); err != nil {
		return fmt.Errorf("blobcache: write %q: %w", key, err)
	}
	return nil
}

// Close releases the bucket when this Cache opened it.
func (c *Cache) Close() error {
	if !c.ownBucket {
		return nil
	}
	return c.bucket.Close()
}
