// Package compresscache provides a cache wrapper that transparently
// compresses stored entries to reduce storage requirements and network
// bandwidth usage. Supports gzip, brotli and snappy.
//
// Stored values carry a one-byte algorithm marker, so a cache can be
// reopened with a different algorithm and still read old entries.
package compresscache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sandrolain/respcache"
)

// Algorithm identifies the compression algorithm in use.
type Algorithm byte

const (
	// Gzip uses gzip compression (good balance of ratio and speed).
	Gzip Algorithm = iota + 1
	// Brotli uses brotli compression (best ratio, slower).
	Brotli
	// Snappy uses snappy compression (fastest, lower ratio).
	Snappy

	markerUncompressed byte = 0
)

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// MinCompressSize is the size below which values are stored
// uncompressed; tiny entries gain nothing and often grow.
const MinCompressSize = 128

// Stats holds compression statistics.
type Stats struct {
	CompressedBytes   int64 // total bytes after compression
	UncompressedBytes int64 // total bytes before compression
	CompressedCount   int64 // entries stored compressed
	UncompressedCount int64 // entries stored as-is (too small)
}

// Cache wraps a respcache.Cache with transparent compression.
type Cache struct {
	inner     respcache.Cache
	algorithm Algorithm

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

// New wraps inner with the given algorithm.
func New(inner respcache.Cache, algorithm Algorithm) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("compresscache: inner cache cannot be nil")
	}
	switch algorithm {
	case Gzip, Brotli, Snappy:
	default:
		return nil, errors.New("compresscache: unknown algorithm")
	}
	return &Cache{inner: inner, algorithm: algorithm}, nil
}

// Set compresses value and stores it with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) < MinCompressSize {
		c.uncompressedCount.Add(1)
		return c.inner.Set(ctx, key, append([]byte{markerUncompressed}, value...), ttl)
	}

	compressed, err := compress(c.algorithm, value)
	if err != nil {
		return err
	}
	if len(compressed) >= len(value) {
		// incompressible payload; store as-is
		c.uncompressedCount.Add(1)
		return c.inner.Set(ctx, key, append([]byte{markerUncompressed}, value...), ttl)
	}

	c.compressedCount.Add(1)
	c.uncompressedBytes.Add(int64(len(value)))
	c.compressedBytes.Add(int64(len(compressed)))
	return c.inner.Set(ctx, key, append([]byte{byte(c.algorithm)}, compressed...), ttl)
}

// Get retrieves and decompresses a value. Entries whose marker names a
// different algorithm are still decompressed with that algorithm.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	marker := data[0]
	if marker == markerUncompressed {
		return data[1:], true, nil
	}
	out, err := decompress(Algorithm(marker), data[1:])
	if err != nil {
		// unreadable entry degrades to a miss
		return nil, false, nil
	}
	return out, true, nil
}

// Stats returns compression statistics accumulated so far.
func (c *Cache) Stats() Stats {
	return Stats{
		CompressedBytes:   c.compressedBytes.Load(),
		UncompressedBytes: c.uncompressedBytes.Load(),
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
	}
}

func compress(a Algorithm, data []byte) ([]byte, error) {
	switch a {
	case Gzip:
		return gzipCompress(data)
	case Brotli:
		return brotliCompress(data)
	case Snappy:
		return snappyCompress(data)
	default:
		return nil, errors.New("compresscache: unknown algorithm")
	}
}

func decompress(a Algorithm, data []byte) ([]byte, error) {
	switch a {
	case Gzip:
		return gzipDecompress(data)
	case Brotli:
		return brotliDecompress(data)
	case Snappy:
		return snappyDecompress(data)
	default:
		return nil, errors.New("compresscache: unknown algorithm marker")
	}
}
