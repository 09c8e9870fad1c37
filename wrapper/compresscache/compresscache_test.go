package compresscache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/respcache"
	"github.com/sandrolain/respcache/test"
)

func newCache(t *testing.T, a Algorithm) *Cache {
	t.Helper()
	c, err := New(respcache.NewMemoryCache(), a)
	require.NoError(t, err)
	return c
}

func TestConformanceAllAlgorithms(t *testing.T) {
	for _, a := range []Algorithm{Gzip, Brotli, Snappy} {
		t.Run(a.String(), func(t *testing.T) {
			test.Cache(t, newCache(t, a))
		})
	}
}

func TestRoundTripLargeValue(t *testing.T) {
	ctx := context.Background()
	value := []byte(strings.Repeat("compressible content ", 1000))

	for _, a := range []Algorithm{Gzip, Brotli, Snappy} {
		t.Run(a.String(), func(t *testing.T) {
			c := newCache(t, a)
			require.NoError(t, c.Set(ctx, "k", value, time.Minute))

			got, ok, err := c.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, value, got)

			stats := c.Stats()
			assert.Equal(t, int64(1), stats.CompressedCount)
			assert.Less(t, stats.CompressedBytes, stats.UncompressedBytes)
		})
	}
}

func TestSmallValuesStoredUncompressed(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, Gzip)

	require.NoError(t, c.Set(ctx, "k", []byte("tiny"), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("tiny"), got)
	assert.Equal(t, int64(1), c.Stats().UncompressedCount)
}

func TestCrossAlgorithmRead(t *testing.T) {
	ctx := context.Background()
	inner := respcache.NewMemoryCache()
	value := []byte(strings.Repeat("payload ", 100))

	gz, err := New(inner, Gzip)
	require.NoError(t, err)
	require.NoError(t, gz.Set(ctx, "k", value, time.Minute))

	// the same backing store reopened with snappy still reads the
	// gzip-marked entry
	sn, err := New(inner, Snappy)
	require.NoError(t, err)
	got, ok, err := sn.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestNilInnerRejected(t *testing.T) {
	_, err := New(nil, Gzip)
	assert.Error(t, err)
}
