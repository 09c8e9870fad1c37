// Package test exercises respcache.Cache implementations. Backend
// packages call these helpers from their own tests so every backend
// honors the same contract.
package test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sandrolain/respcache"
)

// Cache exercises the basic contract of a respcache.Cache
// implementation: misses, writes, reads and overwrites.
func Cache(t *testing.T, cache respcache.Cache) {
	t.Helper()
	ctx := context.Background()
	key := "testKey"

	_, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	val := []byte("some bytes")
	if err := cache.Set(ctx, key, val, time.Minute); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	retVal, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an element we just added")
	}
	if !bytes.Equal(retVal, val) {
		t.Fatal("retrieved a different value than what we put in")
	}

	val2 := []byte("other bytes")
	if err := cache.Set(ctx, key, val2, time.Minute); err != nil {
		t.Fatalf("error overwriting key: %v", err)
	}
	retVal, ok, err = cache.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("error getting overwritten key: %v, ok=%v", err, ok)
	}
	if !bytes.Equal(retVal, val2) {
		t.Fatal("overwrite did not take")
	}
}

// CacheTTL exercises expiry: an entry stored with a short TTL must stop
// being returned once the TTL elapses.
func CacheTTL(t *testing.T, cache respcache.Cache) {
	t.Helper()
	ctx := context.Background()
	key := "testExpiringKey"

	if err := cache.Set(ctx, key, []byte("ephemeral"), time.Second); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	_, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("entry missing before its TTL elapsed")
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		_, ok, err = cache.Get(ctx, key)
		if err != nil {
			t.Fatalf("error getting key: %v", err)
		}
		if !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("entry still present well past its TTL")
		}
		time.Sleep(250 * time.Millisecond)
	}
}
