// Package multicache provides a multi-tiered cache implementation that
// cascades through multiple cache backends with automatic fallback and
// promotion. Tiers are ordered from fastest/smallest (first) to
// slowest/largest (last): reads search each tier in order and promote
// hits to faster tiers, writes fan out to all tiers.
//
// Example use case:
//   - Tier 1: freecache (fast, small, volatile)
//   - Tier 2: Redis (medium speed, larger, persistent)
//   - Tier 3: PostgreSQL (slower, largest, highly persistent)
package multicache

import (
	"context"
	"time"

	"github.com/sandrolain/respcache"
)

// DefaultPromotionTTL bounds how long a value promoted to a faster tier
// lives there. Tiers do not expose the remaining TTL of a hit, so the
// promoted copy gets this conservative lifetime; the slower tier stays
// authoritative.
const DefaultPromotionTTL = time.Minute

// MultiCache implements the tiered strategy over respcache.Cache
// backends.
type MultiCache struct {
	tiers        []respcache.Cache
	promotionTTL time.Duration
}

// New creates a MultiCache with the specified cache tiers, ordered from
// fastest to slowest.
//
// Returns nil if no tiers are provided, any tier is nil, or a tier is
// duplicated.
func New(tiers ...respcache.Cache) *MultiCache {
	if len(tiers) == 0 {
		return nil
	}
	seen := make(map[respcache.Cache]bool, len(tiers))
	for _, tier := range tiers {
		if tier == nil || seen[tier] {
			return nil
		}
		seen[tier] = true
	}
	return &MultiCache{tiers: tiers, promotionTTL: DefaultPromotionTTL}
}

// WithPromotionTTL sets the lifetime of copies promoted to faster tiers
// and returns the same MultiCache.
func (c *MultiCache) WithPromotionTTL(ttl time.Duration) *MultiCache {
	if ttl > 0 {
		c.promotionTTL = ttl
	}
	return c
}

// Get searches each tier in order. A hit in a slower tier is promoted
// to all faster tiers; promotion failures are ignored since the value
// was already found. A tier error falls through to the next tier.
func (c *MultiCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var firstErr error
	for i, tier := range c.tiers {
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			c.promote(ctx, key, value, i)
			return value, true, nil
		}
	}
	return nil, false, firstErr
}

func (c *MultiCache) promote(ctx context.Context, key string, value []byte, foundAt int) {
	for _, tier := range c.tiers[:foundAt] {
		_ = tier.Set(ctx, key, value, c.promotionTTL)
	}
}

// Set stores the value in all tiers with the same TTL, so each tier can
// apply its own eviction policy independently. The first error is
// returned after all tiers were attempted.
func (c *MultiCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var firstErr error
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, value, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
