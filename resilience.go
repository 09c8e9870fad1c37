package respcache

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ResilientCache decorates a Cache with failsafe policies. A flaky
// backend then degrades to misses faster and stops being hammered once
// its circuit opens, instead of stretching every request by a full
// backend timeout.
type ResilientCache struct {
	cache    Cache
	executor failsafe.Executor[[]byte]
}

// ResilienceConfig holds the policies applied to store operations.
// Both are optional; a zero config decorates with nothing.
type ResilienceConfig struct {
	// RetryPolicy configures retry behavior using failsafe-go.
	// If nil, retry is disabled.
	RetryPolicy retrypolicy.RetryPolicy[[]byte]

	// CircuitBreaker configures circuit breaker behavior using
	// failsafe-go. If nil, the circuit breaker is disabled.
	CircuitBreaker circuitbreaker.CircuitBreaker[[]byte]
}

// RetryPolicyBuilder returns a retry policy builder preconfigured for
// store operations: up to 2 retries with exponential backoff from 5ms
// to 100ms. Customize further before calling Build().
func RetryPolicyBuilder() retrypolicy.Builder[[]byte] {
	return retrypolicy.NewBuilder[[]byte]().
		WithMaxRetries(2).
		WithBackoff(5*time.Millisecond, 100*time.Millisecond)
}

// CircuitBreakerBuilder returns a circuit breaker builder preconfigured
// for store operations: the circuit opens after 5 consecutive failures,
// probes again after 10 seconds and closes after 2 successes.
func CircuitBreakerBuilder() circuitbreaker.Builder[[]byte] {
	return circuitbreaker.NewBuilder[[]byte]().
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(10 * time.Second)
}

// NewResilientCache wraps cache with the given policies.
func NewResilientCache(cache Cache, config ResilienceConfig) *ResilientCache {
	var policies []failsafe.Policy[[]byte]
	if config.RetryPolicy != nil {
		policies = append(policies, config.RetryPolicy)
	}
	if config.CircuitBreaker != nil {
		policies = append(policies, config.CircuitBreaker)
	}

	rc := &ResilientCache{cache: cache}
	if len(policies) > 0 {
		rc.executor = failsafe.With(policies...)
	}
	return rc
}

// Get fetches through the configured policies. An open circuit surfaces
// as an error, which the middleware treats as a miss.
func (c *ResilientCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.executor == nil {
		return c.cache.Get(ctx, key)
	}
	var found bool
	value, err := c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		v, ok, err := c.cache.Get(ctx, key)
		found = ok
		return v, err
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Set stores through the configured policies.
func (c *ResilientCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.executor == nil {
		return c.cache.Set(ctx, key, value, ttl)
	}
	return c.executor.WithContext(ctx).Run(func() error {
		return c.cache.Set(ctx, key, value, ttl)
	})
}
