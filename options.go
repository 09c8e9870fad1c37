package respcache

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sandrolain/respcache/metrics"
)

// Option is a function that configures a Middleware.
// Use the With* functions to create Options.
type Option func(*Middleware) error

// WithMaximumCachedBodySize sets the per-response cap on the shadow
// buffer. Responses whose bodies exceed it forward normally but are not
// stored.
// Default: 1 MiB
func WithMaximumCachedBodySize(size int64) Option {
	return func(m *Middleware) error {
		if size <= 0 {
			return errors.New("maximum cached body size must be positive")
		}
		m.maxBodySize = size
		return nil
	}
}

// WithMinimumSplitBodySize sets the threshold above which a captured
// body is stored as its own entry instead of colocated with the
// response entry.
// Default: 70 KiB - 1
func WithMinimumSplitBodySize(size int64) Option {
	return func(m *Middleware) error {
		if size < 0 {
			return errors.New("minimum split body size cannot be negative")
		}
		m.minSplitBodySize = size
		return nil
	}
}

// WithDefaultExpiration sets the freshness lifetime used when a
// response carries no s-maxage, max-age or Expires.
// Default: 10 seconds
func WithDefaultExpiration(d time.Duration) Option {
	return func(m *Middleware) error {
		if d <= 0 {
			return errors.New("default expiration must be positive")
		}
		m.defaultExpiration = d
		return nil
	}
}

// WithClock injects the source of the current instant, replacing the
// system clock. Intended for tests.
func WithClock(clock Clock) Option {
	return func(m *Middleware) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		m.clock = clock
		return nil
	}
}

// WithKeyProvider replaces the default key derivation, e.g. to hedge
// lookups across alternate path normalizations.
func WithKeyProvider(p KeyProvider) Option {
	return func(m *Middleware) error {
		if p == nil {
			return errors.New("key provider cannot be nil")
		}
		m.keys = p
		return nil
	}
}

// WithPolicyProvider replaces the default cacheability and freshness
// rules.
func WithPolicyProvider(p PolicyProvider) Option {
	return func(m *Middleware) error {
		if p == nil {
			return errors.New("policy provider cannot be nil")
		}
		m.policy = p
		return nil
	}
}

// WithLogger sets a logger for this middleware instance, overriding the
// package logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) error {
		m.logger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector.
// Default: metrics.NoOpCollector
func WithMetricsCollector(c metrics.Collector) Option {
	return func(m *Middleware) error {
		if c == nil {
			return errors.New("metrics collector cannot be nil")
		}
		m.collector = c
		return nil
	}
}
