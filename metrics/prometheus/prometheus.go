// Package prometheus provides a Prometheus metrics.Collector for
// respcache. This package is optional and only imported when Prometheus
// metrics are needed.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	requests     *prometheus.CounterVec
	cacheOps     *prometheus.CounterVec
	cacheOpTime  *prometheus.HistogramVec
	responseSize *prometheus.CounterVec
}

// CollectorConfig provides configuration options for the Prometheus
// collector.
type CollectorConfig struct {
	// Registry is the Prometheus registry to use. If nil, uses
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace for metrics (default: "respcache").
	Namespace string

	// Subsystem for metrics (optional).
	Subsystem string

	// ConstLabels are labels added to all metrics.
	ConstLabels prometheus.Labels
}

// NewCollector creates a Collector with the default registry and
// configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(CollectorConfig{})
}

// NewCollectorWithConfig creates a Collector with custom configuration.
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "respcache"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "requests_total",
				Help:        "Requests through the caching middleware",
				ConstLabels: config.ConstLabels,
			},
			[]string{"method", "cache_status", "code"},
		),
		cacheOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_operations_total",
				Help:        "Cache store operations by result",
				ConstLabels: config.ConstLabels,
			},
			[]string{"operation", "result"},
		),
		cacheOpTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_operation_duration_seconds",
				Help:        "Duration of cache store operations",
				Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
				ConstLabels: config.ConstLabels,
			},
			[]string{"operation"},
		),
		responseSize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "response_body_bytes_total",
				Help:        "Body bytes served from cache or captured for storage",
				ConstLabels: config.ConstLabels,
			},
			[]string{"cache_status"},
		),
	}
}

// RecordRequest implements metrics.Collector.
func (c *Collector) RecordRequest(method, cacheStatus string, statusCode int) {
	code := ""
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	c.requests.WithLabelValues(method, cacheStatus, code).Inc()
}

// RecordCacheOperation implements metrics.Collector.
func (c *Collector) RecordCacheOperation(operation, result string, duration time.Duration) {
	c.cacheOps.WithLabelValues(operation, result).Inc()
	c.cacheOpTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordResponseSize implements metrics.Collector.
func (c *Collector) RecordResponseSize(cacheStatus string, sizeBytes int64) {
	c.responseSize.WithLabelValues(cacheStatus).Add(float64(sizeBytes))
}
