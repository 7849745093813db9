// Package metrics holds the Prometheus instruments of the record store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics groups the store instruments.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	CacheHits  *prometheus.CounterVec
}

// New creates the instruments and registers them on reg. A nil reg skips
// registration, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lepidoptera",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation, collection and outcome.",
		}, []string{"operation", "collection", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lepidoptera",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "collection"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lepidoptera",
			Subsystem: "store",
			Name:      "cache_lookups_total",
			Help:      "Record cache lookups by collection and result.",
		}, []string{"collection", "result"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Operations, m.Duration, m.CacheHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one finished operation. Safe on a nil receiver.
func (m *Metrics) Observe(operation, collection, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, collection, outcome).Inc()
	m.Duration.WithLabelValues(operation, collection).Observe(time.Since(started).Seconds())
}

// CacheLookup records a cache hit or miss. Safe on a nil receiver.
func (m *Metrics) CacheLookup(collection string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHits.WithLabelValues(collection, result).Inc()
}
