package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lookup module.
type Metrics struct {
	// Adapter call latencies by source and result kind
	AdapterLatency *prometheus.HistogramVec

	// Search outcomes by kind (found, ambiguous, not_found) and cache hit
	SearchOutcome *prometheus.CounterVec

	// Overall search latency including cache and enrichment
	SearchLatency prometheus.Histogram

	// Cache lookups by result: hit, miss, error
	CacheLookups *prometheus.CounterVec

	// 1 while the cache is serving from its fallback store
	CacheDegraded prometheus.Gauge

	// Best-effort enrichment failures
	EnrichmentFailures prometheus.Counter

	// Audit events that could not be published
	AuditDropped prometheus.Counter
}

// New creates a new Metrics instance registered on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the lookup metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AdapterLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idsearch_adapter_duration_seconds",
			Help:    "Duration of identity source lookups by source and result",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8},
		}, []string{"source", "result"}),

		SearchOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idsearch_search_outcomes_total",
			Help: "Total searches by outcome and whether the cache answered",
		}, []string{"outcome", "cache"}),

		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idsearch_search_duration_seconds",
			Help:    "Duration of a full search including cache, dispatch and enrichment",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idsearch_cache_lookups_total",
			Help: "Result cache lookups by result",
		}, []string{"result"}),

		CacheDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idsearch_cache_degraded",
			Help: "Set to 1 while the result cache is serving from its fallback store",
		}),

		EnrichmentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "idsearch_enrichment_failures_total",
			Help: "Supplementary profile enrichment failures (swallowed)",
		}),

		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "idsearch_audit_events_dropped_total",
			Help: "Search audit events that could not be published",
		}),
	}
}

// ObserveAdapterLatency records the duration of one adapter call.
func (m *Metrics) ObserveAdapterLatency(source, result string, d time.Duration) {
	if m != nil {
		m.AdapterLatency.WithLabelValues(source, result).Observe(d.Seconds())
	}
}

// IncrementOutcome records a search outcome.
func (m *Metrics) IncrementOutcome(outcome string, cacheHit bool) {
	if m != nil {
		cache := "miss"
		if cacheHit {
			cache = "hit"
		}
		m.SearchOutcome.WithLabelValues(outcome, cache).Inc()
	}
}

// ObserveSearchLatency records the total search duration.
func (m *Metrics) ObserveSearchLatency(d time.Duration) {
	if m != nil {
		m.SearchLatency.Observe(d.Seconds())
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordCacheError records a cache lookup that failed and was treated as a miss.
func (m *Metrics) RecordCacheError() {
	if m != nil {
		m.CacheLookups.WithLabelValues("error").Inc()
	}
}

// SetCacheDegraded flips the degraded gauge.
func (m *Metrics) SetCacheDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.CacheDegraded.Set(1)
		return
	}
	m.CacheDegraded.Set(0)
}

// IncrementEnrichmentFailure records a swallowed enrichment failure.
func (m *Metrics) IncrementEnrichmentFailure() {
	if m != nil {
		m.EnrichmentFailures.Inc()
	}
}

// IncrementAuditDropped records an audit event that could not be published.
func (m *Metrics) IncrementAuditDropped() {
	if m != nil {
		m.AuditDropped.Inc()
	}
}
