package observability

import (
	"time"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	analyses         *prometheus.CounterVec
	invalidations    prometheus.Counter
	eventsReceived   *prometheus.CounterVec
	aggregatedTxns   prometheus.Histogram
	creditsRemaining prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "financio_request_duration_seconds",
				Help:    "Duration of operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financio_external_errors_total",
				Help: "Total errors from the document store and the advisor function.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financio_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financio_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financio_ai_analyses_total",
				Help: "AI analysis runs by outcome.",
			},
			[]string{"outcome"},
		),
		invalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "financio_aggregation_invalidations_total",
				Help: "Cached aggregations dropped because of change events.",
			},
		),
		eventsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financio_change_events_total",
				Help: "Change events received by collection.",
			},
			[]string{"collection"},
		),
		aggregatedTxns: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "financio_aggregated_transactions",
				Help:    "Transactions folded into one dashboard computation.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		creditsRemaining: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "financio_credits_remaining",
				Help:    "Remaining AI credits observed after each run.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
	}
}

// Outcome labels for RecordAnalysis.
const (
	AnalysisCompleted = "completed"
	AnalysisFailed    = "failed"
	AnalysisDeclined  = "declined"
)

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordAnalysis counts one advisor run with its outcome.
func (m *Metrics) RecordAnalysis(outcome string, remaining int) {
	m.analyses.WithLabelValues(outcome).Inc()
	m.creditsRemaining.Observe(float64(remaining))
}

// IncrInvalidation counts one owner's aggregations being dropped.
func (m *Metrics) IncrInvalidation() {
	m.invalidations.Inc()
}

// IncrEvent counts a received change event.
func (m *Metrics) IncrEvent(collection string) {
	if collection == "" {
		collection = "unknown"
	}
	m.eventsReceived.WithLabelValues(collection).Inc()
}

// ObserveAggregated records how many transactions one dashboard folded.
func (m *Metrics) ObserveAggregated(n int) {
	m.aggregatedTxns.Observe(float64(n))
}

// GetAdvisorSnapshot returns a snapshot of advisor-related metrics suitable
// for the GET /v1/metrics/advisor endpoint.
func (m *Metrics) GetAdvisorSnapshot() *domain.AdvisorMetrics {
	completed := getCounterValue(m.analyses, AnalysisCompleted)
	failed := getCounterValue(m.analyses, AnalysisFailed)
	declined := getCounterValue(m.analyses, AnalysisDeclined)
	total := completed + failed + declined

	hits := getCounterValue(m.cacheHits, "dashboard")
	misses := getCounterValue(m.cacheMisses, "dashboard")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.AdvisorMetrics{
		TotalRuns:     int64(total),
		Completed:     int64(completed),
		Failed:        int64(failed),
		Declined:      int64(declined),
		ErrorRate:     errorRate,
		CacheHitRate:  cacheHitRate,
		Invalidations: int64(counterValue(m.invalidations)),
		Period:        "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
