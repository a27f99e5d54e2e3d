// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/oracle"
)

const namespace = "clauseguard"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	oracleCalls    *prometheus.CounterVec
	oracleRetries  *prometheus.CounterVec
	oracleAttempts *prometheus.HistogramVec
	oracleLatency  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	analyses       *prometheus.CounterVec
	analysisTime   prometheus.Histogram
	questions      prometheus.Counter
}

var _ dispatch.Recorder = (*Metrics)(nil)

// New registers every collector on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Oracle calls by operation and result.",
		}, []string{"operation", "result"}),
		oracleRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_retries_total",
			Help:      "Oracle attempts that failed and were retried.",
		}, []string{"operation"}),
		oracleAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_attempts",
			Help:      "Attempts used per oracle call.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"operation"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Oracle call duration including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Verdict cache lookups by result.",
		}, []string{"result"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Policy analyses by outcome.",
		}, []string{"outcome"}),
		analysisTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end policy analysis duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		questions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "NDPA questions answered.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.oracleCalls,
		m.oracleRetries,
		m.oracleAttempts,
		m.oracleLatency,
		m.cacheLookups,
		m.analyses,
		m.analysisTime,
		m.questions,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOracleCall implements dispatch.Recorder.
func (m *Metrics) ObserveOracleCall(operation string, attempts int, elapsed time.Duration, err error) {
	m.oracleCalls.WithLabelValues(operation, callResult(err)).Inc()
	m.oracleAttempts.WithLabelValues(operation).Observe(float64(attempts))
	m.oracleLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveOracleRetry implements dispatch.Recorder.
func (m *Metrics) ObserveOracleRetry(operation string) {
	m.oracleRetries.WithLabelValues(operation).Inc()
}

// ObserveCacheLookup counts a verdict cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveAnalysis records one finished analysis. outcome is "ok", "cached"
// or a terminal outcome code.
func (m *Metrics) ObserveAnalysis(outcome string, elapsed time.Duration) {
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisTime.Observe(elapsed.Seconds())
}

// ObserveQuestion counts one answered question.
func (m *Metrics) ObserveQuestion() {
	m.questions.Inc()
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case oracle.IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}
