package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	gradingRequestsTotal   *prometheus.CounterVec
	gradingLatencySeconds  *prometheus.HistogramVec
	gradingErrorsTotal     *prometheus.CounterVec
	periodRecomputesTotal  prometheus.Counter
	definitiveBatchesTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the
// grading API and engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		gradingLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_latency_seconds",
			Help:    "Latency distribution for grading API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		gradingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_errors_total",
			Help: "Total number of error responses returned by grading endpoints.",
		}, []string{"method", "route", "status"})

		periodRecomputesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_period_recomputes_total",
			Help: "Total number of period aggregate recomputations persisted.",
		})

		definitiveBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_definitive_batches_total",
			Help: "Total number of definitive grade batch runs completed.",
		})

		prometheus.MustRegister(
			gradingRequestsTotal,
			gradingLatencySeconds,
			gradingErrorsTotal,
			periodRecomputesTotal,
			definitiveBatchesTotal,
		)
	})
}

// GradingRequests exposes the counter for grading API requests.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingLatency exposes the latency histogram for grading API requests.
func GradingLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingLatencySeconds
}

// GradingErrors exposes the counter for grading error responses.
func GradingErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingErrorsTotal
}

// PeriodRecomputes exposes the counter for persisted recomputations.
func PeriodRecomputes() prometheus.Counter {
	RegisterMetrics()
	return periodRecomputesTotal
}

// DefinitiveBatches exposes the counter for definitive grade runs.
func DefinitiveBatches() prometheus.Counter {
	RegisterMetrics()
	return definitiveBatchesTotal
}
