// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APISuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_success_total",
			Help: "Total number of successful API invocations",
		},
		[]string{"api"},
	)

	APIFailure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_failure_total",
			Help: "Total number of failed API invocations",
		},
		[]string{"api"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API invocations",
		},
		[]string{"api"},
	)

	APIResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_response_time_ms",
			Help:    "API invocation wall-clock time in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"api"},
	)

	WorkflowProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_jobs_processed_total",
			Help: "Total number of job requests processed by the workflow consumer",
		},
		[]string{"workflow", "status"},
	)

	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "workflow_job_duration_seconds",
			Help: "Duration of job-request processing in seconds",
		},
		[]string{"workflow"},
	)

	CanarySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canary_success_total",
			Help: "Total number of successful canary runs",
		},
		[]string{"probe"},
	)

	CanaryFailure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canary_failure_total",
			Help: "Total number of failed canary runs",
		},
		[]string{"probe"},
	)

	CanaryResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canary_response_time_ms",
			Help:    "Canary run wall-clock time in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"probe"},
	)
)

// Sink is the narrow emission interface handed to the API invoker and the
// canary runner so tests can assert the per-invocation metrics invariant.
type Sink interface {
	IncSuccess(name string)
	IncFailure(name string)
	IncTotal(name string)
	ObserveLatency(name string, ms float64)
}

// PromSink emits to the package-level Prometheus vectors.
type PromSink struct{}

func (PromSink) IncSuccess(name string) { APISuccess.WithLabelValues(name).Inc() }
func (PromSink) IncFailure(name string) { APIFailure.WithLabelValues(name).Inc() }
func (PromSink) IncTotal(name string)   { APIRequests.WithLabelValues(name).Inc() }
func (PromSink) ObserveLatency(name string, ms float64) {
	APIResponseTime.WithLabelValues(name).Observe(ms)
}