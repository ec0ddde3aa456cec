package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	ruleEvaluations     *prometheus.CounterVec
	attachmentsRejected *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unipath_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unipath_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unipath_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		ruleEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unipath_rule_evaluations_total",
			Help: "Total number of derivation rule evaluations by kind.",
		}, []string{"rule"})

		attachmentsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unipath_attachments_rejected_total",
			Help: "Total number of thread attachments rejected by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, ruleEvaluations, attachmentsRejected)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RuleEvaluations exposes the counter for derivation rule evaluations.
func RuleEvaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return ruleEvaluations
}

// AttachmentRejected exposes the counter for rejected attachments.
func AttachmentRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentsRejected
}
