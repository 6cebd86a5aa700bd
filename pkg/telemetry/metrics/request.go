package metrics

import (
	"mercator-hq/lifecycle/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks finished requests.
//
// Metrics:
//   - lifecycle_server_requests_total: requests by kind and category
//   - lifecycle_server_request_duration_seconds: request duration by kind
//   - lifecycle_server_failures_total: classified failures by category and code
//   - lifecycle_server_borrowed_objects: objects borrowed per request
//   - lifecycle_server_release_failures_total: objects a pool refused at teardown
//   - lifecycle_server_aborted_requests_total: requests aborted by their transport
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	failuresTotal   *prometheus.CounterVec
	borrowed        *prometheus.HistogramVec
	releaseFailures *prometheus.CounterVec
	aborted         *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests served, by outcome category",
			},
			[]string{"kind", "category"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of requests from activation to teardown in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"kind"},
		),

		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "failures_total",
				Help:      "Total number of classified request failures",
			},
			[]string{"category", "code"},
		),

		borrowed: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "borrowed_objects",
				Help:      "Number of pooled objects borrowed per request",
				Buckets:   cfg.BorrowedBuckets,
			},
			[]string{"kind"},
		),

		releaseFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "release_failures_total",
				Help:      "Total number of borrowed objects a pool refused at teardown",
			},
			[]string{"kind"},
		),

		aborted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "aborted_requests_total",
				Help:      "Total number of requests torn down by an abort",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.failuresTotal,
		rm.borrowed,
		rm.releaseFailures,
		rm.aborted,
	)

	return rm
}

// RecordRequest records one finished request.
func (rm *RequestMetrics) RecordRequest(kind, category string, seconds float64, borrowed, releaseFailures int, aborted bool) {
	rm.requestsTotal.WithLabelValues(kind, category).Inc()
	rm.requestDuration.WithLabelValues(kind).Observe(seconds)
	rm.borrowed.WithLabelValues(kind).Observe(float64(borrowed))

	if releaseFailures > 0 {
		rm.releaseFailures.WithLabelValues(kind).Add(float64(releaseFailures))
	}
	if aborted {
		rm.aborted.WithLabelValues(kind).Inc()
	}
}

// RecordFailure records one classified failure.
func (rm *RequestMetrics) RecordFailure(category, code string) {
	rm.failuresTotal.WithLabelValues(category, code).Inc()
}
