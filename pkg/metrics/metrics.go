// Package metrics exposes process-level Prometheus instrumentation,
// separate from the simulation domain's own dataFreshness/confidence
// fields: these gauges and counters describe the HTTP and worker
// layers, not the simulation math.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictive_analysis_requests_total",
			Help: "Total number of HTTP requests handled, by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictive_analysis_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	PollSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predictive_analysis_poll_success_total",
			Help: "Total number of successful telemetry poll cycles",
		},
	)

	PollFailureTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predictive_analysis_poll_failure_total",
			Help: "Total number of failed telemetry poll cycles",
		},
	)

	PollLastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictive_analysis_poll_last_success_timestamp_seconds",
			Help: "Unix timestamp of the most recent successful telemetry poll cycle",
		},
	)
)
