// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package metrics registers the Prometheus instrumentation: HTTP throughput
// and latency, report computation cost, scan volume, and cache efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsewatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Report computation metrics.
	ReportComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_report_computations_total",
			Help: "Report computations by report type and outcome",
		},
		[]string{"report", "outcome"}, // outcome: ok, error
	)

	ReportComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsewatch_report_compute_duration_seconds",
			Help:    "Uncached report computation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"report"},
	)

	// Scan metrics.
	ScanRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_scan_records_total",
			Help: "Counter documents seen during scans, by parse outcome",
		},
		[]string{"outcome"}, // ok, malformed
	)

	// Cache metrics.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewatch_cache_lookups_total",
			Help: "Aggregation cache lookups by result",
		},
		[]string{"report", "result"}, // hit, miss
	)
)

// ObserveHTTPRequest records one completed request.
func ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveReportComputation records the cost and outcome of one uncached
// report computation.
func ObserveReportComputation(report string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ReportComputations.WithLabelValues(report, outcome).Inc()
	if err == nil {
		ReportComputeDuration.WithLabelValues(report).Observe(duration.Seconds())
	}
}
