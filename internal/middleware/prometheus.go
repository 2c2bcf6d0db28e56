// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package middleware

import (
	"net/http"
	"time"

	"github.com/avelworks/pulsewatch/internal/metrics"
)

// PrometheusMetrics records request count and duration per route. The URL
// path is used as the route label; report routes have no path parameters so
// cardinality stays bounded.
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapper, r)

		metrics.ObserveHTTPRequest(r.URL.Path, r.Method, wrapper.statusCode, time.Since(start))
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
