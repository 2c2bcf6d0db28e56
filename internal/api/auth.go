// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/avelworks/pulsewatch/internal/logging"
)

// APIKeyAuth guards the report endpoints with a shared-secret header.
// An empty configured key disables authentication; the router logs a
// warning at setup time when running open.
//
// Comparison is constant-time so the key cannot be probed byte by byte.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				logging.Ctx(r.Context()).Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("rejected request with missing or invalid API key")
				NewResponseWriter(w, r).Unauthorized("Missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
