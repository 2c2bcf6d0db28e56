// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status         string     `json:"status"` // healthy, degraded
	Version        string     `json:"version"`
	StoreConnected bool       `json:"store_connected"`
	TrackedUsers   int        `json:"tracked_users"`
	UptimeSeconds  float64    `json:"uptime_seconds"`
	Cache          CacheStats `json:"cache"`
}

// CacheStats surfaces the aggregation cache counters.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	TotalKeys int64 `json:"total_keys"`
}

// Health serves GET /api/v1/health: liveness plus a store ping. The store
// ping is bounded so a wedged store degrades the status instead of hanging
// the probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	storeConnected := true
	users, err := h.store.CountUsers(ctx)
	if err != nil {
		status = "degraded"
		storeConnected = false
		users = 0
	}

	stats := h.svc.CacheStats()
	payload := HealthStatus{
		Status:         status,
		Version:        h.version,
		StoreConnected: storeConnected,
		TrackedUsers:   users,
		UptimeSeconds:  time.Since(h.startTime).Seconds(),
		Cache: CacheStats{
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Evictions: stats.Evictions,
			TotalKeys: stats.TotalKeys,
		},
	}

	WriteSuccess(w, r, payload)
}
