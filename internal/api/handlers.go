// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avelworks/pulsewatch/internal/analytics"
	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/store"
	"github.com/avelworks/pulsewatch/internal/validation"
)

// Handler serves the report and health endpoints.
type Handler struct {
	svc       *analytics.Service
	store     store.Store
	version   string
	startTime time.Time
}

// NewHandler creates the endpoint handler set.
func NewHandler(svc *analytics.Service, st store.Store, version string) *Handler {
	return &Handler{
		svc:       svc,
		store:     st,
		version:   version,
		startTime: time.Now(),
	}
}

// errorsQuery carries the parsed query parameters of the errors report.
// Zero values mean "absent"; the analytics service fills configured defaults.
type errorsQuery struct {
	Days     int    `validate:"omitempty,min=1,max=90"`
	Category string `validate:"omitempty,oneof=voice image generic"`
}

// retentionQuery carries the parsed query parameters of the retention report.
type retentionQuery struct {
	Weeks int `validate:"omitempty,min=1,max=52"`
}

// ReportAlerts serves GET /api/v1/reports/alerts.
func (h *Handler) ReportAlerts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.svc.Alerts(r.Context(), cachedOnly(r))
	if err != nil {
		h.respondReportError(rw, err)
		return
	}
	rw.Success(report)
}

// ReportErrors serves GET /api/v1/reports/errors?days=N&category=C.
func (h *Handler) ReportErrors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var query errorsQuery
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("days must be an integer")
			return
		}
		query.Days = days
	}
	query.Category = r.URL.Query().Get("category")

	if verr := validation.ValidateStruct(&query); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	params := analytics.ErrorsParams{
		Days:     query.Days,
		Category: models.FailureCategory(query.Category),
	}
	report, err := h.svc.Errors(r.Context(), params, cachedOnly(r))
	if err != nil {
		h.respondReportError(rw, err)
		return
	}
	rw.Success(report)
}

// ReportPerformance serves GET /api/v1/reports/performance.
func (h *Handler) ReportPerformance(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.svc.Performance(r.Context(), cachedOnly(r))
	if err != nil {
		h.respondReportError(rw, err)
		return
	}
	rw.Success(report)
}

// ReportRetention serves GET /api/v1/reports/retention?weeks=N.
func (h *Handler) ReportRetention(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var query retentionQuery
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		weeks, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("weeks must be an integer")
			return
		}
		query.Weeks = weeks
	}

	if verr := validation.ValidateStruct(&query); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	report, err := h.svc.Retention(r.Context(), analytics.RetentionParams{Weeks: query.Weeks}, cachedOnly(r))
	if err != nil {
		h.respondReportError(rw, err)
		return
	}
	rw.Success(report)
}

// ReportBehavior serves GET /api/v1/reports/behavior.
func (h *Handler) ReportBehavior(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.svc.Behavior(r.Context(), cachedOnly(r))
	if err != nil {
		h.respondReportError(rw, err)
		return
	}
	rw.Success(report)
}

// cachedOnly reads the ?cached_only=true flag shared by all report routes.
func cachedOnly(r *http.Request) bool {
	return r.URL.Query().Get("cached_only") == "true"
}

// respondReportError maps service errors to API responses. Cached-only
// misses are a 404, store failures a 503; anything else is internal.
func (h *Handler) respondReportError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrCacheMiss):
		rw.NotFound(ErrCodeCacheMiss, "No cached report available")
	case errors.Is(err, store.ErrUnavailable):
		rw.StoreUnavailable(err)
	default:
		rw.InternalError("Report computation failed")
	}
}
