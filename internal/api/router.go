// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelworks/pulsewatch/internal/config"
	"github.com/avelworks/pulsewatch/internal/logging"
	"github.com/avelworks/pulsewatch/internal/middleware"
)

// Router assembles the HTTP surface from the handler set and the middleware
// factories.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
	apiKey  string
}

// NewRouter creates a router from the server configuration.
func NewRouter(handler *Handler, cfg config.ServerConfig, apiKey string) *Router {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.RateLimitReqs,
		RateLimitWindow:    cfg.RateLimitWindow,
	})

	return &Router{
		handler: handler,
		mw:      mw,
		apiKey:  apiKey,
	}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	if router.apiKey == "" {
		logging.Warn().Msg("no API key configured; report endpoints are unauthenticated")
	}

	r := chi.NewRouter()

	// Global stack, applied to every route in order. CORS is global so
	// OPTIONS preflight works on all groups.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	// Health is unauthenticated with its own permissive limit, so monitors
	// keep probing even when the shared secret rotates.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(router.mw.RateLimitReports())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(APIKeyAuth(router.apiKey))

		r.Get("/alerts", router.handler.ReportAlerts)
		r.Get("/errors", router.handler.ReportErrors)
		r.Get("/performance", router.handler.ReportPerformance)
		r.Get("/retention", router.handler.ReportRetention)
		r.Get("/behavior", router.handler.ReportBehavior)
	})

	// Prometheus scrape endpoint, outside the API envelope.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
