// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package analytics implements the report computations: cohort retention,
// rolling baselines, alert classification input, error/performance
// aggregation, and behavior insights, all derived from one scan of the
// counter store and memoized through the aggregation cache.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/avelworks/pulsewatch/internal/alerts"
	"github.com/avelworks/pulsewatch/internal/cache"
	"github.com/avelworks/pulsewatch/internal/config"
	"github.com/avelworks/pulsewatch/internal/logging"
	"github.com/avelworks/pulsewatch/internal/metrics"
	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/store"
)

// ErrCacheMiss is returned by cached-only reads when no live entry exists.
// It is not an error on the default path; there it just triggers computation.
var ErrCacheMiss = errors.New("no cached report available")

// Service computes and serves the reports. The cache is the only state shared
// between requests; everything else is derived per computation.
type Service struct {
	store   store.Store
	cache   *cache.Cache
	cfg     config.ReportsConfig
	ttls    config.CacheConfig
	limiter *rate.Limiter
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the report engine. eventFetchRate bounds failure-event
// sub-queries per second across all concurrent workers; 0 disables the limit.
func NewService(st store.Store, c *cache.Cache, cfg config.ReportsConfig, ttls config.CacheConfig, eventFetchRate int, opts ...Option) *Service {
	s := &Service{
		store: st,
		cache: c,
		cfg:   cfg,
		ttls:  ttls,
		now:   time.Now,
	}
	if eventFetchRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(eventFetchRate), eventFetchRate)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheStats exposes the aggregation cache counters for the health payload.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

// boundedCtx derives the computation deadline. A stalled store read fails the
// whole report inside the bound instead of hanging the request.
func (s *Service) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ComputeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.ComputeTimeout)
}

// Alerts computes the alerts report: five baseline comparisons and the
// classified alert list.
func (s *Service) Alerts(ctx context.Context, cachedOnly bool) (models.AlertsReport, error) {
	key := cache.GenerateKey("alerts", struct{}{})
	if entry, ok := s.cache.Get(key); ok {
		if report, ok := entry.Data.(models.AlertsReport); ok {
			metrics.CacheLookups.WithLabelValues("alerts", "hit").Inc()
			report.Cached = true
			return report, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("alerts", "miss").Inc()
	if cachedOnly {
		return models.AlertsReport{}, ErrCacheMiss
	}

	started := s.now()
	cctx, cancel := s.boundedCtx(ctx)
	defer cancel()
	report, err := s.computeAlerts(cctx)
	metrics.ObserveReportComputation("alerts", s.now().Sub(started), err)
	if err != nil {
		return models.AlertsReport{}, err
	}

	s.cache.SetWithTTL(key, report, s.ttls.AlertsTTL)
	return report, nil
}

func (s *Service) computeAlerts(ctx context.Context) (models.AlertsReport, error) {
	now := s.now()

	scan, err := s.scan(ctx)
	if err != nil {
		return models.AlertsReport{}, err
	}

	tallies := TallyEngagement(scan.Records, now)
	daily, weekly, newUsers := tallies.Comparisons()

	fetches, err := s.fetchFailureEvents(ctx, scan.Records,
		[]models.FailureCategory{models.FailureVoice, models.FailureGeneric})
	if err != nil {
		return models.AlertsReport{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	windows := TallySpikeWindows(fetches, now)
	voice := Compare("voice_failures", float64(windows.VoiceCurrent), 1, float64(windows.VoiceBaseline), 6)
	policy := Compare("policy_violations", float64(windows.PolicyCurrent), 1, float64(windows.PolicyBaseline), 6)

	classified := alerts.Classify(alerts.Input{
		VoiceFailures:        voice,
		PolicyViolations:     policy,
		DailyEngagement:      daily,
		WeeklyEngagement:     weekly,
		NewUsers:             newUsers,
		VoiceFailureUsers:    windows.VoiceCurrentUsers,
		PolicyViolationUsers: windows.PolicyCurrentUsers,
		Now:                  now,
	})

	logging.Ctx(ctx).Info().
		Int("alerts", len(classified)).
		Int("users", len(scan.Records)).
		Msg("alerts report computed")

	return models.AlertsReport{
		Alerts:      classified,
		Comparisons: []models.BaselineComparison{voice, policy, daily, weekly, newUsers},
		GeneratedAt: now,
	}, nil
}

// ErrorsParams filters the errors report.
type ErrorsParams struct {
	Days     int                    `json:"days"`
	Category models.FailureCategory `json:"category"`
}

// Errors computes the error-type aggregation over a trailing day window,
// optionally restricted to one failure category.
func (s *Service) Errors(ctx context.Context, params ErrorsParams, cachedOnly bool) (models.ErrorsReport, error) {
	if params.Days <= 0 {
		params.Days = s.cfg.ErrorsDays
	}

	key := cache.GenerateKey("errors", params)
	if entry, ok := s.cache.Get(key); ok {
		if report, ok := entry.Data.(models.ErrorsReport); ok {
			metrics.CacheLookups.WithLabelValues("errors", "hit").Inc()
			report.Cached = true
			return report, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("errors", "miss").Inc()
	if cachedOnly {
		return models.ErrorsReport{}, ErrCacheMiss
	}

	started := s.now()
	cctx, cancel := s.boundedCtx(ctx)
	defer cancel()
	report, err := s.computeErrors(cctx, params)
	metrics.ObserveReportComputation("errors", s.now().Sub(started), err)
	if err != nil {
		return models.ErrorsReport{}, err
	}

	s.cache.SetWithTTL(key, report, s.ttls.ErrorsTTL)
	return report, nil
}

func (s *Service) computeErrors(ctx context.Context, params ErrorsParams) (models.ErrorsReport, error) {
	now := s.now()

	scan, err := s.scan(ctx)
	if err != nil {
		return models.ErrorsReport{}, err
	}

	categories := []models.FailureCategory{models.FailureVoice, models.FailureImage, models.FailureGeneric}
	if params.Category != "" {
		categories = []models.FailureCategory{params.Category}
	}

	fetches, err := s.fetchFailureEvents(ctx, scan.Records, categories)
	if err != nil {
		return models.ErrorsReport{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	summaries, total := AggregateErrorTypes(fetches, now, params.Days)
	return models.ErrorsReport{
		Types:        summaries,
		TotalEvents:  total,
		UsersScanned: len(scan.Records),
		DaysWindow:   params.Days,
		GeneratedAt:  now,
	}, nil
}

// Performance computes the most-affected-users view from lifetime counters.
func (s *Service) Performance(ctx context.Context, cachedOnly bool) (models.PerformanceReport, error) {
	key := cache.GenerateKey("performance", struct{}{})
	if entry, ok := s.cache.Get(key); ok {
		if report, ok := entry.Data.(models.PerformanceReport); ok {
			metrics.CacheLookups.WithLabelValues("performance", "hit").Inc()
			report.Cached = true
			return report, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("performance", "miss").Inc()
	if cachedOnly {
		return models.PerformanceReport{}, ErrCacheMiss
	}

	started := s.now()
	cctx, cancel := s.boundedCtx(ctx)
	defer cancel()
	scan, err := s.scan(cctx)
	metrics.ObserveReportComputation("performance", s.now().Sub(started), err)
	if err != nil {
		return models.PerformanceReport{}, err
	}

	affected, totalErrors, usersWithAny := MostAffectedUsers(scan.Records, s.cfg.TopAffectedUsers)
	report := models.PerformanceReport{
		MostAffected: affected,
		TotalErrors:  totalErrors,
		UsersWithAny: usersWithAny,
		GeneratedAt:  s.now(),
	}

	s.cache.SetWithTTL(key, report, s.ttls.PerformanceTTL)
	return report, nil
}

// RetentionParams filters the retention report.
type RetentionParams struct {
	Weeks int `json:"weeks"`
}

// Retention computes the cohort retention report over a trailing week window.
func (s *Service) Retention(ctx context.Context, params RetentionParams, cachedOnly bool) (models.RetentionReport, error) {
	if params.Weeks <= 0 {
		params.Weeks = s.cfg.RetentionWeeks
	}

	key := cache.GenerateKey("retention", params)
	if entry, ok := s.cache.Get(key); ok {
		if report, ok := entry.Data.(models.RetentionReport); ok {
			metrics.CacheLookups.WithLabelValues("retention", "hit").Inc()
			report.Cached = true
			return report, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("retention", "miss").Inc()
	if cachedOnly {
		return models.RetentionReport{}, ErrCacheMiss
	}

	started := s.now()
	cctx, cancel := s.boundedCtx(ctx)
	defer cancel()
	scan, err := s.scan(cctx)
	metrics.ObserveReportComputation("retention", s.now().Sub(started), err)
	if err != nil {
		return models.RetentionReport{}, err
	}

	now := s.now()
	cohorts := BuildCohorts(scan.Records, now, params.Weeks)
	report := models.RetentionReport{
		Cohorts:     cohorts,
		Summary:     SummarizeCohorts(cohorts),
		WeeksWindow: params.Weeks,
		GeneratedAt: now,
	}

	s.cache.SetWithTTL(key, report, s.ttls.RetentionTTL)
	return report, nil
}

// Behavior computes the engagement/behavior-insight report.
func (s *Service) Behavior(ctx context.Context, cachedOnly bool) (models.BehaviorReport, error) {
	key := cache.GenerateKey("behavior", struct{}{})
	if entry, ok := s.cache.Get(key); ok {
		if report, ok := entry.Data.(models.BehaviorReport); ok {
			metrics.CacheLookups.WithLabelValues("behavior", "hit").Inc()
			report.Cached = true
			return report, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("behavior", "miss").Inc()
	if cachedOnly {
		return models.BehaviorReport{}, ErrCacheMiss
	}

	started := s.now()
	cctx, cancel := s.boundedCtx(ctx)
	defer cancel()
	scan, err := s.scan(cctx)
	metrics.ObserveReportComputation("behavior", s.now().Sub(started), err)
	if err != nil {
		return models.BehaviorReport{}, err
	}

	report := BuildBehaviorReport(scan.Records, s.now())
	s.cache.SetWithTTL(key, report, s.ttls.BehaviorTTL)
	return report, nil
}

// scan wraps ScanUsers with the scan metrics.
func (s *Service) scan(ctx context.Context) (*ScanResult, error) {
	result, err := ScanUsers(ctx, s.store)
	if err != nil {
		return nil, err
	}
	metrics.ScanRecords.WithLabelValues("ok").Add(float64(len(result.Records)))
	metrics.ScanRecords.WithLabelValues("malformed").Add(float64(result.Malformed))
	return result, nil
}
