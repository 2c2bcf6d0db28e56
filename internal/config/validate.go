// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package config

import (
	"errors"
	"fmt"
)

// Validate checks the resolved configuration for values that would make the
// process misbehave at runtime rather than fail at startup.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStore,
		c.validateCache,
		c.validateReports,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.RateLimitReqs < 0 {
		return errors.New("server.rate_limit_reqs must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return errors.New("store.path required unless store.in_memory is set")
	}
	if c.Store.BreakerMaxFailures == 0 {
		return errors.New("store.breaker_max_failures must be at least 1")
	}
	if c.Store.EventFetchRate < 0 {
		return errors.New("store.event_fetch_rate must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	ttls := map[string]int64{
		"cache.alerts_ttl":      int64(c.Cache.AlertsTTL),
		"cache.errors_ttl":      int64(c.Cache.ErrorsTTL),
		"cache.performance_ttl": int64(c.Cache.PerformanceTTL),
		"cache.retention_ttl":   int64(c.Cache.RetentionTTL),
		"cache.behavior_ttl":    int64(c.Cache.BehaviorTTL),
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Cache.CleanupInterval <= 0 {
		return errors.New("cache.cleanup_interval must be positive")
	}
	return nil
}

func (c *Config) validateReports() error {
	if c.Reports.RetentionWeeks < 1 {
		return errors.New("reports.retention_weeks must be at least 1")
	}
	if c.Reports.ErrorsDays < 1 {
		return errors.New("reports.errors_days must be at least 1")
	}
	if c.Reports.FanoutConcurrency < 1 {
		return errors.New("reports.fanout_concurrency must be at least 1")
	}
	if c.Reports.EventFetchLimit < 1 {
		return errors.New("reports.event_fetch_limit must be at least 1")
	}
	if c.Reports.TopAffectedUsers < 1 {
		return errors.New("reports.top_affected_users must be at least 1")
	}
	if c.Reports.ComputeTimeout < 0 {
		return errors.New("reports.compute_timeout must not be negative")
	}
	return nil
}
