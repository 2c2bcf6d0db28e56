// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package services

import (
	"context"
	"time"

	"github.com/avelworks/pulsewatch/internal/cache"
	"github.com/avelworks/pulsewatch/internal/logging"
)

// CacheJanitorService periodically sweeps expired entries out of the
// aggregation cache. Reads already evict lazily; the sweep keeps abandoned
// parameter combinations from lingering between reads.
type CacheJanitorService struct {
	cache    *cache.Cache
	interval time.Duration
	name     string
}

// NewCacheJanitorService creates the janitor with the given sweep interval.
func NewCacheJanitorService(c *cache.Cache, interval time.Duration) *CacheJanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheJanitorService{
		cache:    c,
		interval: interval,
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service.
func (j *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log := logging.WithComponent(j.name)
	log.Debug().Dur("interval", j.interval).Msg("cache janitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.cache.Cleanup()
			stats := j.cache.GetStats()
			log.Debug().
				Int64("keys", stats.TotalKeys).
				Int64("evictions", stats.Evictions).
				Msg("cache sweep completed")
		}
	}
}

// String implements fmt.Stringer; suture uses it in event logs.
func (j *CacheJanitorService) String() string {
	return j.name
}
