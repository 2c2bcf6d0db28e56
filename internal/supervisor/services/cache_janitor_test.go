// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelworks/pulsewatch/internal/cache"
)

func TestCacheJanitorSweepsExpiredEntries(t *testing.T) {

	c := cache.New(time.Millisecond)
	c.Set("stale", "payload")

	svc := NewCacheJanitorService(c, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if c.GetStats().TotalKeys == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("janitor never swept the expired entry")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}

func TestCacheJanitorDefaultsInterval(t *testing.T) {

	svc := NewCacheJanitorService(cache.New(time.Minute), 0)
	if svc.interval != 5*time.Minute {
		t.Errorf("interval = %v, want the 5m default", svc.interval)
	}
	if svc.String() != "cache-janitor" {
		t.Errorf("String() = %q", svc.String())
	}
}
