// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetReturnsExactPayloadWithinTTL(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	payload := map[string]int{"alerts": 3}
	c.Set("reports:alerts", payload)

	clock.Advance(4 * time.Minute)

	entry, ok := c.Get("reports:alerts")
	if !ok {
		t.Fatal("expected hit within TTL")
	}
	got, ok := entry.Data.(map[string]int)
	if !ok || got["alerts"] != 3 {
		t.Errorf("payload changed in cache: %v", entry.Data)
	}
}

func TestGetAfterTTLSignalsMiss(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	c.Set("reports:retention", "payload")
	clock.Advance(5*time.Minute + time.Second)

	if _, ok := c.Get("reports:retention"); ok {
		t.Error("expected miss after TTL elapsed")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestSetWithTTLOverridesDefault(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	c.SetWithTTL("reports:behavior", "payload", time.Hour)
	clock.Advance(30 * time.Minute)

	if _, ok := c.Get("reports:behavior"); !ok {
		t.Error("entry with 1h TTL should survive 30m")
	}

	clock.Advance(31 * time.Minute)
	if _, ok := c.Get("reports:behavior"); ok {
		t.Error("entry should expire after its explicit TTL")
	}
}

func TestSetOverwritesUnconditionally(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	c.Set("key", "old")
	clock.Advance(time.Minute)
	c.Set("key", "new")

	entry, ok := c.Get("key")
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Data != "new" {
		t.Errorf("expected overwrite, got %v", entry.Data)
	}
	if !entry.ComputedAt.Equal(clock.Now()) {
		t.Errorf("ComputedAt should be refreshed on overwrite")
	}
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	c.Set("stale", 1)
	clock.Advance(4 * time.Minute)
	c.Set("fresh", 2)
	clock.Advance(2 * time.Minute) // stale is 6m old, fresh 2m

	c.Cleanup()

	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive cleanup")
	}
	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("expected 1 key after cleanup, got %d", stats.TotalKeys)
	}
}

func TestHitRate(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	c.Set("key", 1)
	c.Get("key")
	c.Get("key")
	c.Get("missing")

	if rate := c.HitRate(); rate < 66.0 || rate > 67.0 {
		t.Errorf("expected ~66.7%% hit rate, got %.2f", rate)
	}
}

func TestGenerateKeyIsDeterministicAndParamSensitive(t *testing.T) {

	type params struct {
		Days     int    `json:"days"`
		Category string `json:"category"`
	}

	k1 := GenerateKey("reports:errors", params{Days: 7, Category: "voice"})
	k2 := GenerateKey("reports:errors", params{Days: 7, Category: "voice"})
	k3 := GenerateKey("reports:errors", params{Days: 30, Category: "voice"})

	if k1 != k2 {
		t.Errorf("same params should produce same key: %s vs %s", k1, k2)
	}
	if k1 == k3 {
		t.Error("different params should produce different keys")
	}
}

func TestGetKeepsEntryRefreshedDuringEviction(t *testing.T) {

	// Interleave a Set between Get's expiry check and its eviction lock by
	// hooking the injected clock: the second clock call is Get's expiry
	// check, which runs with no lock held.
	t0 := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	var c *Cache
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 2 {
			c.SetWithTTL("report", "fresh", time.Hour)
		}
		if calls == 1 {
			return t0
		}
		return t0.Add(2 * time.Minute)
	}
	c = New(time.Minute, WithClock(clock))

	c.Set("report", "stale") // expires t0+1m; looks expired at t0+2m

	entry, ok := c.Get("report")
	if !ok {
		t.Fatal("expected the concurrently refreshed entry, got a miss")
	}
	if entry.Data != "fresh" {
		t.Errorf("Get returned %v, want the refreshed payload", entry.Data)
	}

	// The refreshed entry must still be present for subsequent reads.
	if entry, ok = c.Get("report"); !ok || entry.Data != "fresh" {
		t.Errorf("follow-up Get = (%v, %v), want the refreshed payload", entry.Data, ok)
	}
	if evictions := c.GetStats().Evictions; evictions != 0 {
		t.Errorf("evictions = %d, want 0", evictions)
	}
}

func TestConcurrentAccess(t *testing.T) {

	clock := newFakeClock()
	c := New(5*time.Minute, WithClock(clock.Now))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n)
				c.Get("shared")
			}
		}(i)
	}
	wg.Wait()

	if _, ok := c.Get("shared"); !ok {
		t.Error("expected entry to exist after concurrent writes")
	}
}
