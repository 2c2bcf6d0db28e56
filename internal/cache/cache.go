// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package cache provides the aggregation cache: a thread-safe in-memory
// key -> (payload, computedAt) store with per-entry TTLs.
//
// This is a soft performance cache, not a source of truth. Entries are
// invalidated purely by elapsed time, the whole cache is lost on process
// restart, and there is no single-flight lock: two concurrent misses for the
// same key both recompute, which is acceptable because report computation is
// idempotent.
//
// The clock is injectable so tests can expire entries without sleeping.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Entry is a cached payload with its expiry and computation time.
type Entry struct {
	Data       interface{}
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// Cache is a thread-safe in-memory TTL cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a snapshot of the cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the given default TTL. Entries set via Set expire
// after the default; SetWithTTL overrides per entry.
//
// Unlike an LRU, nothing bounds the key count: key cardinality is the fixed
// set of report types crossed with their few parameter combinations.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached entry. Expired entries are removed and reported as
// misses. The second return is true only for a live entry.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return Entry{}, false
	}

	if c.now().After(entry.ExpiresAt) {
		// Re-check under the write lock: a concurrent Set may have replaced
		// the entry since the read, and a fresh entry must not be evicted.
		c.mu.Lock()
		current, ok := c.entries[key]
		if ok && c.now().After(current.ExpiresAt) {
			delete(c.entries, key)
			c.mu.Unlock()
			c.recordMiss()
			c.recordEviction()
			return Entry{}, false
		}
		c.mu.Unlock()

		if ok {
			c.recordHit()
			return current, true
		}
		c.recordMiss()
		return Entry{}, false
	}

	c.recordHit()
	return entry, true
}

// Set stores a payload under the default TTL, overwriting unconditionally.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a payload with an explicit TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:       value,
		ComputedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.TotalKeys = total
	c.statsMu.Unlock()
}

// Delete removes a single entry. Safe to call for missing keys.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.recordEviction()
}

// Clear drops every entry in one operation.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = 0
	c.statsMu.Unlock()
}

// Cleanup removes all expired entries. The supervisor runs this periodically
// so abandoned keys don't accumulate between reads.
func (c *Cache) Cleanup() {
	now := c.now()

	c.mu.Lock()
	evictions := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = total
	c.statsMu.Unlock()
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	return Stats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Evictions: c.stats.Evictions,
		TotalKeys: c.stats.TotalKeys,
	}
}

// HitRate returns the hit percentage over all lookups so far.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

func (c *Cache) recordEviction() {
	c.statsMu.Lock()
	c.stats.Evictions++
	c.statsMu.Unlock()
}

// GenerateKey builds a cache key from a report name and its parameters.
// Parameters are JSON-serialized and hashed so every query parameter that
// affects the result participates in the key.
func GenerateKey(report string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to a plain string key; params are simple structs so this
		// path should not occur.
		return fmt.Sprintf("%s:%v", report, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", report, hash[:16])
}
