// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package config defines the Pulsewatch configuration and its layered loader.
//
// Configuration is resolved in three layers with later layers overriding
// earlier ones: built-in defaults, an optional YAML file, then environment
// variables. See Load for the environment variable naming scheme.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Auth    AuthConfig    `koanf:"auth"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Reports ReportsConfig `koanf:"reports"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// AuthConfig holds the shared-secret settings for the report endpoints.
type AuthConfig struct {
	// APIKey is the shared secret expected in the X-API-Key header.
	// Empty disables authentication; refuse that outside development.
	APIKey string `koanf:"api_key"`
}

// StoreConfig holds the counter store settings.
type StoreConfig struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// BreakerMaxFailures consecutive read failures open the circuit.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`

	// EventFetchRate bounds failure-event sub-fetches per second during
	// error aggregation; 0 means unlimited.
	EventFetchRate int `koanf:"event_fetch_rate"`
}

// CacheConfig holds the per-report TTLs of the aggregation cache.
type CacheConfig struct {
	AlertsTTL       time.Duration `koanf:"alerts_ttl"`
	ErrorsTTL       time.Duration `koanf:"errors_ttl"`
	PerformanceTTL  time.Duration `koanf:"performance_ttl"`
	RetentionTTL    time.Duration `koanf:"retention_ttl"`
	BehaviorTTL     time.Duration `koanf:"behavior_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// ReportsConfig holds the report computation parameters.
type ReportsConfig struct {
	// RetentionWeeks is the default cohort lookback of the retention report.
	RetentionWeeks int `koanf:"retention_weeks"`

	// ErrorsDays is the default window of the errors report.
	ErrorsDays int `koanf:"errors_days"`

	// FanoutConcurrency bounds concurrent per-user sub-fetches.
	FanoutConcurrency int `koanf:"fanout_concurrency"`

	// EventFetchLimit caps how many recent failure events one sub-fetch
	// returns per user.
	EventFetchLimit int `koanf:"event_fetch_limit"`

	// TopAffectedUsers caps the "most affected users" list.
	TopAffectedUsers int `koanf:"top_affected_users"`

	// ComputeTimeout bounds one uncached report computation, covering the
	// full scan and all failure-event sub-queries. Zero disables the bound.
	ComputeTimeout time.Duration `koanf:"compute_timeout"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Auth: AuthConfig{
			APIKey: "",
		},
		Store: StoreConfig{
			Path:               "/data/pulsewatch",
			InMemory:           false,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			EventFetchRate:     200,
		},
		Cache: CacheConfig{
			AlertsTTL:       5 * time.Minute,
			ErrorsTTL:       10 * time.Minute,
			PerformanceTTL:  15 * time.Minute,
			RetentionTTL:    time.Hour,
			BehaviorTTL:     time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		Reports: ReportsConfig{
			RetentionWeeks:    12,
			ErrorsDays:        7,
			FanoutConcurrency: 8,
			EventFetchLimit:   50,
			TopAffectedUsers:  20,
			ComputeTimeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
