// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Cache.AlertsTTL != 5*time.Minute {
		t.Errorf("Cache.AlertsTTL = %v, want 5m", cfg.Cache.AlertsTTL)
	}
	if cfg.Cache.RetentionTTL != time.Hour {
		t.Errorf("Cache.RetentionTTL = %v, want 1h", cfg.Cache.RetentionTTL)
	}
	if cfg.Reports.RetentionWeeks != 12 {
		t.Errorf("Reports.RetentionWeeks = %d, want 12", cfg.Reports.RetentionWeeks)
	}
	if cfg.Reports.FanoutConcurrency != 8 {
		t.Errorf("Reports.FanoutConcurrency = %d, want 8", cfg.Reports.FanoutConcurrency)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {

	t.Setenv("PULSEWATCH_SERVER_PORT", "9000")
	t.Setenv("PULSEWATCH_AUTH_API_KEY", "sekrit")
	t.Setenv("PULSEWATCH_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Auth.APIKey != "sekrit" {
		t.Errorf("Auth.APIKey = %q, want sekrit", cfg.Auth.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadYAMLFileLayer(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 7000\nreports:\n  errors_days: 14\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.Reports.ErrorsDays != 14 {
		t.Errorf("Reports.ErrorsDays = %d, want 14 from file", cfg.Reports.ErrorsDays)
	}
	// Untouched keys keep their defaults.
	if cfg.Reports.RetentionWeeks != 12 {
		t.Errorf("Reports.RetentionWeeks = %d, want default 12", cfg.Reports.RetentionWeeks)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PULSEWATCH_SERVER_PORT", "7500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7500 {
		t.Errorf("Server.Port = %d, env should beat file", cfg.Server.Port)
	}
}

func TestCORSOriginsFromCommaSeparatedEnv(t *testing.T) {

	t.Setenv("PULSEWATCH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want 2 entries", cfg.Server.CORSOrigins)
	}
	if cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins[1] = %q, want trimmed value", cfg.Server.CORSOrigins[1])
	}
}

func TestValidateRejectsBadValues(t *testing.T) {

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"missing store path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }},
		{"zero breaker failures", func(c *Config) { c.Store.BreakerMaxFailures = 0 }},
		{"zero alerts ttl", func(c *Config) { c.Cache.AlertsTTL = 0 }},
		{"negative cleanup interval", func(c *Config) { c.Cache.CleanupInterval = -time.Second }},
		{"zero retention weeks", func(c *Config) { c.Reports.RetentionWeeks = 0 }},
		{"zero fanout concurrency", func(c *Config) { c.Reports.FanoutConcurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransform(t *testing.T) {

	tests := []struct {
		in   string
		want string
	}{
		{"PULSEWATCH_SERVER_PORT", "server.port"},
		{"PULSEWATCH_AUTH_API_KEY", "auth.api_key"},
		{"PULSEWATCH_CACHE_ALERTS_TTL", "cache.alerts_ttl"},
		{"PULSEWATCH_REPORTS_RETENTION_WEEKS", "reports.retention_weeks"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
