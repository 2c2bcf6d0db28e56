// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Pulsewatch serves aggregated usage-analytics reports and anomaly alerts
// over HTTP.
//
// Startup wires the layers in dependency order: configuration, logging, the
// Badger counter store (wrapped in a circuit breaker), the aggregation
// cache, the analytics service, and finally the chi router. The HTTP server
// and the cache janitor run under a suture supervision tree so either can
// crash and restart without taking the process down.
//
// Configuration comes from built-in defaults, an optional YAML file named by
// PULSEWATCH_CONFIG, and PULSEWATCH_* environment variables, in that order.
// SIGINT or SIGTERM triggers a graceful shutdown bounded by
// server.shutdown_timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelworks/pulsewatch/internal/analytics"
	"github.com/avelworks/pulsewatch/internal/api"
	"github.com/avelworks/pulsewatch/internal/cache"
	"github.com/avelworks/pulsewatch/internal/config"
	"github.com/avelworks/pulsewatch/internal/logging"
	"github.com/avelworks/pulsewatch/internal/store"
	"github.com/avelworks/pulsewatch/internal/supervisor"
	"github.com/avelworks/pulsewatch/internal/supervisor/services"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Pulsewatch")
	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("in_memory", cfg.Store.InMemory).
		Int("retention_weeks", cfg.Reports.RetentionWeeks).
		Int("errors_days", cfg.Reports.ErrorsDays).
		Msg("Configuration loaded")

	// Open the counter store and wrap reads in a circuit breaker so a
	// corrupted or slow store degrades report serving instead of hanging it.
	badgerStore, err := store.Open(cfg.Store.Path, cfg.Store.InMemory)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open counter store")
	}
	defer func() {
		if err := badgerStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing counter store")
		}
	}()
	logging.Info().Msg("Counter store opened")

	breakerStore := store.NewBreakerStore(badgerStore, store.BreakerSettings{
		MaxFailures: cfg.Store.BreakerMaxFailures,
		Timeout:     cfg.Store.BreakerTimeout,
	})

	// The cache default TTL is only a fallback; the analytics service sets a
	// per-report TTL on every write.
	reportCache := cache.New(cfg.Cache.ErrorsTTL)

	svc := analytics.NewService(breakerStore, reportCache, cfg.Reports, cfg.Cache, cfg.Store.EventFetchRate)

	handler := api.NewHandler(svc, breakerStore, version)
	router := api.NewRouter(handler, cfg.Server, cfg.Auth.APIKey)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for suture's event hook.
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	tree.AddMaintenanceService(services.NewCacheJanitorService(reportCache, cfg.Cache.CleanupInterval))
	logging.Info().Dur("interval", cfg.Cache.CleanupInterval).Msg("Cache janitor service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Pulsewatch stopped gracefully")
}
