// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/tomtom215/showrunner/internal/config"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Str("obs_url", cfg.Device.URL).
		Bool("relay_enabled", cfg.Relay.Enabled).
		Msg("Starting Showrunner")

	if cfg.HasWildcardCORS() && cfg.IsProduction() {
		logging.Warn().Msg("CORS_ORIGINS=* in production: any website can drive overlays through the API")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("API rate limiting is disabled (DISABLE_RATE_LIMIT=true)")
	}

	app, err := newApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize components")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	app.register(tree)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Info().Str("addr", app.server.Addr).Msg("Supervisor tree starting")
	errCh := tree.ServeBackground(ctx)

	// errCh delivers exactly one value and is never closed.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
		}
	}
	app.close()

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Showrunner stopped")
}
