// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package supervisor runs Showrunner's long-lived components under a suture v4
supervisor tree.

# Layout

	showrunner
	├── core-layer
	│   ├── countdown-engine
	│   └── device-manager(<obs url>)
	├── messaging-layer
	│   ├── websocket-gateway
	│   └── event-relay (RELAY_ENABLED)
	└── api-layer
	    └── http-server

Each layer counts failures on its own, so an OBS instance that keeps
dropping the connection never backs off the gateway or the API.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureDecay:     cfg.Supervisor.FailureDecay,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	tree.AddCoreService(services.NewCountdownService(engine))
	tree.AddMessagingService(services.NewGatewayService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog into the zerolog-backed slog handler.

Zero TreeConfig fields take suture's defaults: threshold 5, decay 30s,
backoff 15s, per-service stop timeout 10s.
*/
package supervisor
