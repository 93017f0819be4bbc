// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package main is the Showrunner server.

Showrunner is the control plane between a live show's operators and its
graphics. Operators publish lower thirds, posters, chat highlights and media
cues over HTTP or the websocket gateway; browser-source overlays in OBS
subscribe to the channels they render. A server-side countdown engine ticks
once per second, and an OBS WebSocket v5 connection mirrors the program scene
and streaming state.

# Process Layout

	showrunner
	├── core-layer
	│   ├── countdown-engine
	│   └── device-manager(<OBS_URL>)
	├── messaging-layer
	│   ├── websocket-gateway        /ws
	│   └── event-relay              RELAY_ENABLED=true
	└── api-layer
	    └── http-server              /api/v1, /metrics

# Configuration

Defaults, then a YAML file (CONFIG_PATH or ./config.yaml,
/etc/showrunner/config.yaml), then environment variables. Poster sets and
theme profiles can only be set in the YAML file.

	HTTP_PORT=8420
	OBS_URL=ws://127.0.0.1:4455
	OBS_PASSWORD=...
	OBS_CONNECT_ON_STARTUP=true
	RELAY_ENABLED=true NATS_URL=nats://nats:4222

# Signals

SIGINT and SIGTERM cancel the root context. The countdown is paused, the
OBS socket is closed, every overlay connection is closed, the relay publisher
is closed and the HTTP server drains for SHUTDOWN_TIMEOUT.
*/
package main
