// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package config provides centralized configuration management for Showrunner.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml or
    /etc/showrunner/config.yaml
  - Environment variables, mapped explicitly to config paths

Unmapped environment variables are ignored.

# Environment Variables

HTTP Server (ServerConfig):
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8420)
  - HTTP_TIMEOUT: Read/write timeout (default: 30s)
  - SHUTDOWN_TIMEOUT: Graceful shutdown budget (default: 10s)
  - ENVIRONMENT: development, staging or production

Security (SecurityConfig):
  - CORS_ORIGINS: Comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: Per-IP API limit (default: 300/1m)
  - DISABLE_RATE_LIMIT: Turn the API limit off

Transport Gateway (TransportConfig):
  - WS_SEND_QUEUE_SIZE: Outbound frames buffered per connection (default: 256)
  - WS_MAX_DROPPED_MESSAGES: Consecutive drops before disconnect (default: 64)
  - WS_ALLOWED_ORIGINS, WS_ALLOW_NO_ORIGIN: Upgrade origin policy
  - WS_COMMANDS_ENABLED, WS_COMMAND_RATE, WS_COMMAND_BURST: Socket commands

Countdown (CountdownConfig):
  - COUNTDOWN_TICK_INTERVAL: Tick period (default: 1s)
  - COUNTDOWN_DEFAULT_STYLE/FORMAT/POSITION/SIZE: Initial display block

OBS Device (DeviceConfig):
  - OBS_URL, OBS_PASSWORD: WebSocket endpoint and optional password
  - OBS_CONNECT_ON_STARTUP, OBS_AUTO_RECONNECT
  - OBS_RECONNECT_INITIAL_INTERVAL, OBS_RECONNECT_MAX_INTERVAL,
    OBS_RECONNECT_MAX_ELAPSED: Exponential backoff bounds
  - OBS_BREAKER_FAILURES, OBS_BREAKER_TIMEOUT: Reconnect circuit breaker

Event Relay (RelayConfig):
  - RELAY_ENABLED, NATS_URL: Forward overlay events to NATS
  - RELAY_SUBJECT_PREFIX: Subject root (default: showrunner.overlay)
  - RELAY_CHANNELS: Comma-separated channels to forward (default: all)
  - RELAY_SKIP_TICKS: Do not forward countdown TICK events (default: true)

Command Journal (AuditConfig):
  - AUDIT_ENABLED: Record operator commands for GET /api/v1/audit (default: true)
  - AUDIT_MAX_ENTRIES: Entries kept in memory (default: 10000)
  - AUDIT_BUFFER_SIZE: Async write buffer; entries are dropped when full (default: 256)
  - AUDIT_LOG_TO_STDOUT: Also log every entry

Content (ContentConfig):
  - ACTIVE_POSTER_SET: Poster set used to resolve posterId

Themes and poster sets are only read from the YAML file:

	content:
	  themes:
	    guest-42:
	      accent: "#ff6600"
	  poster_sets:
	    tonight:
	      - id: p1
	        url: https://cdn.example.com/p1.png
	        title: Opening
	  active_poster_set: tonight

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
