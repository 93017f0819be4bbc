// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package api provides the HTTP action API used by control surfaces (Stream
Deck bridges, operator dashboards, scripts) to drive overlays, the countdown
and the OBS connection.

# Endpoints

	POST /api/v1/overlays/{channel}/{type}   publish an overlay event
	GET  /api/v1/overlays/channels           vocabulary and last sequence numbers
	GET  /api/v1/countdown                   countdown state
	POST /api/v1/countdown/{action}          set, start, pause, reset
	GET  /api/v1/device                      OBS status, last error, mirror
	POST /api/v1/device/{op}                 connect, disconnect, reconnect
	POST /api/v1/device/scene                switch program scene
	GET  /api/v1/transport/stats             gateway and relay counters
	GET  /api/v1/audit                       command journal, newest first
	GET  /api/v1/health/live, /ready         health checks
	GET  /ws                                 overlay WebSocket
	GET  /metrics                            Prometheus

# Responses

Every endpoint answers with APIResponse:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "...", "details": {...}}}

Domain errors map to status codes in respondDomainError:

  - overlay.ValidationError: 400 VALIDATION_FAILED
  - countdown.TransitionError: 409 CONFLICT
  - device.ConnectionError, device.RequestError: 502 EXTERNAL_SERVICE_FAILED
  - device control not configured: 503 SERVICE_UNAVAILABLE

Commands from both transports are journaled when the command journal is
enabled. GET /api/v1/audit filters it with action, outcome, channel,
transport, correlation_id, since (RFC 3339) and limit (1-1000, default 100).

There is no authentication. The API is meant for a trusted production
network; CORS and per-IP rate limits are the only edge controls.
*/
package api
