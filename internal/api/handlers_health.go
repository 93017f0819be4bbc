// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness checks.
// Returns 200 OK if the process is alive, regardless of dependencies.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness checks. The service is ready once
// the gateway accepts connections. The device is reported but does not
// affect readiness: running without OBS is a valid configuration.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	stats := h.transport.Stats()
	data := map[string]any{
		"gateway_running": stats.IsRunning,
		"clients":         stats.TotalClients,
		"ready_to_serve":  stats.IsRunning,
		"uptime":          time.Since(h.startTime).Seconds(),
	}
	if h.device != nil {
		data["device_status"] = h.device.Snapshot().Status
	}

	rw := NewResponseWriter(w, r)
	if !stats.IsRunning {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "gateway is not running", data)
		return
	}
	rw.Success(data)
}
