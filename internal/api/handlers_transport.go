// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"

	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/relay"
)

// TransportStatsResponse is the body of GET /api/v1/transport/stats.
type TransportStatsResponse struct {
	Gateway models.ConnectionStats `json:"gateway"`
	Relay   *relay.Stats           `json:"relay,omitempty"`
}

// TransportStats returns gateway counters and, when enabled, relay counters.
//
// GET /api/v1/transport/stats
func (h *Handler) TransportStats(w http.ResponseWriter, r *http.Request) {
	resp := TransportStatsResponse{Gateway: h.transport.Stats()}
	if h.relay != nil {
		stats := h.relay.Stats()
		resp.Relay = &stats
	}
	WriteSuccess(w, r, resp)
}
