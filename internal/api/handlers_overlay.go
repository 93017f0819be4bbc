// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PublishOverlay publishes one overlay event.
//
// POST /api/v1/overlays/{channel}/{type}
//
// The body is the event payload, or empty for types without one. Returns
// 202 with the published event, or 400 VALIDATION_FAILED.
func (h *Handler) PublishOverlay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, err := readBody(w, r)
	if err != nil {
		rw.BadRequest("request body too large or unreadable")
		return
	}

	event, err := h.commands.Publish(r.Context(), chi.URLParam(r, "channel"), chi.URLParam(r, "type"), raw)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.Accepted(event)
}

// ListChannels returns the channel vocabulary and last sequence numbers.
//
// GET /api/v1/overlays/channels
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.channels.Channels())
}
