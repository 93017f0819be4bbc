// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CountdownState returns the current countdown state.
//
// GET /api/v1/countdown
func (h *Handler) CountdownState(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.commands.CountdownState())
}

// CountdownAction applies set, start, pause or reset.
//
// POST /api/v1/countdown/{action}
//
// set takes a flat body {"seconds": n, "style", "format", "position",
// "size", "theme"}; unknown fields are rejected. The other actions take no
// body. Returns the resulting state, 400 for a bad payload or 409 when the
// action is not valid in the current phase.
func (h *Handler) CountdownAction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, err := readBody(w, r)
	if err != nil {
		rw.BadRequest("request body too large or unreadable")
		return
	}

	state, err := h.commands.Countdown(r.Context(), chi.URLParam(r, "action"), raw)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.Success(state)
}
