// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/validation"
)

// SceneRequest is the body of POST /api/v1/device/scene.
type SceneRequest struct {
	Scene string `json:"scene" validate:"required,max=256"`
}

// DeviceStatus returns connection status, last error and mirrored state.
// It never touches the network.
//
// GET /api/v1/device
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	if h.device == nil {
		respondDomainError(NewResponseWriter(w, r), r, ErrDeviceUnavailable)
		return
	}
	WriteSuccess(w, r, h.device.Snapshot())
}

// DeviceConnect opens the device connection.
//
// POST /api/v1/device/connect
func (h *Handler) DeviceConnect(w http.ResponseWriter, r *http.Request) {
	h.deviceOp(w, r, func(d DeviceController) error { return d.Connect(r.Context()) })
}

// DeviceDisconnect closes the device connection and cancels pending
// reconnects. It always succeeds.
//
// POST /api/v1/device/disconnect
func (h *Handler) DeviceDisconnect(w http.ResponseWriter, r *http.Request) {
	h.deviceOp(w, r, func(d DeviceController) error {
		d.Disconnect()
		return nil
	})
}

// DeviceReconnect disconnects, waits the settle interval and connects.
//
// POST /api/v1/device/reconnect
func (h *Handler) DeviceReconnect(w http.ResponseWriter, r *http.Request) {
	h.deviceOp(w, r, func(d DeviceController) error { return d.Reconnect(r.Context()) })
}

// DeviceSetScene switches the program scene. The mirror follows from the
// device's own scene-change event.
//
// POST /api/v1/device/scene
func (h *Handler) DeviceSetScene(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, err := readBody(w, r)
	if err != nil {
		rw.BadRequest("request body too large or unreadable")
		return
	}
	var req SceneRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rw.BadRequest("body must be {\"scene\": \"<name>\"}")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("invalid scene request", verr.Errors())
		return
	}

	h.deviceOp(w, r, func(d DeviceController) error { return d.SetScene(r.Context(), req.Scene) })
}

// deviceOp runs op and responds with the device snapshot afterwards.
func (h *Handler) deviceOp(w http.ResponseWriter, r *http.Request, op func(DeviceController) error) {
	rw := NewResponseWriter(w, r)
	if h.device == nil {
		respondDomainError(rw, r, ErrDeviceUnavailable)
		return
	}
	if err := op(h.device); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.Success(h.device.Snapshot())
}
