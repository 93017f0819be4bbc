// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
	"github.com/tomtom215/showrunner/internal/relay"
)

// maxBodyBytes bounds request bodies. Overlay payloads are small.
const maxBodyBytes = 64 * 1024

// Commander executes overlay and countdown commands. Implemented by
// control.Dispatcher.
type Commander interface {
	Publish(ctx context.Context, channel, typ string, raw json.RawMessage) (models.Event, error)
	Countdown(ctx context.Context, action string, raw json.RawMessage) (models.CountdownState, error)
	CountdownState() models.CountdownState
}

// ChannelLister describes overlay channels. Implemented by overlay.Manager.
type ChannelLister interface {
	Channels() []overlay.ChannelInfo
}

// DeviceController is the device surface of the API. Implemented by
// device.Manager.
type DeviceController interface {
	Snapshot() models.DeviceSnapshot
	Connect(ctx context.Context) error
	Disconnect()
	Reconnect(ctx context.Context) error
	SetScene(ctx context.Context, scene string) error
}

// GatewayStats reports gateway counters. Implemented by websocket.Hub.
type GatewayStats interface {
	Stats() models.ConnectionStats
}

// RelayStats reports relay counters. Implemented by relay.Relay.
type RelayStats interface {
	Stats() relay.Stats
}

// CommandJournal answers journal queries. Implemented by audit.Journal.
type CommandJournal interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// Handler serves the HTTP action API.
type Handler struct {
	commands  Commander
	channels  ChannelLister
	device    DeviceController
	transport GatewayStats
	relay     RelayStats
	journal   CommandJournal
	startTime time.Time
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithDevice enables the device endpoints.
func WithDevice(d DeviceController) HandlerOption {
	return func(h *Handler) { h.device = d }
}

// WithRelay adds relay counters to the transport stats endpoint.
func WithRelay(r RelayStats) HandlerOption {
	return func(h *Handler) { h.relay = r }
}

// WithJournal enables GET /api/v1/audit.
func WithJournal(j CommandJournal) HandlerOption {
	return func(h *Handler) { h.journal = j }
}

// NewHandler creates the API handler.
func NewHandler(commands Commander, channels ChannelLister, transport GatewayStats, opts ...HandlerOption) *Handler {
	h := &Handler{
		commands:  commands,
		channels:  channels,
		transport: transport,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// readBody reads an optional JSON body. An empty body is returned as nil.
func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}
