// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// GatewayService supervises the websocket gateway. While it runs the hub
// accepts renderer and controller connections; on cancellation every client
// is closed.
type GatewayService struct {
	hub  ContextHub
	name string
}

// NewGatewayService wraps hub.
func NewGatewayService(hub ContextHub) *GatewayService {
	return &GatewayService{
		hub:  hub,
		name: "websocket-gateway",
	}
}

// Serve implements suture.Service.
func (g *GatewayService) Serve(ctx context.Context) error {
	return g.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's log lines.
func (g *GatewayService) String() string {
	return g.name
}
