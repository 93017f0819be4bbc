// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package services

import (
	"context"
	"fmt"
)

// Servable is a component that already follows the suture.Service contract:
// it blocks until ctx is cancelled and then returns ctx.Err().
type Servable interface {
	Serve(ctx context.Context) error
}

// CountdownService supervises the countdown engine. Cancelling it stops the
// ticker and leaves a running countdown paused.
type CountdownService struct {
	engine Servable
	name   string
}

// NewCountdownService wraps engine.
func NewCountdownService(engine Servable) *CountdownService {
	return &CountdownService{engine: engine, name: "countdown-engine"}
}

// Serve implements suture.Service.
func (s *CountdownService) Serve(ctx context.Context) error {
	return s.engine.Serve(ctx)
}

// String implements fmt.Stringer for suture's log lines.
func (s *CountdownService) String() string {
	return s.name
}

// DeviceService supervises the OBS connection manager. The manager connects
// on start when configured and disconnects on cancellation.
type DeviceService struct {
	manager Servable
	url     string
}

// NewDeviceService wraps manager. url only labels the service in logs.
func NewDeviceService(manager Servable, url string) *DeviceService {
	return &DeviceService{manager: manager, url: url}
}

// Serve implements suture.Service.
func (s *DeviceService) Serve(ctx context.Context) error {
	return s.manager.Serve(ctx)
}

// String implements fmt.Stringer for suture's log lines.
func (s *DeviceService) String() string {
	if s.url == "" {
		return "device-manager"
	}
	return fmt.Sprintf("device-manager(%s)", s.url)
}
