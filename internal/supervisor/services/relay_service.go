// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventRelay is satisfied by *relay.Relay.
type EventRelay interface {
	Serve(ctx context.Context) error
	Close() error
}

// RelayService supervises the NATS event relay. The relay is closed only
// when the tree itself is shutting down; a crash returns the error so the
// supervisor restarts Serve against the same publisher.
type RelayService struct {
	relay EventRelay
	name  string
}

// NewRelayService wraps relay.
func NewRelayService(relay EventRelay) *RelayService {
	return &RelayService{relay: relay, name: "event-relay"}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	err := s.relay.Serve(ctx)
	if ctx.Err() == nil {
		if err == nil {
			err = errors.New("relay stopped unexpectedly")
		}
		return err
	}

	if cerr := s.relay.Close(); cerr != nil {
		return fmt.Errorf("relay close failed: %w", cerr)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log lines.
func (s *RelayService) String() string {
	return s.name
}
