// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// stubService runs until cancelled. With failures set it returns an error
// from the first failures calls to Serve.
type stubService struct {
	name     string
	failures int32
	starts   atomic.Int32
	stops    atomic.Int32
}

func newStubService(name string) *stubService {
	return &stubService{name: name}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	defer s.stops.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }
