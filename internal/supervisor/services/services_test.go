// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*GatewayService)(nil)
	_ suture.Service = (*CountdownService)(nil)
	_ suture.Service = (*DeviceService)(nil)
	_ suture.Service = (*RelayService)(nil)
)

// fakeComponent blocks until cancelled, or returns err immediately.
type fakeComponent struct {
	err    error
	serves atomic.Int32
	closes atomic.Int32
}

func (f *fakeComponent) Serve(ctx context.Context) error {
	f.serves.Add(1)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeComponent) RunWithContext(ctx context.Context) error {
	return f.Serve(ctx)
}

func (f *fakeComponent) Close() error {
	f.closes.Add(1)
	return nil
}

// serveBriefly runs svc until it returns or 50ms pass, whichever is first.
func serveBriefly(t *testing.T, svc suture.Service) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

func TestWrappedServices(t *testing.T) {
	tests := []struct {
		name     string
		build    func(*fakeComponent) suture.Service
		wantName string
	}{
		{"gateway", func(f *fakeComponent) suture.Service { return NewGatewayService(f) }, "websocket-gateway"},
		{"countdown", func(f *fakeComponent) suture.Service { return NewCountdownService(f) }, "countdown-engine"},
		{"device", func(f *fakeComponent) suture.Service { return NewDeviceService(f, "ws://127.0.0.1:4455") }, "device-manager(ws://127.0.0.1:4455)"},
		{"device without url", func(f *fakeComponent) suture.Service { return NewDeviceService(f, "") }, "device-manager"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeComponent{}
			svc := tt.build(f)

			if s, ok := svc.(interface{ String() string }); !ok || s.String() != tt.wantName {
				t.Errorf("String() = %v, want %q", svc, tt.wantName)
			}
			if err := serveBriefly(t, svc); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if f.serves.Load() != 1 {
				t.Errorf("component served %d times, want 1", f.serves.Load())
			}

			boom := errors.New("boom")
			f.err = boom
			if err := serveBriefly(t, svc); !errors.Is(err, boom) {
				t.Errorf("Serve() = %v, want %v", err, boom)
			}
		})
	}
}

func TestRelayService(t *testing.T) {
	t.Run("closes relay on shutdown", func(t *testing.T) {
		f := &fakeComponent{}
		svc := NewRelayService(f)
		if err := serveBriefly(t, svc); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
		if f.closes.Load() != 1 {
			t.Errorf("Close called %d times, want 1", f.closes.Load())
		}
		if svc.String() != "event-relay" {
			t.Errorf("String() = %q", svc.String())
		}
	})

	t.Run("crash keeps relay open for restart", func(t *testing.T) {
		boom := errors.New("boom")
		f := &fakeComponent{err: boom}
		err := NewRelayService(f).Serve(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("Serve() = %v, want %v", err, boom)
		}
		if f.closes.Load() != 0 {
			t.Errorf("Close called %d times, want 0", f.closes.Load())
		}
	})
}
