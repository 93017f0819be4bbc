// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthResponse(t *testing.T) {
	// Worked example from the obs-websocket protocol documentation.
	got := AuthResponse("supersecretpassword", mockSalt, mockChallenge)
	want := "1Ct943GAT+6YQUUX47Ia/ncufilbe6+oD6lY+5kaCu4="
	if got != want {
		t.Errorf("AuthResponse() = %q, want %q", got, want)
	}
}

func dialMock(t *testing.T, obs *mockOBS, password string, onEvent func(PushEvent)) (Conn, error) {
	t.Helper()
	d := &WSDialer{URL: obs.url(), Password: password, HandshakeTimeout: 2 * time.Second, RequestTimeout: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return d.Dial(ctx, onEvent)
}

func TestDial_Handshake(t *testing.T) {
	tests := []struct {
		name           string
		serverPassword string
		clientPassword string
		wantAuthErr    bool
	}{
		{"no auth", "", "", false},
		{"correct password", "supersecretpassword", "supersecretpassword", false},
		{"wrong password", "supersecretpassword", "guess", true},
		{"missing password", "supersecretpassword", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := newMockOBS(t, tt.serverPassword)

			conn, err := dialMock(t, obs, tt.clientPassword, nil)
			if tt.wantAuthErr {
				if !errors.Is(err, ErrAuthenticationFailed) {
					t.Fatalf("Dial() error = %v, want ErrAuthenticationFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			defer conn.Close()

			var scene currentProgramSceneResponse
			if err := conn.Request(context.Background(), RequestGetCurrentProgramScene, nil, &scene); err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			if scene.CurrentProgramSceneName != "Intro" {
				t.Errorf("scene = %q, want Intro", scene.CurrentProgramSceneName)
			}
		})
	}
}

func TestDial_Unreachable(t *testing.T) {
	d := &WSDialer{URL: "ws://127.0.0.1:1", HandshakeTimeout: 500 * time.Millisecond}
	if _, err := d.Dial(context.Background(), nil); err == nil {
		t.Fatal("Dial() to closed port succeeded")
	}
}

func TestSession_RequestFailure(t *testing.T) {
	obs := newMockOBS(t, "")
	obs.setFailing(RequestGetRecordStatus, true)

	conn, err := dialMock(t, obs, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	err = conn.Request(context.Background(), RequestGetRecordStatus, nil, &outputStatusResponse{})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Request() error = %v, want *RequestError", err)
	}
	if reqErr.Code != 204 || reqErr.RequestType != RequestGetRecordStatus {
		t.Errorf("RequestError = %+v", reqErr)
	}
}

func TestSession_Events(t *testing.T) {
	obs := newMockOBS(t, "")
	events := make(chan PushEvent, 4)

	conn, err := dialMock(t, obs, "", func(ev PushEvent) { events <- ev })
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	obs.push(EventCurrentProgramSceneChanged, map[string]any{"sceneName": "Main"})

	select {
	case ev := <-events:
		if ev.Type != EventCurrentProgramSceneChanged {
			t.Errorf("event type = %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestSession_UnsolicitedClose(t *testing.T) {
	obs := newMockOBS(t, "")
	conn, err := dialMock(t, obs, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	obs.drop()

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after server dropped the socket")
	}
	if conn.Err() == nil {
		t.Error("Err() = nil after unsolicited close")
	}
	if err := conn.Request(context.Background(), RequestGetSceneList, nil, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Request() after close = %v, want ErrSessionClosed", err)
	}
	_ = conn.Close()
}

func TestSession_CloseIsSynchronous(t *testing.T) {
	obs := newMockOBS(t, "")
	events := make(chan PushEvent, 16)
	conn, err := dialMock(t, obs, "", func(ev PushEvent) { events <- ev })
	if err != nil {
		t.Fatal(err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case <-conn.Done():
	default:
		t.Fatal("Done() not closed when Close returned")
	}
	if conn.Err() != nil {
		t.Errorf("Err() = %v after local close, want nil", conn.Err())
	}

	obs.push(EventCurrentProgramSceneChanged, map[string]any{"sceneName": "Late"})
	select {
	case ev := <-events:
		t.Errorf("event %q delivered after Close", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	// Second close is a no-op.
	_ = conn.Close()
}
