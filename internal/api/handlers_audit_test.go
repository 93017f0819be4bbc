// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/control"
	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// newJournaledAPI serves a handler whose commands go through a journal.
func newJournaledAPI(t *testing.T) (*testAPI, *audit.Journal) {
	t.Helper()
	bus := eventbus.New()
	overlays := overlay.NewManager(bus)
	engine := countdown.NewEngine(overlays)
	gateway := &fakeGateway{}
	journal := audit.NewJournal(audit.NewMemoryStore(100), audit.DefaultConfig())

	commands := audit.NewCommander(control.NewDispatcher(overlays, engine, nil), journal)
	handler := NewHandler(commands, overlays, gateway, WithJournal(journal))
	router := NewRouter(handler, nil, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server := httptest.NewServer(router.SetupChi())
	t.Cleanup(func() {
		server.Close()
		_ = journal.Close()
		engine.Reset() //nolint:errcheck // stop any armed ticker
	})
	return &testAPI{server: server, overlays: overlays, engine: engine, gateway: gateway}, journal
}

// waitForEntries polls until the journal holds n entries.
func waitForEntries(t *testing.T, journal *audit.Journal, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count, err := journal.Count(context.Background(), audit.QueryFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if count >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("journal did not reach %d entries", n)
}

func TestAuditEntries(t *testing.T) {
	api, journal := newJournaledAPI(t)

	api.do(t, http.MethodPost, "/api/v1/overlays/poster/HIDE", "")
	api.do(t, http.MethodPost, "/api/v1/overlays/poster/PLAY", "")
	api.do(t, http.MethodPost, "/api/v1/overlays/lower-third/HIDE", "")
	waitForEntries(t, journal, 3)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantTotal int64
	}{
		{"everything", "", 3, 3},
		{"by channel", "?channel=poster", 2, 2},
		{"rejected only", "?outcome=rejected", 1, 1},
		{"action list", "?action=overlay.publish,countdown", 3, 3},
		{"limit caps entries not total", "?limit=1", 1, 3},
		{"http transport", "?transport=http", 3, 3},
		{"websocket transport", "?transport=websocket", 0, 0},
		{"since the future", "?since=2999-01-01T00:00:00Z", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, http.MethodGet, "/api/v1/audit"+tt.query, "")
			if status != http.StatusOK {
				t.Fatalf("status = %d, error %+v", status, env.Error)
			}
			var resp AuditResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.Entries) != tt.wantCount || resp.Total != tt.wantTotal {
				t.Errorf("got %d entries total %d, want %d total %d",
					len(resp.Entries), resp.Total, tt.wantCount, tt.wantTotal)
			}
		})
	}
}

func TestAuditEntries_RecordsHTTPSource(t *testing.T) {
	api, journal := newJournaledAPI(t)

	api.do(t, http.MethodPost, "/api/v1/overlays/poster/HIDE", "")
	waitForEntries(t, journal, 1)

	_, env := api.do(t, http.MethodGet, "/api/v1/audit", "")
	var resp AuditResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.Action != audit.ActionOverlayPublish || e.Command != "HIDE" || e.Seq != 1 {
		t.Errorf("entry = %+v", e)
	}
	if e.Source.Transport != audit.TransportHTTP || e.Source.RequestID == "" {
		t.Errorf("source = %+v, want http with a request ID", e.Source)
	}
}

func TestAuditEntries_BadQuery(t *testing.T) {
	api, _ := newJournaledAPI(t)

	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{"non numeric limit", "?limit=ten", ErrCodeBadRequest},
		{"bad since", "?since=yesterday", ErrCodeBadRequest},
		{"limit too large", "?limit=5000", ErrCodeValidationFailed},
		{"unknown action", "?action=overlay.delete", ErrCodeValidationFailed},
		{"unknown transport", "?transport=grpc", ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, http.MethodGet, "/api/v1/audit"+tt.query, "")
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestAuditEntries_Disabled(t *testing.T) {
	api := newTestAPI(t, false)
	status, env := api.do(t, http.MethodGet, "/api/v1/audit", "")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", env.Error)
	}
}
