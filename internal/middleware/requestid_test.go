// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/showrunner/internal/logging"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name            string
		requestID       string
		correlationID   string
		wantRequestID   string
		wantCorrelation string
	}{
		{name: "generates ids"},
		{name: "preserves request id", requestID: "req-123", wantRequestID: "req-123"},
		{name: "preserves correlation id", correlationID: "deck-7", wantCorrelation: "deck-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxRequestID, ctxLoggingID, ctxCorrelation string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxRequestID = GetRequestID(r.Context())
				ctxLoggingID = logging.RequestIDFromContext(r.Context())
				ctxCorrelation = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/countdown/start", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			if tt.correlationID != "" {
				req.Header.Set(CorrelationIDHeader, tt.correlationID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			respID := rec.Header().Get(RequestIDHeader)
			if tt.wantRequestID != "" {
				if respID != tt.wantRequestID {
					t.Errorf("X-Request-ID = %q, want %q", respID, tt.wantRequestID)
				}
			} else if _, err := uuid.Parse(respID); err != nil {
				t.Errorf("generated X-Request-ID %q is not a UUID: %v", respID, err)
			}
			if ctxRequestID != respID || ctxLoggingID != respID {
				t.Errorf("context ids = %q/%q, want %q", ctxRequestID, ctxLoggingID, respID)
			}

			respCorrelation := rec.Header().Get(CorrelationIDHeader)
			if respCorrelation == "" || respCorrelation != ctxCorrelation {
				t.Errorf("correlation header %q, context %q", respCorrelation, ctxCorrelation)
			}
			if tt.wantCorrelation != "" && respCorrelation != tt.wantCorrelation {
				t.Errorf("correlation = %q, want %q", respCorrelation, tt.wantCorrelation)
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
