// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/showrunner/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// Header names for request tracing.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// RequestID generates a unique ID for each request and adds it to the
// response header and request context. An X-Correlation-ID sent by the
// caller (a Stream Deck bridge tagging a sequence of button presses, for
// example) is kept so the resulting overlay publishes can be traced back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)
		if correlationID := r.Header.Get(CorrelationIDHeader); correlationID != "" {
			ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		} else {
			ctx = logging.ContextWithNewCorrelationID(ctx)
		}
		w.Header().Set(CorrelationIDHeader, logging.CorrelationIDFromContext(ctx))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
