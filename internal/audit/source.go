// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"net/http"

	"github.com/tomtom215/showrunner/internal/logging"
)

type sourceKey struct{}

// ContextWithSource attaches the command source to ctx.
func ContextWithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the source attached by ContextWithSource, or
// the zero Source.
func SourceFromContext(ctx context.Context) Source {
	src, _ := ctx.Value(sourceKey{}).(Source)
	return src
}

// SourceFromRequest describes an HTTP action request. RemoteAddr is the
// value left by chi's RealIP middleware.
func SourceFromRequest(r *http.Request) Source {
	return Source{
		Transport:  TransportHTTP,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		RequestID:  logging.RequestIDFromContext(r.Context()),
	}
}

// Middleware attaches the request's Source to its context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithSource(r.Context(), SourceFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
