// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package middleware provides HTTP middleware shared by the action API and the
WebSocket upgrade endpoint.

  - RequestID: request and correlation IDs in headers and logging context
  - PrometheusMetrics: request count, latency and in-flight gauge by route

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

CORS and rate limiting come from go-chi/cors and go-chi/httprate and are
assembled in the api package.
*/
package middleware
