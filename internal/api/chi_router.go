// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/middleware"
)

// Router assembles the HTTP surface: the action API, the WebSocket
// endpoint and Prometheus metrics.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	websocket     http.HandlerFunc
}

// NewRouter creates a router. ws serves the WebSocket upgrade on /ws.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig, ws http.HandlerFunc) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
		websocket:     ws,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// Health checks get a permissive limit so frequent monitoring is never throttled
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(audit.Middleware)

		r.Get("/overlays/channels", router.handler.ListChannels)
		r.Post("/overlays/{channel}/{type}", router.handler.PublishOverlay)

		r.Get("/countdown", router.handler.CountdownState)
		r.Post("/countdown/{action}", router.handler.CountdownAction)

		r.Get("/device", router.handler.DeviceStatus)
		r.Post("/device/connect", router.handler.DeviceConnect)
		r.Post("/device/disconnect", router.handler.DeviceDisconnect)
		r.Post("/device/reconnect", router.handler.DeviceReconnect)
		r.Post("/device/scene", router.handler.DeviceSetScene)

		r.Get("/transport/stats", router.handler.TransportStats)

		r.Get("/audit", router.handler.AuditEntries)
	})

	// Overlays hold one long-lived socket each; rate limiting happens per
	// command inside the gateway.
	if router.websocket != nil {
		r.Get("/ws", router.websocket)
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
