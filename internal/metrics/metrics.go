// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Overlay channel metrics
	OverlayEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_events_published_total",
			Help: "Total number of overlay events accepted and published",
		},
		[]string{"channel", "type"},
	)

	OverlayValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_validation_failures_total",
			Help: "Total number of rejected overlay actions",
		},
		[]string{"channel", "code"},
	)

	// Event bus metrics
	EventBusDeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_delivery_errors_total",
			Help: "Total number of subscriber callbacks that failed or panicked",
		},
		[]string{"channel"},
	)

	// Transport gateway metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WebSocketSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_subscriptions",
			Help: "Current number of subscribed connections per channel",
		},
		[]string{"channel"},
	)

	WebSocketMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_enqueued_total",
			Help: "Total number of event messages enqueued to client connections",
		},
		[]string{"channel"},
	)

	WebSocketMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of outbound messages dropped by the backpressure policy",
		},
		[]string{"reason"}, // "queue_full", "teardown"
	)

	WebSocketCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_commands_total",
			Help: "Total number of inbound client commands by action and result",
		},
		[]string{"action", "result"},
	)

	// Countdown metrics
	CountdownRemainingSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countdown_remaining_seconds",
			Help: "Remaining seconds on the countdown",
		},
	)

	CountdownRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countdown_running",
			Help: "1 while the countdown is ticking, 0 otherwise",
		},
	)

	CountdownTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countdown_transitions_rejected_total",
			Help: "Total number of countdown actions rejected for the current state",
		},
		[]string{"action"},
	)

	// Device connection metrics
	DeviceConnectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "device_connection_status",
			Help: "1 for the current device connection status, 0 for the others",
		},
		[]string{"status"},
	)

	DeviceConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_connect_attempts_total",
			Help: "Total number of device connect attempts",
		},
		[]string{"trigger", "result"}, // trigger: manual, scheduled; result: success, failure
	)

	DeviceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "device_request_duration_seconds",
			Help:    "Duration of requests sent to the production software",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"request_type", "result"},
	)

	DeviceEventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_events_ingested_total",
			Help: "Total number of push events received from the production software",
		},
		[]string{"event_type"},
	)

	// Relay metrics
	RelayForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_forwarded_total",
			Help: "Total number of overlay events forwarded to the message broker",
		},
		[]string{"channel", "result"},
	)

	RelayQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_queue_depth",
			Help: "Current number of events waiting to be forwarded",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of calls through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Command journal metrics
	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of operator commands recorded in the journal",
		},
		[]string{"action", "outcome"},
	)

	AuditEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Total number of journal entries dropped because the write buffer was full",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

var deviceStatuses = []string{"disconnected", "connecting", "connected", "reconnecting"}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCountdown mirrors the countdown state into gauges.
func RecordCountdown(remaining uint32, running bool) {
	CountdownRemainingSeconds.Set(float64(remaining))
	if running {
		CountdownRunning.Set(1)
	} else {
		CountdownRunning.Set(0)
	}
}

// SetDeviceStatus marks status as the only active device status.
func SetDeviceStatus(status string) {
	for _, s := range deviceStatuses {
		if s == status {
			DeviceConnectionStatus.WithLabelValues(s).Set(1)
		} else {
			DeviceConnectionStatus.WithLabelValues(s).Set(0)
		}
	}
}

// RecordDeviceConnect records a connect attempt.
func RecordDeviceConnect(trigger string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DeviceConnectAttempts.WithLabelValues(trigger, result).Inc()
}

// RecordDeviceRequest records one request/response round trip.
func RecordDeviceRequest(requestType string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DeviceRequestDuration.WithLabelValues(requestType, result).Observe(duration.Seconds())
}

// RecordRelayForward records the outcome of forwarding one event.
func RecordRelayForward(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	RelayForwarded.WithLabelValues(channel, result).Inc()
}
