// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package breaker builds sony/gobreaker circuit breakers that log their
// transitions and export them as metrics.
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
)

// Config holds the tunables shared by every breaker.
type Config struct {
	// MaxRequests allowed while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts reset. Zero never resets.
	Interval time.Duration
	// Timeout before an open breaker goes half-open.
	Timeout time.Duration
	// ConsecutiveFailures that open the breaker.
	ConsecutiveFailures uint32
}

// DefaultConfig returns conservative settings.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// New creates a breaker named name. The name is used as the metric label.
func New[T any](name string, cfg Config) *gobreaker.CircuitBreaker[T] {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultConfig().ConsecutiveFailures
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			if trip {
				logging.Warn().
					Str("breaker", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(StateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// Execute runs fn through cb and records the outcome.
func Execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	switch {
	case IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "rejected").Inc()
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "success").Inc()
	}
	return result, err
}

// IsRejected reports whether err came from the breaker itself rather than
// from the protected call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// StateValue maps a breaker state to the gauge value.
func StateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
