// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"time"
)

// Action categorizes a journal entry.
type Action string

const (
	ActionOverlayPublish   Action = "overlay.publish"
	ActionCountdown        Action = "countdown"
	ActionDeviceConnect    Action = "device.connect"
	ActionDeviceDisconnect Action = "device.disconnect"
	ActionDeviceReconnect  Action = "device.reconnect"
	ActionDeviceScene      Action = "device.scene"
)

// Outcome is the result of a command. OutcomeRejected covers validation
// failures and invalid countdown transitions: the command never reached the
// bus.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailure  Outcome = "failure"
)

// Transports a command can arrive on.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Entry is one operator command.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`

	// Command is the event type (SHOW, HIDE), countdown action (start) or
	// device operation.
	Command string `json:"command,omitempty"`
	Channel string `json:"channel,omitempty"`

	// Seq is the sequence number of the published event, zero otherwise.
	Seq    uint64 `json:"seq,omitempty"`
	Detail string `json:"detail,omitempty"`

	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`

	Source        Source `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Source describes where a command came from.
type Source struct {
	Transport    string `json:"transport,omitempty"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
}

// Store persists journal entries.
type Store interface {
	Save(ctx context.Context, entry *Entry) error

	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)

	Count(ctx context.Context, filter QueryFilter) (int64, error)
}

// QueryFilter selects journal entries. Zero fields match everything.
type QueryFilter struct {
	Actions       []Action   `json:"actions,omitempty"`
	Outcomes      []Outcome  `json:"outcomes,omitempty"`
	Channel       string     `json:"channel,omitempty"`
	Transport     string     `json:"transport,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Since         *time.Time `json:"since,omitempty"`

	// Limit caps the result size; zero means no cap.
	Limit int `json:"limit,omitempty"`
}

// DefaultQueryFilter returns the last 100 entries.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
