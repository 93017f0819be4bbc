// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package models

import "time"

// Event is one published overlay action. It doubles as the wire message sent
// to subscribed renderers, one JSON object per WebSocket frame.
//
// Events are immutable once published and never persisted. Seq increases
// strictly per channel so renderers can drop duplicates and detect gaps.
type Event struct {
	Channel Channel   `json:"channel"`
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	Seq     uint64    `json:"seq"`
	SentAt  time.Time `json:"sentAt"`
}
