// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package models

import (
	"slices"
	"time"
)

// DeviceStatus is the lifecycle state of the production-software connection.
type DeviceStatus string

const (
	DeviceDisconnected DeviceStatus = "disconnected"
	DeviceConnecting   DeviceStatus = "connecting"
	DeviceConnected    DeviceStatus = "connected"
	DeviceReconnecting DeviceStatus = "reconnecting"
)

// DeviceState is the mirrored view of the production software.
type DeviceState struct {
	CurrentScene   string    `json:"currentScene"`
	Scenes         []string  `json:"scenes"`
	Streaming      bool      `json:"streaming"`
	StreamTimecode string    `json:"streamTimecode,omitempty"`
	Recording      bool      `json:"recording"`
	RecordPaused   bool      `json:"recordPaused"`
	RecordTimecode string    `json:"recordTimecode,omitempty"`
	RefreshedAt    time.Time `json:"refreshedAt"`
}

// Clone returns a deep copy so callers can never alias mirror internals.
func (s DeviceState) Clone() DeviceState {
	s.Scenes = slices.Clone(s.Scenes)
	return s
}

// DeviceSnapshot is what the device endpoints expose: connection status,
// the last connection error and the mirrored state.
type DeviceSnapshot struct {
	Status    DeviceStatus `json:"status"`
	LastError string       `json:"lastError,omitempty"`
	State     DeviceState  `json:"state"`
}

// DeviceStatusChange is emitted whenever the connection status moves.
type DeviceStatusChange struct {
	From DeviceStatus `json:"from"`
	To   DeviceStatus `json:"to"`
	Err  error        `json:"-"`
	At   time.Time    `json:"at"`
}
