// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
Package models defines the types shared between the overlay bus, the
countdown engine, the device mirror and the transports.

  - Channel, EventType: the fixed overlay vocabulary
  - Event: one published overlay event with its per-channel sequence number
  - CountdownState, CountdownDisplay: the countdown snapshot sent with every
    countdown event and as STATE catch-up
  - DeviceStatus, DeviceState, DeviceSnapshot: the OBS connection and mirror
  - ConnectionStats: gateway counters

JSON field names are camelCase because renderers consume these types
directly.
*/
package models
