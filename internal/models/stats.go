// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package models

// ConnectionStats is the transport read model for health and debug endpoints.
type ConnectionStats struct {
	IsRunning                 bool            `json:"isRunning"`
	TotalClients              int             `json:"totalClients"`
	PerChannelSubscriberCount map[Channel]int `json:"perChannelSubscriberCount"`
	DroppedMessages           uint64          `json:"droppedMessages"`
}
