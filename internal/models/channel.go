// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package models holds the value types shared by the overlay control plane:
// channels, events, countdown state, device state and transport statistics.
package models

import "slices"

// Channel identifies one overlay surface. The set is fixed at compile time.
type Channel string

const (
	ChannelLowerThird       Channel = "lower-third"
	ChannelCountdown        Channel = "countdown"
	ChannelPoster           Channel = "poster"
	ChannelPosterBigPicture Channel = "poster-bigpicture"
	ChannelChatHighlight    Channel = "chat-highlight"
	ChannelMediaA           Channel = "media-a"
	ChannelMediaB           Channel = "media-b"
)

var allChannels = []Channel{
	ChannelLowerThird,
	ChannelCountdown,
	ChannelPoster,
	ChannelPosterBigPicture,
	ChannelChatHighlight,
	ChannelMediaA,
	ChannelMediaB,
}

// AllChannels returns every overlay channel in declaration order.
func AllChannels() []Channel {
	return slices.Clone(allChannels)
}

// ParseChannel converts a wire name to a Channel.
func ParseChannel(name string) (Channel, bool) {
	c := Channel(name)
	if slices.Contains(allChannels, c) {
		return c, true
	}
	return "", false
}

func (c Channel) String() string {
	return string(c)
}

// EventType names an action within a channel's vocabulary.
type EventType string

const (
	EventShow  EventType = "SHOW"
	EventHide  EventType = "HIDE"
	EventSet   EventType = "SET"
	EventStart EventType = "START"
	EventPause EventType = "PAUSE"
	EventReset EventType = "RESET"
	EventTick  EventType = "TICK"
	EventPlay  EventType = "PLAY"
	EventStop  EventType = "STOP"

	// EventState is only sent by the transport to a renderer that just
	// subscribed to a channel with catch-up state (countdown). It never
	// passes through the event bus and does not advance the sequence.
	EventState EventType = "STATE"
)

func (t EventType) String() string {
	return string(t)
}
