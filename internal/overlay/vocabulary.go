// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package overlay

import (
	"reflect"

	"github.com/tomtom215/showrunner/internal/models"
)

type eventSpec struct {
	newPayload func() Payload
	// engineOwned types can only be published through PublishPayload by the
	// engine that owns the channel.
	engineOwned bool
}

func emptyPayload() Payload { return &Empty{} }

func countdownPayload() Payload { return &CountdownPayload{} }

var mediaVocabulary = map[models.EventType]eventSpec{
	models.EventPlay: {newPayload: func() Payload { return &MediaPlay{} }},
	models.EventStop: {newPayload: emptyPayload},
}

var vocabulary = map[models.Channel]map[models.EventType]eventSpec{
	models.ChannelLowerThird: {
		models.EventShow: {newPayload: func() Payload { return &LowerThirdShow{} }},
		models.EventHide: {newPayload: emptyPayload},
	},
	models.ChannelCountdown: {
		models.EventSet:   {newPayload: countdownPayload, engineOwned: true},
		models.EventStart: {newPayload: countdownPayload, engineOwned: true},
		models.EventPause: {newPayload: countdownPayload, engineOwned: true},
		models.EventReset: {newPayload: countdownPayload, engineOwned: true},
		models.EventTick:  {newPayload: countdownPayload, engineOwned: true},
	},
	models.ChannelPoster: {
		models.EventShow: {newPayload: func() Payload { return &PosterShow{} }},
		models.EventHide: {newPayload: emptyPayload},
	},
	models.ChannelPosterBigPicture: {
		models.EventShow: {newPayload: func() Payload { return &PosterBigPictureShow{} }},
		models.EventHide: {newPayload: emptyPayload},
	},
	models.ChannelChatHighlight: {
		models.EventShow: {newPayload: func() Payload { return &ChatHighlightShow{} }},
		models.EventHide: {newPayload: emptyPayload},
	},
	models.ChannelMediaA: mediaVocabulary,
	models.ChannelMediaB: mediaVocabulary,
}

// typeOrder fixes the order in which event types are listed.
var typeOrder = []models.EventType{
	models.EventShow, models.EventHide,
	models.EventSet, models.EventStart, models.EventPause, models.EventReset, models.EventTick,
	models.EventPlay, models.EventStop,
}

// ChannelInfo describes one channel for diagnostics and clients.
type ChannelInfo struct {
	Channel     models.Channel     `json:"channel"`
	Types       []models.EventType `json:"types"`
	EngineOwned bool               `json:"engineOwned"`
	LastSeq     uint64             `json:"lastSeq"`
}

func lookup(channel models.Channel, typ models.EventType) (eventSpec, bool) {
	types, ok := vocabulary[channel]
	if !ok {
		return eventSpec{}, false
	}
	spec, ok := types[typ]
	return spec, ok
}

// Accepts reports whether typ is part of channel's vocabulary.
func Accepts(channel models.Channel, typ models.EventType) bool {
	_, ok := lookup(channel, typ)
	return ok
}

func samePayloadType(spec eventSpec, p Payload) bool {
	return reflect.TypeOf(spec.newPayload()) == reflect.TypeOf(p)
}
