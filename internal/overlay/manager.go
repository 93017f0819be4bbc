// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package overlay is the domain layer over the event bus. It knows the fixed
// set of overlay channels and their event vocabularies, decodes and
// validates inbound payloads, applies defaults once, stamps a per-channel
// sequence number and publishes.
//
// Enrichment of SHOW payloads (themes, poster lookups) happens upstream in
// the control dispatcher; the manager only forwards what it is given.
package overlay

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/validation"
)

// Publisher is the part of the event bus the manager needs.
type Publisher interface {
	Publish(models.Event) eventbus.Result
}

type channelState struct {
	// mu covers sequence stamping and bus delivery so that wire order
	// equals sequence order.
	mu  sync.Mutex
	seq atomic.Uint64
}

// Manager validates, normalizes and publishes overlay events.
type Manager struct {
	bus      Publisher
	channels map[models.Channel]*channelState
	now      func() time.Time
	logger   zerolog.Logger
}

// NewManager creates a manager publishing to bus.
func NewManager(bus Publisher) *Manager {
	m := &Manager{
		bus:      bus,
		channels: make(map[models.Channel]*channelState, len(vocabulary)),
		now:      time.Now,
		logger:   logging.WithComponent("overlay"),
	}
	for _, ch := range models.AllChannels() {
		m.channels[ch] = &channelState{}
	}
	return m
}

// Publish decodes raw as the payload for (channel, typ), applies defaults,
// validates and publishes. Engine-owned types are rejected with
// InvalidAction.
func (m *Manager) Publish(channel, typ string, raw json.RawMessage) (models.Event, error) {
	ch, spec, err := m.resolve(channel, typ)
	if err != nil {
		return models.Event{}, err
	}
	if spec.engineOwned {
		return models.Event{}, m.reject(invalidAction(channel, typ, "event type is controlled by the countdown engine"))
	}

	payload := spec.newPayload()
	if err := decodePayload(raw, payload); err != nil {
		return models.Event{}, m.reject(invalidPayload(channel, typ, err.Error(), nil))
	}

	return m.publish(ch, models.EventType(typ), payload)
}

// PublishPayload publishes an already typed payload. It is the only path for
// engine-owned event types.
func (m *Manager) PublishPayload(channel models.Channel, typ models.EventType, payload Payload) (models.Event, error) {
	spec, ok := lookup(channel, typ)
	if !ok {
		return models.Event{}, m.reject(invalidAction(string(channel), string(typ), "unknown channel or event type"))
	}
	if payload == nil {
		payload = spec.newPayload()
	}
	if !samePayloadType(spec, payload) {
		return models.Event{}, m.reject(invalidPayload(string(channel), string(typ), "payload type does not match event type", nil))
	}
	return m.publish(channel, typ, payload)
}

func (m *Manager) resolve(channel, typ string) (models.Channel, eventSpec, error) {
	ch, ok := models.ParseChannel(channel)
	if !ok {
		return "", eventSpec{}, m.reject(invalidAction(channel, typ, "unknown channel"))
	}
	spec, ok := lookup(ch, models.EventType(typ))
	if !ok {
		return "", eventSpec{}, m.reject(invalidAction(channel, typ, "event type not supported on this channel"))
	}
	return ch, spec, nil
}

func (m *Manager) publish(ch models.Channel, typ models.EventType, payload Payload) (models.Event, error) {
	payload.applyDefaults()
	if verr := validation.ValidateStruct(payload); verr != nil {
		return models.Event{}, m.reject(invalidPayload(string(ch), string(typ), verr.Error(), verr.Errors()))
	}

	state := m.channels[ch]
	state.mu.Lock()
	defer state.mu.Unlock()

	event := models.Event{
		Channel: ch,
		Type:    typ,
		Payload: payload,
		Seq:     state.seq.Add(1),
		SentAt:  m.now().UTC(),
	}
	res := m.bus.Publish(event)

	metrics.OverlayEventsPublished.WithLabelValues(string(ch), string(typ)).Inc()
	if typ != models.EventTick {
		m.logger.Debug().
			Str("channel", string(ch)).
			Str("type", string(typ)).
			Uint64("seq", event.Seq).
			Int("delivered", res.Delivered).
			Int("failed", res.Failed).
			Msg("Overlay event published")
	}
	return event, nil
}

// reject records a validation failure. Rejections are user input errors and
// are logged at debug only.
func (m *Manager) reject(err *ValidationError) error {
	metrics.OverlayValidationFailures.WithLabelValues(err.Channel, string(err.Code)).Inc()
	m.logger.Debug().
		Str("channel", err.Channel).
		Str("type", err.Type).
		Str("code", string(err.Code)).
		Msg(err.Message)
	return err
}

// LastSeq returns the sequence number of the latest event on channel, or 0.
func (m *Manager) LastSeq(channel models.Channel) uint64 {
	if state, ok := m.channels[channel]; ok {
		return state.seq.Load()
	}
	return 0
}

// Channels describes every channel with its vocabulary and last sequence.
func (m *Manager) Channels() []ChannelInfo {
	all := models.AllChannels()
	out := make([]ChannelInfo, 0, len(all))
	for _, ch := range all {
		info := ChannelInfo{Channel: ch, LastSeq: m.LastSeq(ch)}
		for _, typ := range typeOrder {
			if spec, ok := lookup(ch, typ); ok {
				info.Types = append(info.Types, typ)
				info.EngineOwned = info.EngineOwned || spec.engineOwned
			}
		}
		out = append(out, info)
	}
	return out
}

// decodePayload treats an absent or null payload as an empty object and
// rejects unknown fields and trailing data.
func decodePayload(raw json.RawMessage, dst Payload) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
