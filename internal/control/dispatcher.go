// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package control is the action layer shared by the HTTP API and WebSocket
// command sessions (Stream Deck bridge). Both call the same Dispatcher, so
// enrichment and validation do not depend on who sent the command.
package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/content"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// Countdown actions.
const (
	ActionSet   = "set"
	ActionStart = "start"
	ActionPause = "pause"
	ActionReset = "reset"
)

// OverlayPublisher is the overlay manager's raw publish path.
type OverlayPublisher interface {
	Publish(channel, typ string, raw json.RawMessage) (models.Event, error)
}

// CountdownController drives the countdown engine.
type CountdownController interface {
	Set(seconds uint32, display *models.CountdownDisplay) (models.CountdownState, error)
	Start() (models.CountdownState, error)
	Pause() (models.CountdownState, error)
	Reset() (models.CountdownState, error)
	State() models.CountdownState
}

// Dispatcher executes control commands.
type Dispatcher struct {
	overlays  OverlayPublisher
	countdown CountdownController
	content   content.Provider
	logger    zerolog.Logger
}

// NewDispatcher wires the dispatcher. provider may be nil, which disables
// enrichment.
func NewDispatcher(overlays OverlayPublisher, countdown CountdownController, provider content.Provider) *Dispatcher {
	return &Dispatcher{
		overlays:  overlays,
		countdown: countdown,
		content:   provider,
		logger:    logging.WithComponent("control"),
	}
}

// Publish enriches SHOW payloads and publishes them.
func (d *Dispatcher) Publish(ctx context.Context, channel, typ string, raw json.RawMessage) (models.Event, error) {
	enriched, err := d.enrich(ctx, channel, typ, raw)
	if err != nil {
		return models.Event{}, err
	}
	return d.overlays.Publish(channel, typ, enriched)
}

// CountdownSetRequest is the body of a countdown SET command.
type CountdownSetRequest struct {
	Seconds  *uint32        `json:"seconds"`
	Style    string         `json:"style,omitempty"`
	Format   string         `json:"format,omitempty"`
	Position string         `json:"position,omitempty"`
	Size     string         `json:"size,omitempty"`
	Theme    map[string]any `json:"theme,omitempty"`
}

// Countdown runs one countdown action. raw is only read for "set".
func (d *Dispatcher) Countdown(_ context.Context, action string, raw json.RawMessage) (models.CountdownState, error) {
	switch action {
	case ActionSet:
		var req CountdownSetRequest
		if err := decodeStrict(raw, &req); err != nil {
			return models.CountdownState{}, countdownPayloadError(err.Error())
		}
		if req.Seconds == nil {
			return models.CountdownState{}, countdownPayloadError("seconds is required")
		}
		display := &models.CountdownDisplay{
			Style:    req.Style,
			Format:   req.Format,
			Position: req.Position,
			Size:     req.Size,
			Theme:    req.Theme,
		}
		return d.countdown.Set(*req.Seconds, display)
	case ActionStart:
		return d.countdown.Start()
	case ActionPause:
		return d.countdown.Pause()
	case ActionReset:
		return d.countdown.Reset()
	default:
		return models.CountdownState{}, &overlay.ValidationError{
			Code:    overlay.InvalidAction,
			Channel: string(models.ChannelCountdown),
			Type:    action,
			Message: "unknown countdown action",
		}
	}
}

// CountdownState returns the current countdown state.
func (d *Dispatcher) CountdownState() models.CountdownState {
	return d.countdown.State()
}

func countdownPayloadError(msg string) error {
	return &overlay.ValidationError{
		Code:    overlay.InvalidPayload,
		Channel: string(models.ChannelCountdown),
		Type:    string(models.EventSet),
		Message: msg,
	}
}

// enrich fills the lower-third theme from profileId and the poster url and
// title from posterId. Anything it cannot parse is passed through for the
// overlay manager to reject.
func (d *Dispatcher) enrich(ctx context.Context, channel, typ string, raw json.RawMessage) (json.RawMessage, error) {
	if d.content == nil || typ != string(models.EventShow) {
		return raw, nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return raw, nil
	}

	var changed bool
	var err error
	switch models.Channel(channel) {
	case models.ChannelLowerThird:
		changed = d.enrichLowerThird(ctx, body)
	case models.ChannelPoster, models.ChannelPosterBigPicture:
		changed, err = d.enrichPoster(ctx, channel, body)
	}
	if err != nil || !changed {
		return raw, err
	}

	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("re-encoding enriched payload: %w", err)
	}
	return out, nil
}

func (d *Dispatcher) enrichLowerThird(ctx context.Context, body map[string]any) bool {
	profileID, _ := body["profileId"].(string)
	if profileID == "" {
		return false
	}
	if _, has := body["theme"]; has {
		return false
	}

	theme, err := d.content.ThemeForProfile(ctx, profileID)
	if err != nil {
		// A missing theme only changes styling; publish with renderer defaults.
		if !errors.Is(err, content.ErrNotFound) {
			d.logger.Warn().Err(err).Str("profile_id", profileID).Msg("Theme lookup failed")
		}
		return false
	}
	body["theme"] = theme
	return true
}

func (d *Dispatcher) enrichPoster(ctx context.Context, channel string, body map[string]any) (bool, error) {
	posterID, _ := body["posterId"].(string)
	if posterID == "" {
		return false, nil
	}
	if url, _ := body["url"].(string); url != "" {
		return false, nil
	}

	notFound := &overlay.ValidationError{
		Code:    overlay.InvalidPayload,
		Channel: channel,
		Type:    string(models.EventShow),
		Message: fmt.Sprintf("posterId %q is not in the active poster set", posterID),
	}

	set, err := d.content.ActivePosterSet(ctx)
	if errors.Is(err, content.ErrNotFound) {
		return false, notFound
	}
	if err != nil {
		return false, fmt.Errorf("poster set lookup: %w", err)
	}
	poster, ok := set.Find(posterID)
	if !ok {
		return false, notFound
	}

	body["url"] = poster.URL
	if title, _ := body["title"].(string); title == "" && poster.Title != "" {
		body["title"] = poster.Title
	}
	return true, nil
}

func decodeStrict(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
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
