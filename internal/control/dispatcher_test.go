// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package control

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/content"
	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	overlays := overlay.NewManager(bus)
	engine := countdown.NewEngine(overlays)
	provider := content.NewStaticProvider(
		map[string]map[string]any{"guest-1": {"accent": "#00ff00"}},
		map[string][]content.Poster{"main": {{ID: "p1", URL: "https://cdn.example.com/p1.png", Title: "Poster One"}}},
		"main",
	)
	return NewDispatcher(overlays, engine, provider), bus
}

func TestPublish_EnrichesLowerThirdTheme(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ev, err := d.Publish(context.Background(), "lower-third", "SHOW", json.RawMessage(`{"title":"Guest","profileId":"guest-1"}`))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	p := ev.Payload.(*overlay.LowerThirdShow)
	if p.Theme["accent"] != "#00ff00" {
		t.Errorf("theme = %v, want enriched", p.Theme)
	}
}

func TestPublish_ExplicitThemeWins(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ev, err := d.Publish(context.Background(), "lower-third", "SHOW",
		json.RawMessage(`{"title":"Guest","profileId":"guest-1","theme":{"accent":"#123456"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := ev.Payload.(*overlay.LowerThirdShow).Theme["accent"]; got != "#123456" {
		t.Errorf("accent = %v, want explicit theme", got)
	}
}

func TestPublish_UnknownProfilePublishesWithoutTheme(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ev, err := d.Publish(context.Background(), "lower-third", "SHOW", json.RawMessage(`{"title":"Guest","profileId":"nobody"}`))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if theme := ev.Payload.(*overlay.LowerThirdShow).Theme; theme != nil {
		t.Errorf("theme = %v, want nil", theme)
	}
}

func TestPublish_ResolvesPoster(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, ch := range []string{"poster", "poster-bigpicture"} {
		ev, err := d.Publish(context.Background(), ch, "SHOW", json.RawMessage(`{"posterId":"p1"}`))
		if err != nil {
			t.Fatalf("%s Publish() error = %v", ch, err)
		}
		data, _ := json.Marshal(ev.Payload)
		var got map[string]any
		_ = json.Unmarshal(data, &got)
		if got["url"] != "https://cdn.example.com/p1.png" || got["title"] != "Poster One" {
			t.Errorf("%s payload = %v", ch, got)
		}
	}
}

func TestPublish_UnknownPoster(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Publish(context.Background(), "poster", "SHOW", json.RawMessage(`{"posterId":"missing"}`))

	var verr *overlay.ValidationError
	if !errors.As(err, &verr) || verr.Code != overlay.InvalidPayload {
		t.Fatalf("error = %v, want InvalidPayload", err)
	}
}

func TestPublish_PassesThroughInvalidJSON(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Publish(context.Background(), "lower-third", "SHOW", json.RawMessage(`not json`))

	var verr *overlay.ValidationError
	if !errors.As(err, &verr) || verr.Code != overlay.InvalidPayload {
		t.Fatalf("error = %v, want InvalidPayload", err)
	}
}

func TestPublish_NilProvider(t *testing.T) {
	bus := eventbus.New()
	overlays := overlay.NewManager(bus)
	d := NewDispatcher(overlays, countdown.NewEngine(overlays), nil)

	if _, err := d.Publish(context.Background(), "lower-third", "SHOW", json.RawMessage(`{"title":"x","profileId":"guest-1"}`)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestCountdown(t *testing.T) {
	d, bus := newTestDispatcher(t)
	var types []models.EventType
	bus.Subscribe(models.ChannelCountdown, "test", func(e models.Event) error {
		types = append(types, e.Type)
		return nil
	})

	st, err := d.Countdown(context.Background(), ActionSet, json.RawMessage(`{"seconds":90,"format":"ss"}`))
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if st.TotalSeconds != 90 || st.Display.Format != "ss" {
		t.Errorf("state = %+v", st)
	}

	if _, err := d.Countdown(context.Background(), ActionStart, nil); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if _, err := d.Countdown(context.Background(), ActionPause, nil); err != nil {
		t.Fatalf("pause error = %v", err)
	}
	if _, err := d.Countdown(context.Background(), ActionReset, nil); err != nil {
		t.Fatalf("reset error = %v", err)
	}

	want := []models.EventType{models.EventSet, models.EventStart, models.EventPause, models.EventReset}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
	if d.CountdownState().Running {
		t.Error("countdown running after reset")
	}
}

func TestCountdown_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name   string
		action string
		body   string
		check  func(error) bool
	}{
		{"missing seconds", ActionSet, `{}`, isValidation(overlay.InvalidPayload)},
		{"unknown field", ActionSet, `{"seconds":5,"color":"red"}`, isValidation(overlay.InvalidPayload)},
		{"trailing data", ActionSet, `{"seconds":5} {"seconds":6}`, isValidation(overlay.InvalidPayload)},
		{"too long", ActionSet, `{"seconds":90000}`, isValidation(overlay.InvalidPayload)},
		{"unknown action", "rewind", ``, isValidation(overlay.InvalidAction)},
		{"start at zero", ActionStart, ``, func(err error) bool {
			var terr *countdown.TransitionError
			return errors.As(err, &terr)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Countdown(context.Background(), tt.action, json.RawMessage(tt.body))
			if !tt.check(err) {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func isValidation(code overlay.ErrorCode) func(error) bool {
	return func(err error) bool {
		var verr *overlay.ValidationError
		return errors.As(err, &verr) && verr.Code == code
	}
}
