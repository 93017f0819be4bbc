// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// captureRecorder keeps entries in call order.
type captureRecorder struct {
	entries []Entry
}

func (c *captureRecorder) Record(_ context.Context, e Entry) {
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) last(t *testing.T) Entry {
	t.Helper()
	if len(c.entries) == 0 {
		t.Fatal("nothing recorded")
	}
	return c.entries[len(c.entries)-1]
}

type fakeCommander struct {
	err   error
	seq   uint64
	state models.CountdownState
}

func (f *fakeCommander) Publish(_ context.Context, channel, typ string, _ json.RawMessage) (models.Event, error) {
	if f.err != nil {
		return models.Event{}, f.err
	}
	f.seq++
	return models.Event{Channel: models.Channel(channel), Type: models.EventType(typ), Seq: f.seq}, nil
}

func (f *fakeCommander) Countdown(context.Context, string, json.RawMessage) (models.CountdownState, error) {
	if f.err != nil {
		return models.CountdownState{}, f.err
	}
	return f.state, nil
}

func (f *fakeCommander) CountdownState() models.CountdownState { return f.state }

type fakeDevice struct {
	err         error
	disconnects int
}

func (f *fakeDevice) Snapshot() models.DeviceSnapshot { return models.DeviceSnapshot{Status: models.DeviceConnected} }
func (f *fakeDevice) Connect(context.Context) error { return f.err }
func (f *fakeDevice) Disconnect() { f.disconnects++ }
func (f *fakeDevice) Reconnect(context.Context) error { return f.err }
func (f *fakeDevice) SetScene(context.Context, string) error { return f.err }

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"validation", &overlay.ValidationError{Code: overlay.InvalidPayload, Message: "title is required"}, OutcomeRejected},
		{"transition", &countdown.TransitionError{Action: models.EventPause, From: models.CountdownIdle, Reason: "not running"}, OutcomeRejected},
		{"wrapped validation", errors.Join(errors.New("ctx"), &overlay.ValidationError{Code: overlay.InvalidAction}), OutcomeRejected},
		{"other", errors.New("bus closed"), OutcomeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := outcomeOf(tt.err)
			if got != tt.want {
				t.Errorf("outcomeOf() = %s, want %s", got, tt.want)
			}
			if (tt.err == nil) != (msg == "") {
				t.Errorf("message = %q for err %v", msg, tt.err)
			}
		})
	}
}

func TestJournaledCommanderPublish(t *testing.T) {
	rec := &captureRecorder{}
	next := &fakeCommander{}
	c := NewCommander(next, rec)

	event, err := c.Publish(context.Background(), "lower-third", "SHOW", json.RawMessage(`{"title":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	got := rec.last(t)
	if got.Action != ActionOverlayPublish || got.Command != "SHOW" || got.Channel != "lower-third" ||
		got.Seq != event.Seq || got.Outcome != OutcomeSuccess {
		t.Errorf("entry = %+v", got)
	}

	next.err = &overlay.ValidationError{Code: overlay.InvalidAction, Channel: "ticker", Type: "SHOW", Message: "unknown channel"}
	if _, err := c.Publish(context.Background(), "ticker", "SHOW", nil); err == nil {
		t.Fatal("error not propagated")
	}
	got = rec.last(t)
	if got.Outcome != OutcomeRejected || got.Error == "" || got.Seq != 0 {
		t.Errorf("rejected entry = %+v", got)
	}
}

func TestJournaledCommanderCountdown(t *testing.T) {
	rec := &captureRecorder{}
	next := &fakeCommander{state: models.CountdownState{Phase: models.CountdownRunning, TotalSeconds: 300, RemainingSeconds: 300}}
	c := NewCommander(next, rec)

	if _, err := c.Countdown(context.Background(), "start", nil); err != nil {
		t.Fatal(err)
	}
	got := rec.last(t)
	if got.Action != ActionCountdown || got.Command != "start" || got.Channel != "countdown" || got.Detail != "running 300/300" {
		t.Errorf("entry = %+v", got)
	}

	_ = c.CountdownState()
	if len(rec.entries) != 1 {
		t.Errorf("CountdownState was journaled")
	}
}

func TestJournaledDevice(t *testing.T) {
	rec := &captureRecorder{}
	next := &fakeDevice{}
	d := NewDevice(next, rec)

	_ = d.Connect(context.Background())
	d.Disconnect()
	_ = d.Reconnect(context.Background())
	next.err = errors.New("not connected")
	_ = d.SetScene(context.Background(), "Interview")
	_ = d.Snapshot()

	want := []struct {
		action  Action
		command string
		outcome Outcome
	}{
		{ActionDeviceConnect, "connect", OutcomeSuccess},
		{ActionDeviceDisconnect, "disconnect", OutcomeSuccess},
		{ActionDeviceReconnect, "reconnect", OutcomeSuccess},
		{ActionDeviceScene, "scene", OutcomeFailure},
	}
	if len(rec.entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(rec.entries), len(want))
	}
	for i, w := range want {
		e := rec.entries[i]
		if e.Action != w.action || e.Command != w.command || e.Outcome != w.outcome {
			t.Errorf("entry %d = %+v, want %+v", i, e, w)
		}
	}
	if rec.entries[3].Detail != "Interview" {
		t.Errorf("scene detail = %q", rec.entries[3].Detail)
	}
	if next.disconnects != 1 {
		t.Errorf("disconnects = %d", next.disconnects)
	}
}
