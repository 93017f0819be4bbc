// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// Recorder is the write side of a Journal.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Commander is the command surface shared by the HTTP API and the websocket
// gateway. control.Dispatcher satisfies it.
type Commander interface {
	Publish(ctx context.Context, channel, typ string, raw json.RawMessage) (models.Event, error)
	Countdown(ctx context.Context, action string, raw json.RawMessage) (models.CountdownState, error)
	CountdownState() models.CountdownState
}

// JournaledCommander records every command passing through it.
type JournaledCommander struct {
	next    Commander
	journal Recorder
}

// NewCommander wraps next.
func NewCommander(next Commander, journal Recorder) *JournaledCommander {
	return &JournaledCommander{next: next, journal: journal}
}

// Publish implements Commander.
func (c *JournaledCommander) Publish(ctx context.Context, channel, typ string, raw json.RawMessage) (models.Event, error) {
	event, err := c.next.Publish(ctx, channel, typ, raw)
	outcome, msg := outcomeOf(err)
	c.journal.Record(ctx, Entry{
		Action:  ActionOverlayPublish,
		Command: typ,
		Channel: channel,
		Seq:     event.Seq,
		Outcome: outcome,
		Error:   msg,
	})
	return event, err
}

// Countdown implements Commander.
func (c *JournaledCommander) Countdown(ctx context.Context, action string, raw json.RawMessage) (models.CountdownState, error) {
	state, err := c.next.Countdown(ctx, action, raw)
	outcome, msg := outcomeOf(err)
	entry := Entry{
		Action:  ActionCountdown,
		Command: action,
		Channel: string(models.ChannelCountdown),
		Outcome: outcome,
		Error:   msg,
	}
	if err == nil {
		entry.Detail = fmt.Sprintf("%s %d/%d", state.Phase, state.RemainingSeconds, state.TotalSeconds)
	}
	c.journal.Record(ctx, entry)
	return state, err
}

// CountdownState is a read and is not journaled.
func (c *JournaledCommander) CountdownState() models.CountdownState {
	return c.next.CountdownState()
}

// Device is the device control surface of the HTTP API. device.Manager
// satisfies it.
type Device interface {
	Snapshot() models.DeviceSnapshot
	Connect(ctx context.Context) error
	Disconnect()
	Reconnect(ctx context.Context) error
	SetScene(ctx context.Context, scene string) error
}

// JournaledDevice records device operations.
type JournaledDevice struct {
	next    Device
	journal Recorder
}

// NewDevice wraps next.
func NewDevice(next Device, journal Recorder) *JournaledDevice {
	return &JournaledDevice{next: next, journal: journal}
}

// Snapshot is a read and is not journaled.
func (d *JournaledDevice) Snapshot() models.DeviceSnapshot {
	return d.next.Snapshot()
}

// Connect implements Device.
func (d *JournaledDevice) Connect(ctx context.Context) error {
	err := d.next.Connect(ctx)
	d.record(ctx, ActionDeviceConnect, "", err)
	return err
}

// Disconnect implements Device.
func (d *JournaledDevice) Disconnect() {
	d.next.Disconnect()
	d.record(context.Background(), ActionDeviceDisconnect, "", nil)
}

// Reconnect implements Device.
func (d *JournaledDevice) Reconnect(ctx context.Context) error {
	err := d.next.Reconnect(ctx)
	d.record(ctx, ActionDeviceReconnect, "", err)
	return err
}

// SetScene implements Device.
func (d *JournaledDevice) SetScene(ctx context.Context, scene string) error {
	err := d.next.SetScene(ctx, scene)
	d.record(ctx, ActionDeviceScene, scene, err)
	return err
}

func (d *JournaledDevice) record(ctx context.Context, action Action, detail string, err error) {
	outcome, msg := outcomeOf(err)
	d.journal.Record(ctx, Entry{
		Action:  action,
		Command: string(action)[len("device."):],
		Detail:  detail,
		Outcome: outcome,
		Error:   msg,
	})
}

// outcomeOf classifies a command error.
func outcomeOf(err error) (Outcome, string) {
	if err == nil {
		return OutcomeSuccess, ""
	}
	var (
		verr *overlay.ValidationError
		terr *countdown.TransitionError
	)
	if errors.As(err, &verr) || errors.As(err, &terr) {
		return OutcomeRejected, err.Error()
	}
	return OutcomeFailure, err.Error()
}
