// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package countdown implements the server-authoritative countdown timer.
//
// The engine is the single writer of the countdown state. Every transition
// and every tick runs under one mutex and publishes through the overlay
// manager while holding it, so the event stream always matches the state
// sequence. There is one ticker per engine; PAUSE and RESET invalidate it by
// bumping a generation counter before they return, so a tick that was
// already in flight is discarded instead of published.
package countdown

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// Publisher is the overlay manager path used for countdown events.
type Publisher interface {
	PublishPayload(channel models.Channel, typ models.EventType, payload overlay.Payload) (models.Event, error)
}

// Ticker is the subset of *time.Ticker the engine uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval overrides the one second tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithTickerFactory replaces the ticker constructor. Used by tests to drive
// ticks by hand.
func WithTickerFactory(f func(time.Duration) Ticker) Option {
	return func(e *Engine) { e.newTicker = f }
}

// WithDefaultDisplay sets the display options used when SET omits them.
func WithDefaultDisplay(d models.CountdownDisplay) Option {
	return func(e *Engine) { e.defaults = d }
}

// Engine owns the countdown state machine.
type Engine struct {
	mu        sync.Mutex
	state     models.CountdownState
	gen       uint64
	stop      chan struct{}
	publisher Publisher
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	defaults  models.CountdownDisplay
	logger    zerolog.Logger
}

// NewEngine creates an idle engine at zero.
func NewEngine(publisher Publisher, opts ...Option) *Engine {
	e := &Engine{
		publisher: publisher,
		interval:  time.Second,
		newTicker: newTimeTicker,
		logger:    logging.WithComponent("countdown"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = models.CountdownState{Phase: models.CountdownIdle, Display: e.defaults}
	overlay.ApplyCountdownDefaults(&e.state.Display)
	return e
}

// Set loads a new duration and display options. It is valid in every state
// and keeps the running flag, except that setting zero while running stops
// the timer.
func (e *Engine) Set(seconds uint32, display *models.CountdownDisplay) (models.CountdownState, error) {
	if seconds > overlay.MaxCountdownSeconds {
		return models.CountdownState{}, &overlay.ValidationError{
			Code:    overlay.InvalidPayload,
			Channel: string(models.ChannelCountdown),
			Type:    string(models.EventSet),
			Message: fmt.Sprintf("seconds must be at most %d", overlay.MaxCountdownSeconds),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	next.TotalSeconds = seconds
	next.RemainingSeconds = seconds
	if display != nil {
		next.Display = mergeDisplay(e.defaults, *display)
	}
	if seconds == 0 && next.Running {
		next.Running = false
		next.Phase = models.CountdownIdle
	}

	committed, err := e.publishLocked(models.EventSet, next)
	if err != nil {
		return models.CountdownState{}, err
	}
	if !committed.Running {
		e.cancelLocked()
	}
	return e.snapshotLocked(), nil
}

// Start begins ticking. Starting while already running is a no-op.
func (e *Engine) Start() (models.CountdownState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase == models.CountdownRunning {
		return e.snapshotLocked(), nil
	}
	if e.state.RemainingSeconds == 0 {
		return models.CountdownState{}, e.rejectLocked(models.EventStart, "remaining time is zero; SET first")
	}

	next := e.state
	next.Running = true
	next.Phase = models.CountdownRunning
	if _, err := e.publishLocked(models.EventStart, next); err != nil {
		return models.CountdownState{}, err
	}
	e.armLocked()
	return e.snapshotLocked(), nil
}

// Pause stops ticking. Only valid while running.
func (e *Engine) Pause() (models.CountdownState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != models.CountdownRunning {
		return models.CountdownState{}, e.rejectLocked(models.EventPause, "countdown is not running")
	}

	next := e.state
	next.Running = false
	next.Phase = models.CountdownPaused
	if _, err := e.publishLocked(models.EventPause, next); err != nil {
		return models.CountdownState{}, err
	}
	// Cancelled only once PAUSE is committed, so a failed publish keeps ticking.
	e.cancelLocked()
	return e.snapshotLocked(), nil
}

// Reset restores the remaining time to the total and goes idle.
func (e *Engine) Reset() (models.CountdownState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	next.RemainingSeconds = next.TotalSeconds
	next.Running = false
	next.Phase = models.CountdownIdle
	if _, err := e.publishLocked(models.EventReset, next); err != nil {
		return models.CountdownState{}, err
	}
	e.cancelLocked()
	return e.snapshotLocked(), nil
}

// State returns a copy of the current state.
func (e *Engine) State() models.CountdownState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Snapshot returns the catch-up payload sent to a renderer that subscribes
// to the countdown channel.
func (e *Engine) Snapshot() any {
	st := e.State()
	return &overlay.CountdownPayload{CountdownState: st}
}

// Serve blocks until ctx is cancelled, then stops the ticker. It lets the
// engine run under the supervisor.
func (e *Engine) Serve(ctx context.Context) error {
	e.logger.Info().Dur("tick_interval", e.interval).Msg("Countdown engine started")
	<-ctx.Done()

	e.mu.Lock()
	e.cancelLocked()
	if e.state.Running {
		e.state.Running = false
		e.state.Phase = models.CountdownPaused
	}
	e.mu.Unlock()

	e.logger.Info().Msg("Countdown engine stopped")
	return ctx.Err()
}

// tick is called by the ticker goroutine armed for generation gen. It
// returns false once that goroutine should exit.
func (e *Engine) tick(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.state.Phase != models.CountdownRunning {
		return false
	}

	next := e.state
	if next.RemainingSeconds > 0 {
		next.RemainingSeconds--
	}
	done := next.RemainingSeconds == 0
	if done {
		next.Running = false
		next.Phase = models.CountdownIdle
	}

	if _, err := e.publishLocked(models.EventTick, next); err != nil {
		// The state itself was valid a moment ago; keep counting so renderers
		// recover on the next tick.
		e.logger.Error().Err(err).Msg("Failed to publish countdown tick")
		e.state = next
	}

	if done {
		e.cancelLocked()
		e.logger.Info().Uint32("total_seconds", next.TotalSeconds).Msg("Countdown finished")
		return false
	}
	return true
}

func (e *Engine) armLocked() {
	e.cancelLocked()
	stop := make(chan struct{})
	e.stop = stop
	gen := e.gen
	t := e.newTicker(e.interval)

	go func() {
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				if !e.tick(gen) {
					return
				}
			}
		}
	}()
}

// cancelLocked invalidates the current ticker. Any tick already waiting on
// the mutex sees a stale generation and does nothing.
func (e *Engine) cancelLocked() {
	e.gen++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// publishLocked publishes next and commits it on success. The returned
// state has defaults applied.
func (e *Engine) publishLocked(typ models.EventType, next models.CountdownState) (models.CountdownState, error) {
	payload := &overlay.CountdownPayload{CountdownState: next}
	payload.Display.Theme = maps.Clone(next.Display.Theme)
	if _, err := e.publisher.PublishPayload(models.ChannelCountdown, typ, payload); err != nil {
		return models.CountdownState{}, err
	}
	e.state = payload.CountdownState
	metrics.RecordCountdown(e.state.RemainingSeconds, e.state.Running)
	if typ != models.EventTick {
		e.logger.Debug().
			Str("action", string(typ)).
			Uint32("remaining_seconds", e.state.RemainingSeconds).
			Str("phase", string(e.state.Phase)).
			Msg("Countdown transition")
	}
	return e.state, nil
}

func (e *Engine) rejectLocked(action models.EventType, reason string) error {
	metrics.CountdownTransitionsRejected.WithLabelValues(string(action)).Inc()
	return &TransitionError{Action: action, From: e.state.Phase, Reason: reason}
}

func (e *Engine) snapshotLocked() models.CountdownState {
	st := e.state
	st.Display.Theme = maps.Clone(st.Display.Theme)
	return st
}

// mergeDisplay overlays the non-empty options of d on base.
func mergeDisplay(base, d models.CountdownDisplay) models.CountdownDisplay {
	out := base
	if d.Style != "" {
		out.Style = d.Style
	}
	if d.Format != "" {
		out.Format = d.Format
	}
	if d.Position != "" {
		out.Position = d.Position
	}
	if d.Size != "" {
		out.Size = d.Size
	}
	if d.Theme != nil {
		out.Theme = maps.Clone(d.Theme)
	}
	return out
}
