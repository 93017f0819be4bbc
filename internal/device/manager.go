// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package device manages the control connection to the production software
// (OBS Studio over obs-websocket v5) and mirrors its state locally.
//
// All status transitions run under one operation mutex, so a Connect racing
// a Disconnect ends in the status of whichever ran last. Connect never
// retries on its own. When the socket closes without being asked to, the
// manager reports Disconnected and, if auto-reconnect is enabled, schedules
// reconnect attempts on a separate goroutine with exponential backoff behind
// a circuit breaker. Disconnect cancels that schedule.
package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/showrunner/internal/breaker"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
)

// Config configures the manager.
type Config struct {
	URL string

	// SettleInterval is the pause between the disconnect and connect halves
	// of Reconnect.
	SettleInterval time.Duration

	// RefreshTimeout bounds the mirror refresh after a connect.
	RefreshTimeout time.Duration

	ConnectOnStartup bool
	AutoReconnect    bool

	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration
	// ReconnectMaxElapsed stops scheduled reconnects; zero never stops.
	ReconnectMaxElapsed time.Duration

	Breaker breaker.Config
}

// StatusListener receives status changes. It runs with the operation mutex
// held and must not call back into the manager.
type StatusListener func(models.DeviceStatusChange)

// Manager owns the device connection and its mirror.
type Manager struct {
	cfg    Config
	dialer Dialer
	mirror *Mirror
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger zerolog.Logger

	// opMu serializes Connect, Disconnect, Reconnect and the reconnect
	// scheduler.
	opMu            sync.Mutex
	baseCtx         context.Context
	conn            Conn
	reconnectCancel context.CancelFunc

	// mu guards the fields read by Status and Snapshot.
	mu        sync.RWMutex
	status    models.DeviceStatus
	lastError error

	listenersMu sync.RWMutex
	listeners   []StatusListener
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config, dialer Dialer) *Manager {
	if cfg.SettleInterval < 0 {
		cfg.SettleInterval = 0
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Second
	}
	if cfg.ReconnectInitialInterval <= 0 {
		cfg.ReconnectInitialInterval = time.Second
	}
	if cfg.ReconnectMaxInterval <= 0 {
		cfg.ReconnectMaxInterval = 30 * time.Second
	}

	m := &Manager{
		cfg:     cfg,
		dialer:  dialer,
		mirror:  NewMirror(),
		cb:      breaker.New[struct{}]("device-reconnect", cfg.Breaker),
		logger:  logging.WithComponent("device"),
		baseCtx: context.Background(),
		status:  models.DeviceDisconnected,
	}
	metrics.SetDeviceStatus(string(models.DeviceDisconnected))
	return m
}

// OnStatusChange registers a listener for status transitions.
func (m *Manager) OnStatusChange(fn StatusListener) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// Status returns the current connection status.
func (m *Manager) Status() models.DeviceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastError returns the error of the last failed connect or unsolicited
// close, or nil.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// State returns the mirrored device state without network I/O.
func (m *Manager) State() models.DeviceState {
	return m.mirror.State()
}

// Snapshot returns status, last error and mirror together.
func (m *Manager) Snapshot() models.DeviceSnapshot {
	m.mu.RLock()
	snap := models.DeviceSnapshot{Status: m.status}
	if m.lastError != nil {
		snap.LastError = m.lastError.Error()
	}
	m.mu.RUnlock()
	snap.State = m.mirror.State()
	return snap
}

// Connect opens the control socket and refreshes the mirror. Connecting
// while connected is a no-op. On failure the status is Disconnected,
// LastError is set and the mirror is left alone.
//
// If the socket opens but the refresh fails the manager stays Connected,
// keeps the previous mirror, and returns a *ConnectionError with Op
// "refresh".
func (m *Manager) Connect(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.conn != nil {
		return nil
	}
	m.cancelReconnectLocked()
	err := m.connectLocked(ctx)
	metrics.RecordDeviceConnect("manual", err)
	return err
}

// Disconnect closes the socket if open and cancels any scheduled reconnect.
// It returns after the session read loop has exited, so no device event is
// ingested afterwards. Idempotent.
func (m *Manager) Disconnect() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.disconnectLocked()
}

// Reconnect disconnects, waits the settle interval and connects. A failed
// connect leaves the manager Disconnected and the error is returned; there
// is no retry.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.disconnectLocked()

	if m.cfg.SettleInterval > 0 {
		timer := time.NewTimer(m.cfg.SettleInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return &ConnectionError{Op: "reconnect", URL: m.cfg.URL, Err: ctx.Err()}
		}
	}

	err := m.connectLocked(ctx)
	metrics.RecordDeviceConnect("manual", err)
	return err
}

// SetScene switches the program scene.
func (m *Manager) SetScene(ctx context.Context, scene string) error {
	m.opMu.Lock()
	conn := m.conn
	m.opMu.Unlock()

	if conn == nil {
		return &ConnectionError{Op: "set scene", URL: m.cfg.URL, Err: errors.New("not connected")}
	}
	return conn.Request(ctx, RequestSetCurrentProgramScene, setSceneRequest{SceneName: scene}, nil)
}

// Serve runs the manager under the supervisor. It connects on startup when
// configured, and disconnects when ctx is cancelled.
func (m *Manager) Serve(ctx context.Context) error {
	m.opMu.Lock()
	m.baseCtx = ctx
	m.opMu.Unlock()

	if m.cfg.ConnectOnStartup {
		if err := m.Connect(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Initial device connect failed")
			if m.cfg.AutoReconnect && m.Status() == models.DeviceDisconnected {
				m.opMu.Lock()
				if m.conn == nil && m.reconnectCancel == nil {
					m.scheduleReconnectLocked()
				}
				m.opMu.Unlock()
			}
		}
	}

	<-ctx.Done()
	m.Disconnect()
	return ctx.Err()
}

func (m *Manager) connectLocked(ctx context.Context) error {
	m.setStatusLocked(models.DeviceConnecting, nil)

	conn, err := m.dialer.Dial(ctx, m.handleEvent)
	if err != nil {
		m.setStatusLocked(models.DeviceDisconnected, err)
		m.logger.Warn().Err(err).Str("url", m.cfg.URL).Msg("Device connect failed")
		return &ConnectionError{Op: "connect", URL: m.cfg.URL, Err: err}
	}

	m.conn = conn
	m.setStatusLocked(models.DeviceConnected, nil)
	m.logger.Info().Str("url", m.cfg.URL).Msg("Device connected")
	go m.watch(conn)

	refreshCtx, cancel := context.WithTimeout(ctx, m.cfg.RefreshTimeout)
	defer cancel()
	if err := m.mirror.Refresh(refreshCtx, conn); err != nil {
		m.logger.Warn().Err(err).Msg("Device state refresh failed; keeping previous mirror")
		return &ConnectionError{Op: "refresh", URL: m.cfg.URL, Err: err}
	}
	return nil
}

func (m *Manager) disconnectLocked() {
	m.cancelReconnectLocked()

	if m.conn != nil {
		conn := m.conn
		m.conn = nil
		if err := conn.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("Error closing device session")
		}
		m.logger.Info().Msg("Device disconnected")
	}
	if m.Status() != models.DeviceDisconnected {
		m.setStatusLocked(models.DeviceDisconnected, nil)
	}
}

// watch waits for conn to end. A close initiated by Disconnect or Reconnect
// has already replaced m.conn and is ignored.
func (m *Manager) watch(conn Conn) {
	<-conn.Done()

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.conn != conn {
		return
	}
	m.conn = nil

	cause := conn.Err()
	if cause == nil {
		cause = ErrSessionClosed
	}
	m.logger.Warn().Err(cause).Msg("Device connection lost")
	m.setStatusLocked(models.DeviceDisconnected, cause)

	if m.cfg.AutoReconnect {
		m.scheduleReconnectLocked()
	}
}

// handleEvent runs on the session read loop.
func (m *Manager) handleEvent(ev PushEvent) {
	if ev.Type == EventExitStarted {
		m.logger.Warn().Msg("Production software is shutting down")
		return
	}
	m.mirror.Apply(ev)
}

func (m *Manager) scheduleReconnectLocked() {
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.reconnectCancel = cancel
	m.setStatusLocked(models.DeviceReconnecting, m.LastError())
	go m.reconnectLoop(ctx)
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
}

func (m *Manager) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.ReconnectInitialInterval
	b.MaxInterval = m.cfg.ReconnectMaxInterval
	b.MaxElapsedTime = m.cfg.ReconnectMaxElapsed
	b.Reset()
	return b
}

// reconnectLoop retries until connected, cancelled, out of backoff, or
// stopped by the breaker. Every attempt takes the operation mutex and
// re-checks ctx under it, so nothing connects after Disconnect returns.
func (m *Manager) reconnectLoop(ctx context.Context) {
	b := m.newBackOff()

	for {
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			m.giveUp(ctx, errors.New("reconnect backoff exhausted"))
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.opMu.Lock()
		if ctx.Err() != nil {
			m.opMu.Unlock()
			return
		}

		m.logger.Info().Dur("after", wait).Msg("Attempting scheduled device reconnect")
		_, err := breaker.Execute(m.cb, func() (struct{}, error) {
			return struct{}{}, m.connectLocked(ctx)
		})
		metrics.RecordDeviceConnect("scheduled", err)

		if m.conn != nil {
			// Connected, possibly with a refresh error that was already logged.
			// The session does not outlive the dial, so releasing ctx is safe.
			m.cancelReconnectLocked()
			m.opMu.Unlock()
			return
		}
		if breaker.IsRejected(err) {
			m.cancelReconnectLocked()
			m.setStatusLocked(models.DeviceDisconnected, m.LastError())
			m.logger.Warn().Msg("Device reconnect breaker open; giving up until a manual connect")
			m.opMu.Unlock()
			return
		}
		m.setStatusLocked(models.DeviceReconnecting, err)
		m.opMu.Unlock()
	}
}

func (m *Manager) giveUp(ctx context.Context, reason error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	m.cancelReconnectLocked()
	m.setStatusLocked(models.DeviceDisconnected, m.LastError())
	m.logger.Warn().Err(reason).Msg("Giving up on device reconnect")
}

// setStatusLocked records a transition and notifies listeners. A nil err
// clears LastError only when the new status is Connected.
func (m *Manager) setStatusLocked(to models.DeviceStatus, err error) {
	m.mu.Lock()
	from := m.status
	m.status = to
	if err != nil {
		m.lastError = err
	} else if to == models.DeviceConnected {
		m.lastError = nil
	}
	m.mu.Unlock()

	if from == to && err == nil {
		return
	}
	metrics.SetDeviceStatus(string(to))

	change := models.DeviceStatusChange{From: from, To: to, Err: err, At: time.Now().UTC()}
	m.listenersMu.RLock()
	listeners := m.listeners
	m.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(change)
	}
}
