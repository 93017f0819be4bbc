// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

/*
client.go - obs-websocket v5 session

A Session is one authenticated socket. It runs a read loop that routes
request responses to waiting callers and push events to the event callback,
and a ping loop that keeps the socket alive. When the socket closes for any
reason Done is closed and Err reports why. Sessions are never reused; the
manager dials a new one to reconnect.
*/

package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 * 1024
)

// Conn is a live device session.
type Conn interface {
	Querier
	// Done is closed once the socket is gone and no more events will be
	// delivered.
	Done() <-chan struct{}
	// Err reports why the session ended; nil while it is open or after Close.
	Err() error
	// Close closes the socket and waits for the read loop to exit.
	Close() error
}

// Querier sends a request and decodes the response data into out.
type Querier interface {
	Request(ctx context.Context, requestType string, data any, out any) error
}

// Dialer opens device sessions. onEvent is called from the session's read
// loop and must not block.
type Dialer interface {
	Dial(ctx context.Context, onEvent func(PushEvent)) (Conn, error)
}

// WSDialer dials obs-websocket servers.
type WSDialer struct {
	URL              string
	Password         string
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration
}

// Dial connects and completes the Hello/Identify/Identified handshake.
func (d *WSDialer) Dial(ctx context.Context, onEvent func(PushEvent)) (Conn, error) {
	handshakeTimeout := d.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{Subprotocol},
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	conn.SetReadLimit(maxMessageSize)
	if err := identify(conn, d.Password, handshakeTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := newSession(conn, onEvent, d.RequestTimeout)
	s.start()
	return s, nil
}

func identify(conn *websocket.Conn, password string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	var hello Hello
	if err := readOp(conn, OpHello, &hello); err != nil {
		return fmt.Errorf("waiting for hello: %w", err)
	}

	ident := Identify{RPCVersion: RPCVersion, EventSubscriptions: defaultSubscriptions}
	if hello.Authentication != nil {
		if password == "" {
			return fmt.Errorf("%w: server requires a password", ErrAuthenticationFailed)
		}
		ident.Authentication = AuthResponse(password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	data, err := json.Marshal(outgoing{Op: OpIdentify, Data: ident})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending identify: %w", err)
	}

	var identified Identified
	if err := readOp(conn, OpIdentified, &identified); err != nil {
		if websocket.IsCloseError(err, CloseAuthenticationFailed) {
			return ErrAuthenticationFailed
		}
		return fmt.Errorf("waiting for identified: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	return nil
}

func readOp(conn *websocket.Conn, want OpCode, out any) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	if msg.Op != want {
		return fmt.Errorf("unexpected op %d, want %d", msg.Op, want)
	}
	return json.Unmarshal(msg.Data, out)
}

// Session is an identified obs-websocket connection.
type Session struct {
	conn           *websocket.Conn
	writeMu        sync.Mutex
	onEvent        func(PushEvent)
	requestTimeout time.Duration

	pendingMu sync.Mutex
	pending   map[string]chan RequestResponse
	closed    bool

	done      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	errMu sync.Mutex
	err   error

	logger zerolog.Logger
}

func newSession(conn *websocket.Conn, onEvent func(PushEvent), requestTimeout time.Duration) *Session {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	if onEvent == nil {
		onEvent = func(PushEvent) {}
	}
	return &Session{
		conn:           conn,
		onEvent:        onEvent,
		requestTimeout: requestTimeout,
		pending:        make(map[string]chan RequestResponse),
		done:           make(chan struct{}),
		stop:           make(chan struct{}),
		logger:         logging.WithComponent("device-session"),
	}
}

func (s *Session) start() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()
}

// Done implements Conn.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err implements Conn.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	defer s.shutdown()

	for {
		// Each read extends the deadline; events arrive often and pongs
		// cover idle periods.
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stop:
				// Closed by us.
			default:
				s.setErr(err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to decode device frame")
			continue
		}

		switch msg.Op {
		case OpEvent:
			var ev PushEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to decode device event")
				continue
			}
			metrics.DeviceEventsIngested.WithLabelValues(ev.Type).Inc()
			s.onEvent(ev)

		case OpRequestResponse:
			var resp RequestResponse
			if err := json.Unmarshal(msg.Data, &resp); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to decode device response")
				continue
			}
			s.pendingMu.Lock()
			ch, ok := s.pending[resp.RequestID]
			delete(s.pending, resp.RequestID)
			s.pendingMu.Unlock()
			if ok {
				ch <- resp
			}

		default:
			s.logger.Debug().Int("op", int(msg.Op)).Msg("Ignoring device frame")
		}
	}
}

// shutdown runs once the read loop exits: pending requests fail and Done
// closes.
func (s *Session) shutdown() {
	s.pendingMu.Lock()
	s.closed = true
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.closeOnce.Do(func() { close(s.stop) })
	_ = s.conn.Close()
	close(s.done)
}

func (s *Session) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				s.setErr(fmt.Errorf("keep-alive failed: %w", err))
				_ = s.conn.Close()
				return
			}
		}
	}
}

// Request implements Querier.
func (s *Session) Request(ctx context.Context, requestType string, data any, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDeviceRequest(requestType, time.Since(start), err) }()

	id := uuid.NewString()
	ch := make(chan RequestResponse, 1)

	s.pendingMu.Lock()
	if s.closed {
		s.pendingMu.Unlock()
		return ErrSessionClosed
	}
	s.pending[id] = ch
	s.pendingMu.Unlock()

	frame, err := json.Marshal(outgoing{Op: OpRequest, Data: Request{RequestType: requestType, RequestID: id, RequestData: data}})
	if err != nil {
		s.forget(id)
		return err
	}

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = s.conn.WriteMessage(websocket.TextMessage, frame)
	s.writeMu.Unlock()
	if err != nil {
		s.forget(id)
		return fmt.Errorf("sending %s: %w", requestType, err)
	}

	timer := time.NewTimer(s.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrSessionClosed
		}
		if !resp.RequestStatus.Result {
			return &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("decoding %s response: %w", requestType, err)
			}
		}
		return nil
	case <-ctx.Done():
		s.forget(id)
		return ctx.Err()
	case <-timer.C:
		s.forget(id)
		return fmt.Errorf("%s: %w", requestType, context.DeadlineExceeded)
	}
}

func (s *Session) forget(id string) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// Close sends a normal close frame, closes the socket and waits for the
// session goroutines to exit. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	s.wg.Wait()
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return err
}
