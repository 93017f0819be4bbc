// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	commandTimeout = 10 * time.Second
)

// clientIDCounter orders clients for deterministic shutdown.
var clientIDCounter atomic.Uint64

// Client is one WebSocket connection. The hub enqueues pre-marshaled frames;
// writePump is the only goroutine that writes to conn.
type Client struct {
	id     uint64
	connID string
	hub    *Hub
	conn   *websocket.Conn
	logger zerolog.Logger

	// sendMu serializes enqueue so drop-oldest and the overflow count stay
	// consistent across concurrent channel deliveries.
	sendMu      sync.Mutex
	send        chan []byte
	overflowRun int

	quit      chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter

	// subs is guarded by hub.mu.
	subs map[models.Channel]struct{}
}

// NewClient creates a client for conn.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	connID := uuid.New().String()
	limit := rate.Inf
	if hub.cfg.CommandRate > 0 {
		limit = rate.Limit(hub.cfg.CommandRate)
	}
	return &Client{
		id:      clientIDCounter.Add(1),
		connID:  connID,
		hub:     hub,
		conn:    conn,
		logger:  logging.With().Str("component", "websocket").Str("conn_id", connID).Logger(),
		send:    make(chan []byte, hub.cfg.SendQueueSize),
		quit:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, hub.cfg.CommandBurst),
		subs:    make(map[models.Channel]struct{}),
	}
}

// ID returns the client's ordering identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// ConnID returns the connection UUID used in logs.
func (c *Client) ConnID() string {
	return c.connID
}

// enqueue hands a frame to the writer without blocking. When the queue is
// full the oldest frame is discarded. It returns false once the client has
// been scheduled for teardown.
func (c *Client) enqueue(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	select {
	case <-c.quit:
		return false
	default:
	}

	select {
	case c.send <- frame:
		c.overflowRun = 0
		return true
	default:
	}

	// Full: drop the oldest frame. The writer may have drained one in
	// between, in which case nothing is dropped.
	select {
	case <-c.send:
		c.overflowRun++
		c.hub.recordDrop("queue_full")
	default:
	}
	select {
	case c.send <- frame:
	default:
		// Only reachable with a zero-capacity queue.
		c.overflowRun++
		c.hub.recordDrop("queue_full")
	}

	if limit := c.hub.cfg.MaxDroppedMessages; limit > 0 && c.overflowRun >= limit {
		c.logger.Warn().
			Int("consecutive_drops", c.overflowRun).
			Msg("WebSocket client too slow, closing connection")
		c.closeLocked()
		return false
	}
	return true
}

// Close schedules teardown. Safe to call more than once.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	c.closeOnce.Do(func() {
		close(c.quit)
		if c.conn != nil {
			_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
		}
	})
}

func (c *Client) reply(r Reply) {
	frame, err := json.Marshal(r)
	if err != nil {
		c.logger.Error().Err(err).Str("reply_type", r.Type).Msg("failed to marshal reply")
		return
	}
	c.enqueue(frame)
}

// readPump reads commands until the connection fails or is closed.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			metrics.WebSocketCommands.WithLabelValues("unknown", "invalid").Inc()
			c.reply(replyError(Request{}, CodeInvalidMessage, "malformed command", nil))
			continue
		}
		c.handle(req)
	}
}

// handle runs one command and replies.
func (c *Client) handle(req Request) {
	switch req.Action {
	case ActionSubscribe:
		ch, ok := models.ParseChannel(req.Channel)
		if !ok {
			c.fail(req, replyError(req, CodeUnknownChannel, "unknown channel", nil))
			return
		}
		if !c.hub.subscribe(c, ch) {
			return
		}
		c.succeed(req, ack(req, nil))
		c.hub.sendCatchUp(c, ch)

	case ActionUnsubscribe:
		ch, ok := models.ParseChannel(req.Channel)
		if !ok {
			c.fail(req, replyError(req, CodeUnknownChannel, "unknown channel", nil))
			return
		}
		c.hub.unsubscribe(c, ch)
		c.succeed(req, ack(req, nil))

	case ActionPing:
		c.succeed(req, Reply{Type: ReplyPong, RequestID: req.RequestID})

	case ActionPublish, ActionCountdown:
		c.command(req)

	default:
		c.fail(req, replyError(req, CodeInvalidMessage, "unknown action", nil))
	}
}

// command runs a publish or countdown action through the dispatcher.
func (c *Client) command(req Request) {
	if c.hub.commands == nil {
		c.fail(req, replyError(req, CodeCommandsDisabled, "commands are not accepted on this endpoint", nil))
		return
	}
	if !c.limiter.Allow() {
		c.fail(req, replyError(req, CodeRateLimited, "too many commands", nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ctx = logging.ContextWithCorrelationID(ctx, req.RequestID)
	ctx = audit.ContextWithSource(ctx, c.source())

	if req.Action == ActionPublish {
		event, err := c.hub.commands.Publish(ctx, req.Channel, req.Type, req.Payload)
		if err != nil {
			c.fail(req, errorReply(req, err))
			return
		}
		c.succeed(req, ack(req, map[string]any{"seq": event.Seq}))
		return
	}

	state, err := c.hub.commands.Countdown(ctx, req.Type, req.Payload)
	if err != nil {
		c.fail(req, errorReply(req, err))
		return
	}
	c.succeed(req, ack(req, state))
}

func (c *Client) succeed(req Request, r Reply) {
	metrics.WebSocketCommands.WithLabelValues(actionLabel(req.Action), "ok").Inc()
	c.reply(r)
}

func (c *Client) fail(req Request, r Reply) {
	metrics.WebSocketCommands.WithLabelValues(actionLabel(req.Action), "error").Inc()
	c.logger.Debug().
		Str("action", req.Action).
		Str("channel", req.Channel).
		Str("code", r.Error.Code).
		Msg(r.Error.Message)
	c.reply(r)
}

// actionLabel bounds the metric label set to known actions.
func actionLabel(action string) string {
	switch action {
	case ActionSubscribe, ActionUnsubscribe, ActionPing, ActionPublish, ActionCountdown:
		return action
	default:
		return "unknown"
	}
}

// writePump writes queued frames and keep-alive pings. A write failure
// closes only this connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.quit:
			return

		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// source describes this connection for the command journal.
func (c *Client) source() audit.Source {
	src := audit.Source{Transport: audit.TransportWebSocket, ConnectionID: c.connID}
	if c.conn != nil {
		src.RemoteAddr = c.conn.RemoteAddr().String()
	}
	return src
}
