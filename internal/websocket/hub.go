// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Config holds gateway limits.
type Config struct {
	// SendQueueSize is the per-connection outbound queue capacity.
	SendQueueSize int

	// MaxDroppedMessages consecutive drop-oldest evictions tear the
	// connection down. Zero disables teardown.
	MaxDroppedMessages int

	// MaxMessageSize is the inbound frame read limit in bytes.
	MaxMessageSize int64

	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	AllowedOrigins []string

	// AllowNoOrigin accepts handshakes without an Origin header. The
	// Stream Deck bridge and OBS browser sources may omit it.
	AllowNoOrigin bool

	// CommandRate is the sustained publish/countdown commands per second
	// per connection. Zero or less disables the limit.
	CommandRate float64

	// CommandBurst is the limiter bucket size.
	CommandBurst int
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		SendQueueSize:      256,
		MaxDroppedMessages: 64,
		MaxMessageSize:     maxMessageSize,
		AllowedOrigins:     []string{"*"},
		AllowNoOrigin:      true,
		CommandRate:        10,
		CommandBurst:       20,
	}
}

// Commander executes publish and countdown commands. control.Dispatcher
// satisfies it.
type Commander interface {
	Publish(ctx context.Context, channel, typ string, raw json.RawMessage) (models.Event, error)
	Countdown(ctx context.Context, action string, raw json.RawMessage) (models.CountdownState, error)
}

// BusSubscriber is the part of the event bus the hub attaches to.
type BusSubscriber interface {
	Subscribe(channel models.Channel, name string, handler eventbus.Handler) *eventbus.Handle
	Unsubscribe(h *eventbus.Handle)
}

// Option configures a Hub.
type Option func(*Hub)

// WithCommands enables publish and countdown actions on client sessions.
func WithCommands(c Commander) Option {
	return func(h *Hub) { h.commands = c }
}

// WithCatchUp registers a state snapshot sent as a STATE message to every
// client that subscribes to channel.
func WithCatchUp(channel models.Channel, snapshot func() any) Option {
	return func(h *Hub) { h.catchUp[channel] = snapshot }
}

// Hub tracks connected clients and their channel subscriptions, and fans
// bus events out to them.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	commands Commander
	catchUp  map[models.Channel]func() any
	logger   zerolog.Logger

	// mu guards clients, subscribers and every Client.subs.
	mu          sync.RWMutex
	clients     map[*Client]bool
	subscribers map[models.Channel]map[*Client]struct{}

	attachMu sync.Mutex
	bus      BusSubscriber
	handles  []*eventbus.Handle

	// Stats counters. The per-channel maps are fixed at construction.
	running    atomic.Bool
	total      atomic.Int64
	perChannel map[models.Channel]*atomic.Int64
	lastSeq    map[models.Channel]*atomic.Uint64
	dropped    atomic.Uint64

	now func() time.Time
}

// NewHub creates a hub. Call Attach to connect it to the event bus and
// RunWithContext to accept clients.
func NewHub(cfg Config, opts ...Option) *Hub {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultConfig().SendQueueSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = maxMessageSize
	}

	h := &Hub{
		cfg:         cfg,
		catchUp:     make(map[models.Channel]func() any),
		logger:      logging.WithComponent("websocket-hub"),
		clients:     make(map[*Client]bool),
		subscribers: make(map[models.Channel]map[*Client]struct{}),
		perChannel:  make(map[models.Channel]*atomic.Int64),
		lastSeq:     make(map[models.Channel]*atomic.Uint64),
		now:         time.Now,
	}
	for _, ch := range models.AllChannels() {
		h.subscribers[ch] = make(map[*Client]struct{})
		h.perChannel[ch] = &atomic.Int64{}
		h.lastSeq[ch] = &atomic.Uint64{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach subscribes the hub to every overlay channel on bus. Attaching
// twice is a no-op.
func (h *Hub) Attach(bus BusSubscriber) {
	h.attachMu.Lock()
	defer h.attachMu.Unlock()
	if h.bus != nil {
		return
	}
	for _, ch := range models.AllChannels() {
		h.handles = append(h.handles, bus.Subscribe(ch, "websocket-gateway", h.deliver))
	}
	h.bus = bus
}

// Detach removes the hub's bus subscriptions.
func (h *Hub) Detach() {
	h.attachMu.Lock()
	defer h.attachMu.Unlock()
	if h.bus == nil {
		return
	}
	for _, handle := range h.handles {
		h.bus.Unsubscribe(handle)
	}
	h.handles = nil
	h.bus = nil
}

// RunWithContext marks the hub as accepting clients until ctx is cancelled,
// then closes every client and returns ctx.Err(). It is restartable by a
// supervisor.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.running.Store(true)
	h.mu.Unlock()

	h.logger.Info().Msg("websocket hub started")
	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err()
// is expected here and is not logged as an error.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()
	h.logger.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients stops accepting clients and closes the connected ones in
// ID order.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	h.running.Store(false)
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, c := range clients {
		h.remove(c)
	}
	return len(clients)
}

// ServeWS upgrades the request and starts a client session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.running.Load() {
		h.logger.Warn().Msg("WebSocket connection rejected: hub not running")
		http.Error(w, "websocket service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(h, conn)
	if !h.add(client) {
		client.Close()
		return
	}
	client.Start()
}

// checkOrigin validates the handshake Origin header.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return h.cfg.AllowNoOrigin
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips line breaks from client supplied values.
func sanitizeLogValue(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running.Load() {
		return false
	}
	h.clients[c] = true
	total := h.total.Add(1)
	metrics.WebSocketClients.Inc()
	h.logger.Info().Str("conn_id", c.connID).Int64("total_clients", total).Msg("websocket client connected")
	return true
}

// remove drops c and all its subscriptions, then closes it. Idempotent.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		c.Close()
		return
	}
	delete(h.clients, c)
	for ch := range c.subs {
		h.dropSubscriptionLocked(c, ch)
	}
	total := h.total.Add(-1)
	h.mu.Unlock()

	metrics.WebSocketClients.Dec()
	c.Close()
	h.logger.Info().Str("conn_id", c.connID).Int64("total_clients", total).Msg("websocket client disconnected")
}

// subscribe adds (c, ch). Repeated calls are no-ops. It returns false for
// clients the hub no longer tracks.
func (h *Hub) subscribe(c *Client, ch models.Channel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return false
	}
	if _, ok := c.subs[ch]; ok {
		return true
	}
	c.subs[ch] = struct{}{}
	h.subscribers[ch][c] = struct{}{}
	h.perChannel[ch].Add(1)
	metrics.WebSocketSubscriptions.WithLabelValues(string(ch)).Inc()
	return true
}

// unsubscribe removes (c, ch) if present.
func (h *Hub) unsubscribe(c *Client, ch models.Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.subs[ch]; ok {
		h.dropSubscriptionLocked(c, ch)
	}
}

func (h *Hub) dropSubscriptionLocked(c *Client, ch models.Channel) {
	delete(c.subs, ch)
	delete(h.subscribers[ch], c)
	h.perChannel[ch].Add(-1)
	metrics.WebSocketSubscriptions.WithLabelValues(string(ch)).Dec()
}

// sendCatchUp enqueues the current state of ch to c, if ch has one.
func (h *Hub) sendCatchUp(c *Client, ch models.Channel) {
	snapshot := h.catchUp[ch]
	if snapshot == nil {
		return
	}
	event := models.Event{
		Channel: ch,
		Type:    models.EventState,
		Seq:     h.lastSeq[ch].Load(),
	}
	event.Payload = snapshot()
	event.SentAt = h.now().UTC()

	frame, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", string(ch)).Msg("failed to marshal catch-up state")
		return
	}
	c.enqueue(frame)
}

// deliver is the bus handler for every channel. It marshals the event once
// and enqueues the frame to each subscriber without blocking.
func (h *Hub) deliver(event models.Event) error {
	if seq, ok := h.lastSeq[event.Channel]; ok {
		seq.Store(event.Seq)
	}
	if count, ok := h.perChannel[event.Channel]; !ok || count.Load() == 0 {
		return nil
	}

	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s %s event: %w", event.Channel, event.Type, err)
	}

	h.mu.RLock()
	enqueued := 0
	for c := range h.subscribers[event.Channel] {
		if c.enqueue(frame) {
			enqueued++
		}
	}
	h.mu.RUnlock()

	if enqueued > 0 {
		metrics.WebSocketMessagesSent.WithLabelValues(string(event.Channel)).Add(float64(enqueued))
	}
	return nil
}

func (h *Hub) recordDrop(reason string) {
	h.dropped.Add(1)
	metrics.WebSocketMessagesDropped.WithLabelValues(reason).Inc()
}

// Stats returns the gateway read model from in-memory counters.
func (h *Hub) Stats() models.ConnectionStats {
	per := make(map[models.Channel]int, len(h.perChannel))
	for ch, n := range h.perChannel {
		per[ch] = int(n.Load())
	}
	return models.ConnectionStats{
		IsRunning:                 h.running.Load(),
		TotalClients:              int(h.total.Load()),
		PerChannelSubscriberCount: per,
		DroppedMessages:           h.dropped.Load(),
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	return int(h.total.Load())
}
