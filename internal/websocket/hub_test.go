// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package websocket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/showrunner/internal/control"
	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/models"
	"github.com/tomtom215/showrunner/internal/overlay"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// testStack is a hub wired to a real bus, overlay manager, countdown engine
// and dispatcher, served over httptest.
type testStack struct {
	hub      *Hub
	bus      *eventbus.Bus
	overlays *overlay.Manager
	engine   *countdown.Engine
	server   *httptest.Server
}

func newTestStack(t *testing.T, cfg Config, withCommands bool) *testStack {
	t.Helper()
	bus := eventbus.New()
	overlays := overlay.NewManager(bus)
	engine := countdown.NewEngine(overlays)

	opts := []Option{WithCatchUp(models.ChannelCountdown, engine.Snapshot)}
	if withCommands {
		opts = append(opts, WithCommands(control.NewDispatcher(overlays, engine, nil)))
	}
	hub := NewHub(cfg, opts...)
	hub.Attach(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	waitFor(t, func() bool { return hub.Stats().IsRunning }, "hub running")

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
		engine.Reset() //nolint:errcheck // stop any armed ticker
	})
	return &testStack{hub: hub, bus: bus, overlays: overlays, engine: engine, server: server}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// dialWebSocket establishes a WebSocket connection to the test server.
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// frame decodes both event messages and command replies.
type frame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorBody      `json:"error"`
}

func send(t *testing.T, conn *websocket.Conn, req Request) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return f
}

func subscribe(t *testing.T, conn *websocket.Conn, ch models.Channel) {
	t.Helper()
	send(t, conn, Request{Action: ActionSubscribe, Channel: string(ch)})
	if f := read(t, conn); f.Type != ReplyAck {
		t.Fatalf("subscribe reply = %+v, want ack", f)
	}
}

func TestHub_SubscribeAndDeliver(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	conn := dialWebSocket(t, s.server)
	subscribe(t, conn, models.ChannelLowerThird)

	_, err := s.overlays.Publish("lower-third", "SHOW",
		json.RawMessage(`{"title":"Guest Name","subtitle":"Role","side":"left"}`))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	f := read(t, conn)
	if f.Channel != "lower-third" || f.Type != "SHOW" || f.Seq != 1 {
		t.Fatalf("event = %+v, want lower-third SHOW seq 1", f)
	}
	var p overlay.LowerThirdShow
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Guest Name" || p.Subtitle != "Role" || p.Side != "left" {
		t.Errorf("payload = %+v", p)
	}
	if p.Duration == nil || *p.Duration != overlay.DefaultLowerThirdDuration {
		t.Errorf("duration = %v, want default %d", p.Duration, overlay.DefaultLowerThirdDuration)
	}
}

func TestHub_OnlySubscribedChannels(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	conn := dialWebSocket(t, s.server)
	subscribe(t, conn, models.ChannelPoster)

	if _, err := s.overlays.Publish("lower-third", "HIDE", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.overlays.Publish("poster", "HIDE", nil); err != nil {
		t.Fatal(err)
	}

	if f := read(t, conn); f.Channel != "poster" {
		t.Errorf("first frame channel = %q, want poster", f.Channel)
	}
}

func TestHub_SubscribeIdempotentAndUnsubscribe(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	conn := dialWebSocket(t, s.server)

	subscribe(t, conn, models.ChannelMediaA)
	subscribe(t, conn, models.ChannelMediaA)
	if n := s.hub.Stats().PerChannelSubscriberCount[models.ChannelMediaA]; n != 1 {
		t.Fatalf("media-a subscribers = %d, want 1", n)
	}

	send(t, conn, Request{Action: ActionUnsubscribe, Channel: "media-a"})
	if f := read(t, conn); f.Type != ReplyAck {
		t.Fatalf("unsubscribe reply = %+v", f)
	}
	if n := s.hub.Stats().PerChannelSubscriberCount[models.ChannelMediaA]; n != 0 {
		t.Errorf("media-a subscribers = %d, want 0", n)
	}

	if _, err := s.overlays.Publish("media-a", "STOP", nil); err != nil {
		t.Fatal(err)
	}
	send(t, conn, Request{Action: ActionPing, RequestID: "p"})
	if f := read(t, conn); f.Type != ReplyPong || f.RequestID != "p" {
		t.Errorf("frame = %+v, want pong (no event after unsubscribe)", f)
	}
}

func TestHub_FIFOPerChannel(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	conn := dialWebSocket(t, s.server)
	subscribe(t, conn, models.ChannelChatHighlight)

	const n = 50
	for i := 0; i < n; i++ {
		if _, err := s.overlays.Publish("chat-highlight", "HIDE", nil); err != nil {
			t.Fatal(err)
		}
	}
	var last uint64
	for i := 0; i < n; i++ {
		f := read(t, conn)
		if f.Seq != last+1 {
			t.Fatalf("seq = %d after %d, want strictly increasing by one", f.Seq, last)
		}
		last = f.Seq
	}
}

func TestHub_CommandErrors(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), true)
	conn := dialWebSocket(t, s.server)

	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"malformed", `{not json`, CodeInvalidMessage},
		{"unknown action", `{"action":"explode"}`, CodeInvalidMessage},
		{"unknown channel", `{"action":"subscribe","channel":"weather"}`, CodeUnknownChannel},
		{"invalid type", `{"action":"publish","channel":"poster","type":"PLAY"}`, string(overlay.InvalidAction)},
		{"invalid payload", `{"action":"publish","channel":"lower-third","type":"SHOW","payload":{"side":"left"}}`, string(overlay.InvalidPayload)},
		{"engine owned", `{"action":"publish","channel":"countdown","type":"TICK"}`, string(overlay.InvalidAction)},
		{"start at zero", `{"action":"countdown","type":"start"}`, CodeInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatal(err)
			}
			f := read(t, conn)
			if f.Type != ReplyError || f.Error == nil || f.Error.Code != tt.wantCode {
				t.Errorf("reply = %+v, want error %s", f, tt.wantCode)
			}
		})
	}
}

func TestHub_PublishCommand(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), true)
	deck := dialWebSocket(t, s.server)
	renderer := dialWebSocket(t, s.server)
	subscribe(t, renderer, models.ChannelLowerThird)

	send(t, deck, Request{
		Action:    ActionPublish,
		Channel:   "lower-third",
		Type:      "SHOW",
		Payload:   json.RawMessage(`{"title":"From Deck"}`),
		RequestID: "deck-1",
	})
	reply := read(t, deck)
	if reply.Type != ReplyAck || reply.RequestID != "deck-1" {
		t.Fatalf("reply = %+v, want ack deck-1", reply)
	}
	var data struct {
		Seq uint64 `json:"seq"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil || data.Seq != 1 {
		t.Errorf("ack data = %s, want seq 1", reply.Data)
	}

	if f := read(t, renderer); f.Type != "SHOW" || f.Seq != 1 {
		t.Errorf("renderer frame = %+v", f)
	}
}

func TestHub_CountdownCommandAndCatchUp(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), true)
	deck := dialWebSocket(t, s.server)

	send(t, deck, Request{Action: ActionCountdown, Type: "set", Payload: json.RawMessage(`{"seconds":30}`)})
	reply := read(t, deck)
	if reply.Type != ReplyAck {
		t.Fatalf("set reply = %+v", reply)
	}
	var st models.CountdownState
	if err := json.Unmarshal(reply.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalSeconds != 30 || st.RemainingSeconds != 30 {
		t.Errorf("state = %+v, want 30/30", st)
	}

	// A renderer joining later gets the current state.
	renderer := dialWebSocket(t, s.server)
	subscribe(t, renderer, models.ChannelCountdown)
	f := read(t, renderer)
	if f.Type != string(models.EventState) || f.Channel != "countdown" {
		t.Fatalf("catch-up frame = %+v, want countdown STATE", f)
	}
	if f.Seq != s.overlays.LastSeq(models.ChannelCountdown) {
		t.Errorf("STATE seq = %d, want last published %d", f.Seq, s.overlays.LastSeq(models.ChannelCountdown))
	}
	var p models.CountdownState
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.RemainingSeconds != 30 || p.Running {
		t.Errorf("catch-up payload = %+v", p)
	}
}

func TestHub_CommandsDisabled(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	conn := dialWebSocket(t, s.server)

	send(t, conn, Request{Action: ActionCountdown, Type: "reset"})
	if f := read(t, conn); f.Error == nil || f.Error.Code != CodeCommandsDisabled {
		t.Errorf("reply = %+v, want %s", f, CodeCommandsDisabled)
	}
}

func TestHub_CommandRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CommandRate = 0.001
	cfg.CommandBurst = 1
	s := newTestStack(t, cfg, true)
	conn := dialWebSocket(t, s.server)

	send(t, conn, Request{Action: ActionCountdown, Type: "reset"})
	if f := read(t, conn); f.Type != ReplyAck {
		t.Fatalf("first reply = %+v, want ack", f)
	}
	send(t, conn, Request{Action: ActionCountdown, Type: "reset"})
	if f := read(t, conn); f.Error == nil || f.Error.Code != CodeRateLimited {
		t.Errorf("second reply = %+v, want %s", f, CodeRateLimited)
	}

	// Subscriptions are not rate limited.
	subscribe(t, conn, models.ChannelPoster)
}

func TestHub_StatsAndDisconnect(t *testing.T) {
	s := newTestStack(t, DefaultConfig(), false)
	a := dialWebSocket(t, s.server)
	b := dialWebSocket(t, s.server)
	subscribe(t, a, models.ChannelPoster)
	subscribe(t, b, models.ChannelPoster)
	subscribe(t, b, models.ChannelMediaB)

	stats := s.hub.Stats()
	if !stats.IsRunning || stats.TotalClients != 2 {
		t.Fatalf("stats = %+v, want running with 2 clients", stats)
	}
	if stats.PerChannelSubscriberCount[models.ChannelPoster] != 2 ||
		stats.PerChannelSubscriberCount[models.ChannelMediaB] != 1 {
		t.Errorf("per channel = %v", stats.PerChannelSubscriberCount)
	}
	if len(stats.PerChannelSubscriberCount) != len(models.AllChannels()) {
		t.Errorf("per channel map has %d entries, want every channel", len(stats.PerChannelSubscriberCount))
	}

	_ = b.Close()
	waitFor(t, func() bool { return s.hub.Stats().TotalClients == 1 }, "client removal")
	stats = s.hub.Stats()
	if stats.PerChannelSubscriberCount[models.ChannelPoster] != 1 ||
		stats.PerChannelSubscriberCount[models.ChannelMediaB] != 0 {
		t.Errorf("per channel after disconnect = %v", stats.PerChannelSubscriberCount)
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendQueueSize = 4
	cfg.MaxDroppedMessages = 3
	hub := NewHub(cfg)
	bus := eventbus.New()
	hub.Attach(bus)
	overlays := overlay.NewManager(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()
	waitFor(t, func() bool { return hub.Stats().IsRunning }, "hub running")

	// Neither client has a writer, so the test controls draining. The slow
	// client is never drained.
	slow := NewClient(hub, nil)
	healthy := NewClient(hub, nil)
	for _, c := range []*Client{slow, healthy} {
		if !hub.add(c) || !hub.subscribe(c, models.ChannelPoster) {
			t.Fatal("failed to register client")
		}
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if _, err := overlays.Publish("poster", "HIDE", nil); err != nil {
				t.Error(err)
				return
			}
			received += len(drain(healthy))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a slow client")
	}
	if received != 20 {
		t.Errorf("healthy client received %d frames, want 20", received)
	}
	if !isClosed(slow) {
		t.Error("slow client was not torn down")
	}
	if isClosed(healthy) {
		t.Error("healthy client was torn down")
	}
	if hub.Stats().DroppedMessages < 3 {
		t.Errorf("DroppedMessages = %d, want at least 3", hub.Stats().DroppedMessages)
	}
}

func TestHub_StalledSocketDoesNotBlockOthers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendQueueSize = 4
	cfg.MaxDroppedMessages = 3
	s := newTestStack(t, cfg, false)

	stalled := dialWebSocket(t, s.server)
	healthy := dialWebSocket(t, s.server)
	subscribe(t, stalled, models.ChannelPoster)
	subscribe(t, healthy, models.ChannelPoster)
	// stalled is never read again; its TCP buffers fill and the server
	// writer blocks.

	blob := strings.Repeat("x", 256<<10)
	publish := func(seq uint64) {
		t.Helper()
		start := time.Now()
		s.bus.Publish(models.Event{
			Channel: models.ChannelPoster,
			Type:    models.EventShow,
			Payload: map[string]string{"blob": blob},
			Seq:     seq,
			SentAt:  time.Now(),
		})
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("publish %d blocked for %s", seq, elapsed)
		}
		if f := read(t, healthy); f.Seq != seq {
			t.Fatalf("healthy client got seq %d, want %d", f.Seq, seq)
		}
	}

	var seq uint64
	for s.hub.Stats().TotalClients > 1 {
		if seq == 400 {
			t.Fatal("stalled client was never torn down")
		}
		seq++
		publish(seq)
	}

	// Delivery to the healthy client continues after the teardown.
	for i := 0; i < 5; i++ {
		seq++
		publish(seq)
	}
	if s.hub.Stats().DroppedMessages < 3 {
		t.Errorf("DroppedMessages = %d, want at least 3", s.hub.Stats().DroppedMessages)
	}
	if n := s.hub.Stats().PerChannelSubscriberCount[models.ChannelPoster]; n != 1 {
		t.Errorf("poster subscribers = %d, want 1", n)
	}
}

func TestHub_DeliverWithoutSubscribers(t *testing.T) {
	hub := NewHub(DefaultConfig())
	bus := eventbus.New()
	hub.Attach(bus)
	hub.Attach(bus)

	if n := bus.SubscriberCount(models.ChannelPoster); n != 1 {
		t.Fatalf("bus subscribers = %d, want 1 after double Attach", n)
	}
	res := bus.Publish(models.Event{Channel: models.ChannelPoster, Type: models.EventHide, Seq: 7})
	if res.Failed != 0 {
		t.Errorf("Publish() = %+v, want no failures", res)
	}

	hub.Detach()
	if n := bus.SubscriberCount(models.ChannelPoster); n != 0 {
		t.Errorf("bus subscribers after Detach = %d, want 0", n)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	waitFor(t, func() bool { return hub.Stats().IsRunning }, "hub running")

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()
	conn := dialWebSocket(t, server)
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "client registration")

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after shutdown")
	}
	if hub.GetClientCount() != 0 || hub.Stats().IsRunning {
		t.Errorf("stats after shutdown = %+v", hub.Stats())
	}

	// New connections are refused while stopped.
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ServeWS status = %d, want 503", rec.Code)
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		noOrig  bool
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, false, "https://anything.example", true},
		{"listed", []string{"http://localhost:3000"}, false, "http://localhost:3000", true},
		{"case insensitive", []string{"http://LOCALHOST:3000"}, false, "http://localhost:3000", true},
		{"not listed", []string{"http://localhost:3000"}, false, "https://evil.example", false},
		{"missing allowed", []string{"http://localhost:3000"}, true, "", true},
		{"missing rejected", []string{"*"}, false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.AllowedOrigins = tt.allowed
			cfg.AllowNoOrigin = tt.noOrig
			hub := NewHub(cfg)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := hub.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
