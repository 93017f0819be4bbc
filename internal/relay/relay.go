// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package relay forwards published overlay events to a message broker
// through Watermill, so systems outside the process (recorders, chat bots,
// stats) can observe the show without connecting a WebSocket.
//
// The bus handler only enqueues; a single goroutine started by Serve does
// the publishing. When the queue is full or the breaker is open, events are
// dropped and counted. The relay never slows down overlay delivery.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/showrunner/internal/breaker"
	"github.com/tomtom215/showrunner/internal/eventbus"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
)

// ErrQueueFull is returned by Enqueue when the relay cannot keep up.
var ErrQueueFull = errors.New("relay queue full")

// Config controls what is relayed and how.
type Config struct {
	// SubjectPrefix is prepended to the channel name: <prefix>.<channel>.
	SubjectPrefix string

	// QueueSize bounds the events waiting to be published.
	QueueSize int

	// Channels limits relaying to these channels. Empty relays all.
	Channels []models.Channel

	// SkipTicks drops countdown TICK events, which are the bulk of traffic.
	SkipTicks bool

	Breaker breaker.Config
}

// DefaultConfig returns the relay defaults.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix: "showrunner.overlay",
		QueueSize:     1024,
		Breaker:       breaker.DefaultConfig(),
	}
}

// BusSubscriber is the part of the event bus the relay attaches to.
type BusSubscriber interface {
	Subscribe(channel models.Channel, name string, handler eventbus.Handler) *eventbus.Handle
	Unsubscribe(h *eventbus.Handle)
}

// Relay forwards bus events to a Watermill publisher.
type Relay struct {
	cfg       Config
	publisher message.Publisher
	cb        *gobreaker.CircuitBreaker[struct{}]
	queue     chan models.Event
	logger    zerolog.Logger

	attachMu sync.Mutex
	bus      BusSubscriber
	handles  []*eventbus.Handle

	forwarded atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	closeOnce sync.Once
}

// New creates a relay publishing through publisher.
func New(publisher message.Publisher, cfg Config) *Relay {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultConfig().SubjectPrefix
	}
	return &Relay{
		cfg:       cfg,
		publisher: publisher,
		cb:        breaker.New[struct{}]("relay", cfg.Breaker),
		queue:     make(chan models.Event, cfg.QueueSize),
		logger:    logging.WithComponent("relay"),
	}
}

// Topic returns the subject events on channel are published to.
func (r *Relay) Topic(channel models.Channel) string {
	return r.cfg.SubjectPrefix + "." + string(channel)
}

// Attach subscribes the relay to the configured channels on bus.
func (r *Relay) Attach(bus BusSubscriber) {
	r.attachMu.Lock()
	defer r.attachMu.Unlock()
	if r.bus != nil {
		return
	}
	channels := r.cfg.Channels
	if len(channels) == 0 {
		channels = models.AllChannels()
	}
	for _, ch := range channels {
		r.handles = append(r.handles, bus.Subscribe(ch, "relay", r.Enqueue))
	}
	r.bus = bus
}

// Detach removes the relay's bus subscriptions.
func (r *Relay) Detach() {
	r.attachMu.Lock()
	defer r.attachMu.Unlock()
	if r.bus == nil {
		return
	}
	for _, h := range r.handles {
		r.bus.Unsubscribe(h)
	}
	r.handles = nil
	r.bus = nil
}

// Enqueue is the bus handler. It never blocks.
func (r *Relay) Enqueue(event models.Event) error {
	if r.cfg.SkipTicks && event.Type == models.EventTick {
		return nil
	}
	select {
	case r.queue <- event:
		metrics.RelayQueueDepth.Set(float64(len(r.queue)))
		return nil
	default:
		r.dropped.Add(1)
		metrics.RelayForwarded.WithLabelValues(string(event.Channel), "dropped").Inc()
		return ErrQueueFull
	}
}

// Serve publishes queued events until ctx is cancelled.
func (r *Relay) Serve(ctx context.Context) error {
	r.logger.Info().
		Str("subject_prefix", r.cfg.SubjectPrefix).
		Int("queue_size", r.cfg.QueueSize).
		Msg("Event relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().
				Int("pending", len(r.queue)).
				Uint64("forwarded", r.forwarded.Load()).
				Uint64("dropped", r.dropped.Load()).
				Msg("Event relay stopped")
			return ctx.Err()
		case event := <-r.queue:
			metrics.RelayQueueDepth.Set(float64(len(r.queue)))
			r.forward(event)
		}
	}
}

func (r *Relay) forward(event models.Event) {
	msg, err := r.newMessage(event)
	if err != nil {
		r.failed.Add(1)
		metrics.RecordRelayForward(string(event.Channel), err)
		r.logger.Error().Err(err).Str("channel", string(event.Channel)).Msg("failed to encode relay message")
		return
	}

	topic := r.Topic(event.Channel)
	_, err = breaker.Execute(r.cb, func() (struct{}, error) {
		return struct{}{}, r.publisher.Publish(topic, msg)
	})
	metrics.RecordRelayForward(string(event.Channel), err)
	if err != nil {
		r.failed.Add(1)
		if breaker.IsRejected(err) {
			r.logger.Debug().Str("topic", topic).Msg("relay breaker open, event dropped")
			return
		}
		r.logger.Warn().Err(err).Str("topic", topic).Uint64("seq", event.Seq).Msg("failed to relay event")
		return
	}
	r.forwarded.Add(1)
}

// newMessage encodes event as a Watermill message. The message UUID doubles
// as the NATS deduplication ID.
func (r *Relay) newMessage(event models.Event) (*message.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("channel", string(event.Channel))
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("seq", strconv.FormatUint(event.Seq, 10))
	return msg, nil
}

// Stats reports relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Forwarded: r.forwarded.Load(),
		Dropped:   r.dropped.Load(),
		Failed:    r.failed.Load(),
		Pending:   len(r.queue),
		Breaker:   r.cb.State().String(),
	}
}

// Stats is a snapshot of relay counters.
type Stats struct {
	Forwarded uint64 `json:"forwarded"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
	Breaker   string `json:"breaker"`
}

// Close detaches from the bus and closes the publisher.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.Detach()
		err = r.publisher.Close()
	})
	return err
}
