// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package eventbus is the in-process publish/subscribe primitive keyed by
// overlay channel.
//
// Delivery is synchronous and happens on the publisher's goroutine, in
// subscriber registration order, against a snapshot of the subscribers
// registered when Publish was called. Handlers must not block; anything
// slow (socket writes, broker publishes) belongs behind a queue owned by
// the subscriber.
//
// A handler that returns an error or panics does not affect the other
// subscribers or the publisher. The failure is logged, added to the
// handle's delivery error count and to the eventbus_delivery_errors_total
// metric.
package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
	"github.com/tomtom215/showrunner/internal/models"
)

// Handler receives events for one channel.
type Handler func(models.Event) error

// Handle identifies one subscription. It is returned by Subscribe and passed
// back to Unsubscribe.
type Handle struct {
	id             uint64
	channel        models.Channel
	name           string
	handler        Handler
	deliveryErrors atomic.Uint64
	active         atomic.Bool
}

// Channel returns the channel the handle is subscribed to.
func (h *Handle) Channel() models.Channel { return h.channel }

// Name returns the diagnostic name given at subscribe time.
func (h *Handle) Name() string { return h.name }

// DeliveryErrors returns how many deliveries to this subscriber failed.
func (h *Handle) DeliveryErrors() uint64 { return h.deliveryErrors.Load() }

// Active reports whether the subscription is still registered.
func (h *Handle) Active() bool { return h.active.Load() }

// Result summarizes one Publish call. It is informational only: a publish
// never fails from the publisher's point of view.
type Result struct {
	Delivered int
	Failed    int
}

// Bus is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[models.Channel][]*Handle
	nextID atomic.Uint64
	logger zerolog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:   make(map[models.Channel][]*Handle),
		logger: logging.WithComponent("eventbus"),
	}
}

// Subscribe registers handler for channel. name appears in logs when the
// handler fails.
func (b *Bus) Subscribe(channel models.Channel, name string, handler Handler) *Handle {
	h := &Handle{
		id:      b.nextID.Add(1),
		channel: channel,
		name:    name,
		handler: handler,
	}
	h.active.Store(true)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], h)
	b.mu.Unlock()

	return h
}

// Unsubscribe removes the subscription. Calling it twice, or with nil, is a
// no-op. A Publish already in progress may still deliver to the handle.
func (b *Bus) Unsubscribe(h *Handle) {
	if h == nil || !h.active.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[h.channel]
	for i, s := range list {
		if s.id == h.id {
			// Copy instead of splicing in place so snapshots held by
			// concurrent publishers stay intact.
			next := make([]*Handle, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, h.channel)
			} else {
				b.subs[h.channel] = next
			}
			return
		}
	}
}

// Publish delivers event to every subscriber of event.Channel. Publishing to
// a channel nobody listens on is a successful no-op.
func (b *Bus) Publish(event models.Event) Result {
	b.mu.RLock()
	snapshot := b.subs[event.Channel]
	b.mu.RUnlock()

	var res Result
	for _, h := range snapshot {
		if err := b.deliver(h, event); err != nil {
			res.Failed++
			h.deliveryErrors.Add(1)
			metrics.EventBusDeliveryErrors.WithLabelValues(string(event.Channel)).Inc()
			b.logger.Warn().
				Err(err).
				Str("channel", string(event.Channel)).
				Str("type", string(event.Type)).
				Uint64("seq", event.Seq).
				Str("subscriber", h.name).
				Msg("Event delivery failed")
			continue
		}
		res.Delivered++
	}
	return res
}

func (b *Bus) deliver(h *Handle, event models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return h.handler(event)
}

// SubscriberCount returns the number of handlers registered on channel.
func (b *Bus) SubscriberCount(channel models.Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}
