// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/metrics"
)

// Config holds journal settings.
type Config struct {
	// BufferSize is the async write buffer. Entries are dropped when it is
	// full so a slow store never delays a command.
	BufferSize int

	// LogToStdout also writes every entry to the application log.
	LogToStdout bool
}

// DefaultConfig returns the journal defaults.
func DefaultConfig() Config {
	return Config{BufferSize: 256}
}

// Journal records operator commands asynchronously.
type Journal struct {
	cfg     Config
	store   Store
	entries chan *Entry
	stop    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	once    sync.Once
	logger  zerolog.Logger
}

// NewJournal starts the background writer. Call Close to flush it.
func NewJournal(store Store, cfg Config) *Journal {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	j := &Journal{
		cfg:     cfg,
		store:   store,
		entries: make(chan *Entry, cfg.BufferSize),
		stop:    make(chan struct{}),
		logger:  logging.WithComponent("audit"),
	}
	j.wg.Add(1)
	go j.writer()
	return j
}

// Record stamps entry with an ID, time, correlation ID and the source
// carried by ctx, then queues it. It never blocks.
func (j *Journal) Record(ctx context.Context, entry Entry) {
	if j.closed.Load() {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}
	if entry.Source == (Source{}) {
		entry.Source = SourceFromContext(ctx)
	}
	if entry.Source.RequestID == "" {
		entry.Source.RequestID = logging.RequestIDFromContext(ctx)
	}

	metrics.AuditEntries.WithLabelValues(string(entry.Action), string(entry.Outcome)).Inc()

	select {
	case j.entries <- &entry:
	default:
		metrics.AuditEntriesDropped.Inc()
		j.logger.Warn().Str("action", string(entry.Action)).Msg("Journal buffer full, dropping entry")
	}
}

func (j *Journal) writer() {
	defer j.wg.Done()
	for {
		select {
		case <-j.stop:
			for {
				select {
				case e := <-j.entries:
					j.write(e)
				default:
					return
				}
			}
		case e := <-j.entries:
			j.write(e)
		}
	}
}

func (j *Journal) write(e *Entry) {
	if j.cfg.LogToStdout {
		if data, err := json.Marshal(e); err == nil {
			j.logger.Info().RawJSON("entry", data).Msg("Operator command")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.store.Save(ctx, e); err != nil {
		j.logger.Error().Err(err).Str("id", e.ID).Msg("Failed to save journal entry")
	}
}

// Query returns matching entries, newest first.
func (j *Journal) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return j.store.Query(ctx, filter)
}

// Count returns the number of matching entries.
func (j *Journal) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return j.store.Count(ctx, filter)
}

// Close stops accepting entries and waits for queued ones to be written.
// Idempotent.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.stop)
		j.wg.Wait()
	})
	return nil
}
