// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps the most recent entries in memory. The journal is lost
// on restart.
type MemoryStore struct {
	entries []Entry
	mu      sync.RWMutex
	maxLen  int
}

// NewMemoryStore creates a store holding at most maxLen entries. A
// non-positive maxLen becomes 10000.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		entries: make([]Entry, 0, min(maxLen, 1024)),
		maxLen:  maxLen,
	}
}

// Save appends entry. When full the oldest tenth is evicted in one step.
func (s *MemoryStore) Save(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxLen {
		evict := max(s.maxLen/10, 1)
		s.entries = slices.Delete(s.entries, 0, evict)
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// Query returns matching entries, newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !filter.matches(&s.entries[i]) {
			continue
		}
		results = append(results, s.entries[i])
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// Count returns the number of matching entries, ignoring Limit.
func (s *MemoryStore) Count(_ context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.entries {
		if filter.matches(&s.entries[i]) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (f *QueryFilter) matches(e *Entry) bool {
	if len(f.Actions) > 0 && !slices.Contains(f.Actions, e.Action) {
		return false
	}
	if len(f.Outcomes) > 0 && !slices.Contains(f.Outcomes, e.Outcome) {
		return false
	}
	if f.Channel != "" && e.Channel != f.Channel {
		return false
	}
	if f.Transport != "" && e.Source.Transport != f.Transport {
		return false
	}
	if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}
