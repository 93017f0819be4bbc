// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

// Package content provides the read-only lookups used to enrich SHOW
// payloads before they are published: guest profile themes and the active
// poster set.
package content

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
)

// ErrNotFound is returned when a profile, poster set or poster is unknown.
var ErrNotFound = errors.New("content not found")

// Poster is one entry of a poster set.
type Poster struct {
	ID    string `koanf:"id" json:"id"`
	URL   string `koanf:"url" json:"url"`
	Title string `koanf:"title" json:"title,omitempty"`
}

// PosterSet is a named, ordered list of posters.
type PosterSet struct {
	Name    string   `json:"name"`
	Posters []Poster `json:"posters"`
}

// Find returns the poster with id.
func (s PosterSet) Find(id string) (Poster, bool) {
	for _, p := range s.Posters {
		if p.ID == id {
			return p, true
		}
	}
	return Poster{}, false
}

// Provider is implemented by content sources.
type Provider interface {
	ThemeForProfile(ctx context.Context, profileID string) (map[string]any, error)
	ActivePosterSet(ctx context.Context) (PosterSet, error)
}

// StaticProvider serves content loaded from configuration. The active
// poster set can be switched at runtime.
type StaticProvider struct {
	mu     sync.RWMutex
	themes map[string]map[string]any
	sets   map[string][]Poster
	active string
}

// NewStaticProvider copies its inputs.
func NewStaticProvider(themes map[string]map[string]any, sets map[string][]Poster, active string) *StaticProvider {
	p := &StaticProvider{
		themes: make(map[string]map[string]any, len(themes)),
		sets:   make(map[string][]Poster, len(sets)),
		active: active,
	}
	for id, theme := range themes {
		p.themes[id] = maps.Clone(theme)
	}
	for name, posters := range sets {
		p.sets[name] = slices.Clone(posters)
	}
	return p
}

// ThemeForProfile implements Provider.
func (p *StaticProvider) ThemeForProfile(_ context.Context, profileID string) (map[string]any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	theme, ok := p.themes[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(theme), nil
}

// ActivePosterSet implements Provider.
func (p *StaticProvider) ActivePosterSet(_ context.Context) (PosterSet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	posters, ok := p.sets[p.active]
	if !ok {
		return PosterSet{}, ErrNotFound
	}
	return PosterSet{Name: p.active, Posters: slices.Clone(posters)}, nil
}

// SetActivePosterSet switches the active set.
func (p *StaticProvider) SetActivePosterSet(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sets[name]; !ok {
		return ErrNotFound
	}
	p.active = name
	return nil
}

// PosterSetNames lists the configured sets in name order.
func (p *StaticProvider) PosterSetNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.sets))
	for name := range p.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
