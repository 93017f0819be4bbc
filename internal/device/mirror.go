// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package device

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/models"
)

// Mirror is the locally cached view of the production software. Reads never
// touch the network.
type Mirror struct {
	mu    sync.RWMutex
	state models.DeviceState
	now   func() time.Time
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{now: time.Now}
}

// State returns a copy of the mirrored state.
func (m *Mirror) State() models.DeviceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Refresh queries the device and replaces the mirror wholesale. On any
// query failure the previous state is kept and the error returned.
func (m *Mirror) Refresh(ctx context.Context, q Querier) error {
	var program currentProgramSceneResponse
	if err := q.Request(ctx, RequestGetCurrentProgramScene, nil, &program); err != nil {
		return fmt.Errorf("refresh current scene: %w", err)
	}

	var list sceneListResponse
	if err := q.Request(ctx, RequestGetSceneList, nil, &list); err != nil {
		return fmt.Errorf("refresh scene list: %w", err)
	}

	var stream outputStatusResponse
	if err := q.Request(ctx, RequestGetStreamStatus, nil, &stream); err != nil {
		return fmt.Errorf("refresh stream status: %w", err)
	}

	var record outputStatusResponse
	if err := q.Request(ctx, RequestGetRecordStatus, nil, &record); err != nil {
		return fmt.Errorf("refresh record status: %w", err)
	}

	current := program.CurrentProgramSceneName
	if current == "" {
		current = program.SceneName
	}

	next := models.DeviceState{
		CurrentScene:   current,
		Scenes:         sceneNames(list.Scenes),
		Streaming:      stream.OutputActive,
		StreamTimecode: stream.OutputTimecode,
		Recording:      record.OutputActive,
		RecordPaused:   record.OutputPaused,
		RecordTimecode: record.OutputTimecode,
		RefreshedAt:    m.now().UTC(),
	}

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	return nil
}

// Apply ingests a push event. It returns false for events the mirror does
// not track.
func (m *Mirror) Apply(ev PushEvent) bool {
	switch ev.Type {
	case EventCurrentProgramSceneChanged:
		var data sceneChangedEvent
		if !decodeEvent(ev, &data) {
			return false
		}
		m.update(func(s *models.DeviceState) { s.CurrentScene = data.SceneName })

	case EventSceneListChanged:
		var data sceneListChangedEvent
		if !decodeEvent(ev, &data) {
			return false
		}
		names := sceneNames(data.Scenes)
		m.update(func(s *models.DeviceState) { s.Scenes = names })

	case EventSceneNameChanged:
		var data sceneNameChangedEvent
		if !decodeEvent(ev, &data) {
			return false
		}
		m.update(func(s *models.DeviceState) {
			if i := slices.Index(s.Scenes, data.OldSceneName); i >= 0 {
				s.Scenes = slices.Clone(s.Scenes)
				s.Scenes[i] = data.SceneName
			}
			if s.CurrentScene == data.OldSceneName {
				s.CurrentScene = data.SceneName
			}
		})

	case EventStreamStateChanged:
		var data outputStateChangedEvent
		if !decodeEvent(ev, &data) {
			return false
		}
		m.update(func(s *models.DeviceState) {
			s.Streaming = data.OutputActive
			if !data.OutputActive {
				s.StreamTimecode = ""
			}
		})

	case EventRecordStateChanged:
		var data outputStateChangedEvent
		if !decodeEvent(ev, &data) {
			return false
		}
		m.update(func(s *models.DeviceState) {
			s.Recording = data.OutputActive
			s.RecordPaused = data.OutputState == OutputStatePaused
			if !data.OutputActive {
				s.RecordTimecode = ""
			}
		})

	default:
		return false
	}
	return true
}

func (m *Mirror) update(fn func(*models.DeviceState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

func decodeEvent(ev PushEvent, out any) bool {
	if err := json.Unmarshal(ev.Data, out); err != nil {
		logging.Warn().Err(err).Str("event_type", ev.Type).Msg("Failed to decode device event data")
		return false
	}
	return true
}

// sceneNames orders scenes the way the production software lists them in
// its UI: highest index first.
func sceneNames(entries []sceneEntry) []string {
	sorted := slices.Clone(entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SceneIndex > sorted[j].SceneIndex })
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.SceneName
	}
	return names
}
