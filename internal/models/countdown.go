// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package models

// CountdownPhase is the state machine position of the countdown engine.
type CountdownPhase string

const (
	CountdownIdle    CountdownPhase = "idle"
	CountdownRunning CountdownPhase = "running"
	CountdownPaused  CountdownPhase = "paused"
)

// CountdownDisplay holds renderer options. The engine stores them verbatim
// after defaults are applied; their meaning belongs to the renderer.
type CountdownDisplay struct {
	Style    string         `json:"style,omitempty" validate:"omitempty,max=64"`
	Format   string         `json:"format,omitempty" validate:"omitempty,oneof=ss mm:ss hh:mm:ss"`
	Position string         `json:"position,omitempty" validate:"omitempty,max=32"`
	Size     string         `json:"size,omitempty" validate:"omitempty,oneof=small medium large xl"`
	Theme    map[string]any `json:"theme,omitempty"`
}

// CountdownState is the singleton countdown value object.
//
// Invariant: RemainingSeconds <= TotalSeconds, and Running implies
// Phase == CountdownRunning.
type CountdownState struct {
	TotalSeconds     uint32           `json:"totalSeconds" validate:"lte=86400"`
	RemainingSeconds uint32           `json:"remainingSeconds" validate:"ltefield=TotalSeconds"`
	Running          bool             `json:"running"`
	Phase            CountdownPhase   `json:"phase"`
	Display          CountdownDisplay `json:"display"`
}
