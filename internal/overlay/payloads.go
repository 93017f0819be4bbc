// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package overlay

import "github.com/tomtom215/showrunner/internal/models"

// Payload is implemented by every typed overlay payload. applyDefaults fills
// omitted optional fields so that subscribers always receive a fully
// populated payload.
type Payload interface {
	applyDefaults()
}

// Defaults applied by the manager.
const (
	DefaultLowerThirdSide     = "left"
	DefaultLowerThirdDuration = 8
	DefaultPosterTransition   = "fade"
	DefaultPosterPosition     = "center"
	DefaultChatPlatform       = "twitch"
	DefaultChatDuration       = 10
	DefaultMediaKind          = "video"
	DefaultMediaVolume        = 1.0
	DefaultCountdownFormat    = "mm:ss"
	DefaultCountdownPosition  = "center"
	DefaultCountdownSize      = "medium"
	DefaultCountdownStyle     = "default"

	// MaxCountdownSeconds is 24 hours.
	MaxCountdownSeconds = 86400
)

// LowerThirdShow shows a name strap. Theme is normally filled in from the
// guest profile before publish.
type LowerThirdShow struct {
	Title     string         `json:"title" validate:"required,max=200"`
	Subtitle  string         `json:"subtitle,omitempty" validate:"max=200"`
	Side      string         `json:"side" validate:"oneof=left right"`
	Duration  *int           `json:"duration" validate:"required,min=0,max=3600"`
	ProfileID string         `json:"profileId,omitempty" validate:"max=128"`
	Theme     map[string]any `json:"theme,omitempty"`
}

func (p *LowerThirdShow) applyDefaults() {
	if p.Side == "" {
		p.Side = DefaultLowerThirdSide
	}
	if p.Duration == nil {
		d := DefaultLowerThirdDuration
		p.Duration = &d
	}
}

// PosterShow shows a poster. URL may be resolved from PosterID by the
// content collaborator before publish.
type PosterShow struct {
	PosterID   string `json:"posterId,omitempty" validate:"max=128"`
	URL        string `json:"url" validate:"required,assetref"`
	Title      string `json:"title,omitempty" validate:"max=200"`
	Transition string `json:"transition" validate:"oneof=fade slide zoom cut"`
	Position   string `json:"position" validate:"oneof=center left right"`
}

func (p *PosterShow) applyDefaults() {
	if p.Transition == "" {
		p.Transition = DefaultPosterTransition
	}
	if p.Position == "" {
		p.Position = DefaultPosterPosition
	}
}

// PosterBigPictureShow shows a full-frame poster.
type PosterBigPictureShow struct {
	PosterID   string `json:"posterId,omitempty" validate:"max=128"`
	URL        string `json:"url" validate:"required,assetref"`
	Title      string `json:"title,omitempty" validate:"max=200"`
	Transition string `json:"transition" validate:"oneof=fade slide zoom cut"`
}

func (p *PosterBigPictureShow) applyDefaults() {
	if p.Transition == "" {
		p.Transition = DefaultPosterTransition
	}
}

// ChatHighlightShow pins a chat message on screen.
type ChatHighlightShow struct {
	Author    string   `json:"author" validate:"required,max=100"`
	Message   string   `json:"message" validate:"required,max=500"`
	Platform  string   `json:"platform" validate:"oneof=twitch youtube kick"`
	AvatarURL string   `json:"avatarUrl,omitempty" validate:"omitempty,assetref"`
	Color     string   `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Badges    []string `json:"badges,omitempty" validate:"max=10,dive,max=64"`
	Duration  *int     `json:"duration" validate:"required,min=0,max=3600"`
}

func (p *ChatHighlightShow) applyDefaults() {
	if p.Platform == "" {
		p.Platform = DefaultChatPlatform
	}
	if p.Duration == nil {
		d := DefaultChatDuration
		p.Duration = &d
	}
}

// MediaPlay starts a clip on one of the media players.
type MediaPlay struct {
	Src    string   `json:"src" validate:"required,assetref"`
	Kind   string   `json:"kind" validate:"oneof=video audio image"`
	Volume *float64 `json:"volume" validate:"required,gte=0,lte=1"`
	Loop   bool     `json:"loop"`
}

func (p *MediaPlay) applyDefaults() {
	if p.Kind == "" {
		p.Kind = DefaultMediaKind
	}
	if p.Volume == nil {
		v := DefaultMediaVolume
		p.Volume = &v
	}
}

// Empty is the payload of HIDE and STOP events.
type Empty struct{}

func (*Empty) applyDefaults() {}

// CountdownPayload carries the full countdown state. Only the countdown
// engine publishes it.
type CountdownPayload struct {
	models.CountdownState
}

func (p *CountdownPayload) applyDefaults() {
	ApplyCountdownDefaults(&p.Display)
}

// ApplyCountdownDefaults fills omitted countdown display options.
func ApplyCountdownDefaults(d *models.CountdownDisplay) {
	if d.Format == "" {
		d.Format = DefaultCountdownFormat
	}
	if d.Position == "" {
		d.Position = DefaultCountdownPosition
	}
	if d.Size == "" {
		d.Size = DefaultCountdownSize
	}
	if d.Style == "" {
		d.Style = DefaultCountdownStyle
	}
}
