// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package overlay

import (
	"fmt"

	"github.com/tomtom215/showrunner/internal/validation"
)

// ErrorCode classifies a rejected overlay action.
type ErrorCode string

const (
	// InvalidAction means the channel is unknown, the type is not part of the
	// channel's vocabulary, or the type may only be produced by the engine
	// that owns the channel.
	InvalidAction ErrorCode = "INVALID_ACTION"

	// InvalidPayload means the payload could not be decoded or failed
	// validation after defaults were applied.
	InvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// ValidationError is returned for every rejected publish. It is always the
// caller's fault and is never retried.
type ValidationError struct {
	Code    ErrorCode
	Channel string
	Type    string
	Message string
	Fields  []validation.FieldError
}

func (e *ValidationError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s/%s: %s", e.Code, e.Channel, e.Type, e.Message)
}

func invalidAction(channel, typ, msg string) *ValidationError {
	return &ValidationError{Code: InvalidAction, Channel: channel, Type: typ, Message: msg}
}

func invalidPayload(channel, typ, msg string, fields []validation.FieldError) *ValidationError {
	return &ValidationError{Code: InvalidPayload, Channel: channel, Type: typ, Message: msg, Fields: fields}
}
