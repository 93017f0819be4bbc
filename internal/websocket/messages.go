// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package websocket

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/overlay"
)

// Client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
	ActionPublish     = "publish"
	ActionCountdown   = "countdown"
)

// Reply types.
const (
	ReplyAck   = "ack"
	ReplyError = "error"
	ReplyPong  = "pong"
)

// Reply error codes that are not overlay validation codes.
const (
	CodeInvalidMessage    = "INVALID_MESSAGE"
	CodeUnknownChannel    = "UNKNOWN_CHANNEL"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeCommandsDisabled  = "COMMANDS_DISABLED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Request is one inbound client command.
type Request struct {
	Action    string          `json:"action"`
	Channel   string          `json:"channel,omitempty"`
	Type      string          `json:"type,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Reply answers a Request.
type Reply struct {
	Type      string     `json:"type"`
	Action    string     `json:"action,omitempty"`
	Channel   string     `json:"channel,omitempty"`
	RequestID string     `json:"requestId,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func ack(req Request, data any) Reply {
	return Reply{
		Type:      ReplyAck,
		Action:    req.Action,
		Channel:   req.Channel,
		RequestID: req.RequestID,
		Data:      data,
	}
}

func replyError(req Request, code, message string, details any) Reply {
	return Reply{
		Type:      ReplyError,
		Action:    req.Action,
		Channel:   req.Channel,
		RequestID: req.RequestID,
		Error:     &ErrorBody{Code: code, Message: message, Details: details},
	}
}

// errorReply maps a command error onto a reply.
func errorReply(req Request, err error) Reply {
	var verr *overlay.ValidationError
	if errors.As(err, &verr) {
		var details any
		if len(verr.Fields) > 0 {
			details = verr.Fields
		}
		return replyError(req, string(verr.Code), verr.Message, details)
	}
	var terr *countdown.TransitionError
	if errors.As(err, &terr) {
		return replyError(req, CodeInvalidTransition, terr.Error(), nil)
	}
	return replyError(req, CodeInternal, "command failed", nil)
}
