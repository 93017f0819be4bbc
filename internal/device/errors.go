// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package device

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by requests on a session whose socket is gone.
var ErrSessionClosed = errors.New("device session closed")

// ErrAuthenticationFailed is returned when the server rejects the password.
var ErrAuthenticationFailed = errors.New("device authentication failed")

// ConnectionError is returned when the device is unreachable, the handshake
// fails, or an operation needs a connection that is not there. It may be
// transient; callers decide whether to retry.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("device %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("device %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RequestError is a request the device answered with a failure status.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("%s failed with code %d", e.RequestType, e.Code)
	}
	return fmt.Sprintf("%s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
}
