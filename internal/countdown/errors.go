// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package countdown

import (
	"fmt"

	"github.com/tomtom215/showrunner/internal/models"
)

// TransitionError is returned when an action is not valid in the current
// state. No event is published and state is unchanged.
type TransitionError struct {
	Action models.EventType
	From   models.CountdownPhase
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("countdown %s not allowed while %s: %s", e.Action, e.From, e.Reason)
}
