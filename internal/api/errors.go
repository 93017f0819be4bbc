// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/showrunner/internal/countdown"
	"github.com/tomtom215/showrunner/internal/device"
	"github.com/tomtom215/showrunner/internal/logging"
	"github.com/tomtom215/showrunner/internal/overlay"
	"github.com/tomtom215/showrunner/internal/validation"
)

// ErrDeviceUnavailable is returned by device endpoints when no device
// manager is configured.
var ErrDeviceUnavailable = errors.New("device control is not configured")

// validationDetails is the details block of a VALIDATION_FAILED response.
type validationDetails struct {
	Code    overlay.ErrorCode       `json:"code"`
	Channel string                  `json:"channel,omitempty"`
	Type    string                  `json:"type,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// transitionDetails is the details block of a countdown CONFLICT response.
type transitionDetails struct {
	Action string `json:"action"`
	From   string `json:"from"`
}

// respondDomainError maps domain errors onto the response envelope:
// validation 400, invalid transition 409, device 502, anything else 500.
func respondDomainError(rw *ResponseWriter, r *http.Request, err error) {
	var (
		verr *overlay.ValidationError
		terr *countdown.TransitionError
		cerr *device.ConnectionError
		rerr *device.RequestError
	)
	switch {
	case errors.As(err, &verr):
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected overlay command")
		rw.ValidationError(verr.Message, validationDetails{
			Code:    verr.Code,
			Channel: verr.Channel,
			Type:    verr.Type,
			Fields:  verr.Fields,
		})
	case errors.As(err, &terr):
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected countdown transition")
		rw.Conflict(terr.Error(), transitionDetails{
			Action: string(terr.Action),
			From:   string(terr.From),
		})
	case errors.As(err, &cerr):
		rw.ExternalServiceError("obs", err)
	case errors.As(err, &rerr):
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodeExternalServiceFail, rerr.Error(),
			map[string]any{"requestType": rerr.RequestType, "code": rerr.Code})
	case errors.Is(err, ErrDeviceUnavailable):
		rw.ServiceUnavailable(err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Unhandled API error")
		rw.InternalError("internal error")
	}
}
