// Showrunner - Live Production Overlay Control Plane
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showrunner

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/showrunner/internal/audit"
	"github.com/tomtom215/showrunner/internal/validation"
)

// AuditQuery holds the query parameters of GET /api/v1/audit.
type AuditQuery struct {
	Actions       []string `validate:"dive,oneof=overlay.publish countdown device.connect device.disconnect device.reconnect device.scene"`
	Outcomes      []string `validate:"dive,oneof=success rejected failure"`
	Channel       string   `validate:"omitempty,max=64"`
	Transport     string   `validate:"omitempty,oneof=http websocket"`
	CorrelationID string   `validate:"omitempty,max=128"`
	Limit         int      `validate:"min=1,max=1000"`
	Since         *time.Time
}

// AuditResponse is the body of GET /api/v1/audit.
type AuditResponse struct {
	Entries []audit.Entry `json:"entries"`
	Total   int64         `json:"total"`
}

// AuditEntries returns journaled operator commands, newest first.
//
// GET /api/v1/audit?action=overlay.publish,countdown&outcome=rejected&channel=poster&transport=websocket&since=2026-03-01T20:00:00Z&limit=50
func (h *Handler) AuditEntries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.journal == nil {
		rw.ServiceUnavailable("command journal is disabled")
		return
	}

	q, err := parseAuditQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		rw.ValidationError("invalid audit query", verr.Errors())
		return
	}

	filter := q.filter()
	entries, err := h.journal.Query(r.Context(), filter)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	total, err := h.journal.Count(r.Context(), filter)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.Success(AuditResponse{Entries: entries, Total: total})
}

func parseAuditQuery(r *http.Request) (AuditQuery, error) {
	v := r.URL.Query()
	q := AuditQuery{
		Actions:       splitList(v.Get("action")),
		Outcomes:      splitList(v.Get("outcome")),
		Channel:       v.Get("channel"),
		Transport:     v.Get("transport"),
		CorrelationID: v.Get("correlation_id"),
		Limit:         audit.DefaultQueryFilter().Limit,
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, errInvalidParam("limit", s)
		}
		q.Limit = n
	}
	if s := v.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errInvalidParam("since", s)
		}
		q.Since = &t
	}
	return q, nil
}

func (q *AuditQuery) filter() audit.QueryFilter {
	f := audit.QueryFilter{
		Channel:       q.Channel,
		Transport:     q.Transport,
		CorrelationID: q.CorrelationID,
		Since:         q.Since,
		Limit:         q.Limit,
	}
	for _, a := range q.Actions {
		f.Actions = append(f.Actions, audit.Action(a))
	}
	for _, o := range q.Outcomes {
		f.Outcomes = append(f.Outcomes, audit.Outcome(o))
	}
	return f
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type paramError struct{ name, value string }

func (e paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return paramError{name: name, value: value}
}
