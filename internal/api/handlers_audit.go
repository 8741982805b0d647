// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tweetqueue/internal/audit"
	"github.com/tomtom215/tweetqueue/internal/validation"
)

type auditQuery struct {
	Type    string `json:"type" validate:"omitempty,oneof=auth.success auth.failure auth.lockout authz.denied user.created data.dead_letters_read data.audit_read backup.created"`
	Outcome string `json:"outcome" validate:"omitempty,oneof=success failure"`
	Since   string `json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type auditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
}

// AuditEvents lists recorded admin actions, newest first.
//
// Query parameters:
//   - limit: 1..1000, default 100
//   - type: event type, e.g. auth.failure
//   - outcome: success or failure
//   - actor: admin username
//   - since: RFC 3339 instant
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, ok := parseLimit(w, r, audit.DefaultQueryLimit, audit.MaxQueryLimit)
	if !ok {
		return
	}

	params := r.URL.Query()
	q := auditQuery{
		Type:    params.Get("type"),
		Outcome: params.Get("outcome"),
		Since:   params.Get("since"),
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, verr.Error(), nil)
		return
	}

	filter := audit.QueryFilter{Actor: params.Get("actor"), Limit: limit}
	if q.Type != "" {
		filter.Types = []audit.EventType{audit.EventType(q.Type)}
	}
	if q.Outcome != "" {
		filter.Outcomes = []audit.Outcome{audit.Outcome(q.Outcome)}
	}
	if q.Since != "" {
		// validated above
		since, _ := time.Parse(time.RFC3339, q.Since)
		filter.StartTime = &since
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to query audit events", err)
		return
	}
	total, err := h.audit.Count(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to count audit events", err)
		return
	}

	h.audit.LogAuditRead(r.Context(), actor(r), clientIP(r), len(events))

	respondData(w, http.StatusOK, auditEventsResponse{
		Events: events,
		Count:  len(events),
		Total:  total,
		Limit:  limit,
	}, start)
}
