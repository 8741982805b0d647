// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tweetqueue/internal/models"
	"github.com/tomtom215/tweetqueue/internal/validation"
)

// deadLetterQuery holds the raw query parameters of the dead-letter listing.
type deadLetterQuery struct {
	Since string `json:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Kind  string `json:"kind" validate:"omitempty,oneof=CreateTweetValidationError CreateUserValidationError UserNotFoundError CreateTweetError Error"`
}

// deadLettersResponse is the body of GET /api/v1/dead-letters.
type deadLettersResponse struct {
	Records []*models.DeadLetterRecord `json:"records"`
	Count   int                        `json:"count"`
	Limit   int                        `json:"limit"`
}

// DeadLetters lists persisted dead-letter records, newest first.
//
// Query parameters:
//   - limit: 1..500, default 50 (larger values are capped)
//   - since: RFC 3339 instant; only records that failed at or after it
//   - kind: error kind name, e.g. UserNotFoundError
func (h *Handler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, ok := parseLimit(w, r, models.DefaultDeadLetterLimit, models.MaxDeadLetterLimit)
	if !ok {
		return
	}

	q := deadLetterQuery{
		Since: r.URL.Query().Get("since"),
		Kind:  r.URL.Query().Get("kind"),
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, verr.Error(), nil)
		return
	}

	filter := models.DeadLetterFilter{Limit: limit, Kind: q.Kind}
	if q.Since != "" {
		// validated above
		since, _ := time.Parse(time.RFC3339, q.Since)
		filter.Since = &since
	}

	records, err := h.store.ListDeadLetters(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to list dead letters", err)
		return
	}
	if records == nil {
		records = []*models.DeadLetterRecord{}
	}
	h.audit.LogDeadLettersRead(r.Context(), actor(r), clientIP(r), len(records))

	respondData(w, http.StatusOK, deadLettersResponse{
		Records: records,
		Count:   len(records),
		Limit:   filter.EffectiveLimit(),
	}, start)
}
