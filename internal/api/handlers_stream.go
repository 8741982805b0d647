// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tomtom215/tweetqueue/internal/websocket"
)

// Stream upgrades to a WebSocket that receives tweet_created, tweet_failed
// and dead_letter_stored events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Live feed is disabled", nil)
		return
	}
	if h.feed.Full() {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Too many feed clients", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	h.feed.Attach(websocket.NewClient(h.feed, conn))
}

// originChecker allows requests without an Origin header (non-browser
// clients), same-host origins and the configured CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
