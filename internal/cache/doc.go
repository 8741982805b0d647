// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package cache provides a thread-safe, generic LRU cache with TTL expiry.

The store layer uses it to remember resolved users by username so that a
batch of tweets from the same author resolves the user once.

# Usage

	users := cache.NewLRU[string, models.User](10000, 5*time.Minute)
	users.Add("alice", user)
	if u, ok := users.Get("alice"); ok {
	    // cache hit
	}

# Thread Safety

All methods are safe for concurrent use. A single mutex guards the map and
the recency list; Get takes the write lock because it reorders the list.
*/
package cache
