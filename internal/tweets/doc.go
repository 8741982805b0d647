// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package tweets holds the tweet creation pipeline: request and tweet
// validation, user resolution, persistence, and the error kinds that
// classify each failure.
//
// A Repository runs one request through four steps, stopping at the first
// failure:
//
//  1. NewCreateTweetRequest: content and user must be present
//  2. UserFinder.FindByUsername: the user must exist
//  3. NewTweet: content length, denylist, and user rules
//  4. TweetCreator.CreateTweet: the insert must return a row
//
// Failures are *Error values tagged with a Kind. Classify renders any error
// as the string recorded in dead-letter records.
package tweets
