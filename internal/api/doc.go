// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package api provides the HTTP surface of tweetqueue using the Chi router.

The API is a producer and an observation window for the queue pipeline.
Creating a tweet is asynchronous: POST /api/v1/tweets checks that content
and user are present, publishes an envelope to the create-tweets topic and
answers 202 with the message id. The consumer applies the full validation,
resolves the user and stores the tweet, retrying or dead-lettering on
failure.

Responses use models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":1}}
	{"status":"error","data":null,"error":{"code":"VALIDATION_ERROR","message":"..."},"metadata":{...}}

With AUTH_MODE=jwt the admin routes (user seeding, dead-letter listing, the
audit trail and backups) need a bearer token from POST /api/v1/auth/login,
and the token's role must be allowed by the authz policy: viewers may read,
admins may also create users and trigger backups. Logins, refusals and admin actions are written to
the audit trail.

With BACKUP_ENABLED=true, GET /api/v1/backups lists the store archives and
POST /api/v1/backups takes one immediately (409 if one is already running).

GET /api/v1/stream upgrades to a WebSocket that pushes tweet_created,
tweet_failed and dead_letter_stored events as the consumer produces them.

GET / and GET /healthz are outside the envelope: the former answers plain
"Hello World", the latter returns eventprocessor.OverallHealth with uptime.
*/
package api
