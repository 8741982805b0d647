// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package websocket streams pipeline events to live clients.

The Hub is registered as the batch processor's and dead-letter sink's
observer. Every tweet the consumer stores, every failed message and every
persisted dead letter is broadcast as a JSON frame to the clients connected
to GET /api/v1/stream:

	{"type":"tweet_created","data":{"id":"42","user":{...},"content":"hi",...}}
	{"type":"tweet_failed","data":{"messageId":"...","error":"UserNotFoundError - User not found","outcome":"requeued",...}}
	{"type":"dead_letter_stored","data":{"id":"...","failedAttempts":3,...}}

Clients may send {"type":"ping"} and receive {"type":"pong"}.

# Architecture

The hub owns the client set and runs in one goroutine under the supervisor
tree. Each client has a read pump and a write pump:

	consumer ──► Hub.TweetCreated ──► broadcast chan ──► Hub loop ──► client.send ──► writePump ──► conn

Broadcasting never blocks the consumer. When the hub's buffer is full the
event is dropped and counted; when a client's buffer is full that client is
disconnected.

# Usage

	hub := websocket.NewHub(cfg.Feed.MaxClients)
	processor.WithObserver(hub)
	tree.AddMessagingService(services.NewFeedHubService(hub))

	conn, _ := upgrader.Upgrade(w, r, nil)
	hub.Attach(websocket.NewClient(hub, conn))
*/
package websocket
