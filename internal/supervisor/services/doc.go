// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package services provides suture.Service wrappers for tweetqueue components.

Each wrapper translates a component lifecycle into suture's Serve pattern:

  - HTTPServerService: ListenAndServe/Shutdown, for the API server
  - MessagingComponentsService: Start/Shutdown, for the transport and batch consumer
  - RouterService: blocking Run, for the dead-letter sink router
  - LoopService: Start/Stop, for the outbox retry loop and compactor
  - FeedHubService: RunWithContext, for the live feed hub

Return values determine supervisor behavior:

	nil         -> stopped cleanly, not restarted
	error       -> crashed, restarted with backoff
	ctx.Err()   -> shutdown requested

All wrappers implement fmt.Stringer so suture logs them by name.
*/
package services
