// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

/*
Package supervisor provides process supervision for tweetqueue using suture v4.

The tree restarts crashed services with backoff and stops them in order on
shutdown:

	RootSupervisor ("tweetqueue")
	├── DataSupervisor ("data-layer")
	│   └── RouterService ("dlq-sink", if PERSIST_DEAD_LETTERS)
	├── MessagingSupervisor ("messaging-layer")
	│   └── MessagingComponentsService (transport + batch consumer)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewMessagingComponentsService(components, 10*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh
	tree.LogUnstoppedServices()

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
When the counter exceeds FailureThreshold the supervisor waits
FailureBackoff before restarting. A service that returns nil is not
restarted; a service that returns an error is.

The tweet store is not supervised. It is an embedded library (DuckDB) or a
connection pool (pgx) whose failures surface as query errors.
*/
package supervisor
