// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package supervisor runs ITDash services under a suture/v4 tree.

	itdash (root)
	├── data-layer       embedded NATS server, latest-value cache cleanup
	├── messaging-layer  WebSocket hub, broker consumer, Postgres listener, collectors
	└── api-layer        HTTP server

A service that returns an error is restarted with suture's backoff. Upstream
adapters handle their own reconnects through internal/reconnect and only
return when the tree shuts down, so a restart there indicates a bug rather
than a lost connection.

Supervisor events are logged through sutureslog into zerolog:

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	err := tree.Serve(ctx)
*/
package supervisor
