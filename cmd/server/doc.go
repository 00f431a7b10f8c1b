// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package main is the entry point for the ITDash real-time backend.

ITDash pushes IT operations data (PACS entry/exit events, Zabbix monitoring
results, Avaya call records and Cisco VPN sessions) to dashboard clients
over authenticated WebSocket sessions.

# Application Architecture

	RootSupervisor ("itdash")
	├── DataSupervisor ("data-layer")
	│   ├── Embedded NATS server (NATS_EMBEDDED=true)
	│   └── In-memory latest-value cleanup (REDIS_ENABLED=false)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── Broker consumer (pacs + collector subjects)
	│   ├── Postgres LISTEN adapter (cisco_vpn_event trigger)
	│   └── Collector scheduler (ZABBIX_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server (/, /api/ws, /health, /metrics)

Startup order:

 1. Configuration (koanf: defaults, .env, config.yaml, environment)
 2. Logging (zerolog, optional lumberjack file)
 3. Postgres pool and the VPN notify trigger
 4. Latest-value cache (Redis or in-memory)
 5. Hub, token decoder and event router
 6. NATS: embedded server, stream, publisher, consumer
 7. Initial upstream connections with bounded retries
 8. Supervisor tree

Any adapter that cannot connect within RECONNECT_RETRIES attempts aborts
startup with exit code 1. After startup, adapters reconnect forever.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, client
sessions are closed and adapters release their connections.

# Example Usage

	export DATABASE_HOST=db.internal
	export JWT_SECRET_KEY=$(openssl rand -hex 32)
	export ZABBIX_ENABLED=true
	export ZABBIX_HOST=https://zabbix.internal/api_jsonrpc.php
	export ZABBIX_AUTH_TOKEN=...
	./itdash
*/
package main
