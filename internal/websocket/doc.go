// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package websocket implements the dashboard's client-facing real-time channel.

# Components

  - Hub: the connection registry. Tracks sessions by connection id and fans
    serialized envelopes out to them.
  - Client: one session's outbound side. A bounded send queue drained by its
    own write pump, with ping keepalive.
  - SessionHandler: the HTTP endpoint. Upgrades, authenticates the token
    query parameter, registers the client and serves the request loop.

# Delivery

Broadcast snapshots the registry, then enqueues the payload on every
client's queue. A full queue is retried until the per-send timeout expires,
after which the client is unregistered. Slow sockets never block other
sessions because writes happen on each client's write pump.

# Session lifecycle

	Connecting -> Authenticating -> Active -> Closing -> Closed

An invalid token gets close code 1008 ("Invalid token") and is never
registered. Once Active, every exit path unregisters the client.

# Usage

	hub := websocket.NewHub(cfg.WebSocket.SendTimeout)
	go hub.RunWithContext(ctx)

	sessions := websocket.NewSessionHandler(hub, jwtManager, router, cfg.WebSocket, cfg.Security.CORSOrigins)
	r.Get("/api/ws", sessions.ServeHTTP)

	env := events.NewListEnvelope(events.EventPacsLastEvent, records)
	hub.BroadcastEnvelope(env)
*/
package websocket
