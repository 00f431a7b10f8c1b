// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package api wires the HTTP surface onto a chi router.

Routes:

	GET /          service banner
	GET /health    status, connected clients, uptime, process memory, dependency checks
	GET /metrics   Prometheus exposition
	GET /api/ws    WebSocket sessions (see internal/websocket)

Every route runs behind request id, recoverer, request logging and CORS.
All but /metrics are rate limited per client IP with go-chi/httprate.
*/
package api
