// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package middleware provides HTTP middleware for the chi router.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counts, durations and in-flight gauge
  - RequestLogger: one structured log line per request

Every wrapper keeps http.Hijacker reachable so the WebSocket upgrade at
/api/ws works behind the full stack:

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
