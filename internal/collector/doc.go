// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package collector polls Zabbix on a fixed cadence and emits dashboard
results.

Each Job fetches one event's data and the Scheduler wraps it as
{"event": ..., "data": ...} before handing it to a Sink:

  - PublisherSink publishes to <collector_subject>.<event> on NATS, where
    the broker consumer picks it up like any other producer's result.
  - FuncSink calls the router directly when NATS is disabled.

A failed fetch is logged and skipped; the previous value stays on the
dashboard until the next successful run.
*/
package collector
