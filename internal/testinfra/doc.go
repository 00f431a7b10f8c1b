// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package testinfra starts Postgres and Redis containers for integration
// tests with testcontainers-go.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/store/... ./internal/cache/... ./internal/pglisten/...
//
// The Postgres container is created with the operational schema (PACS,
// employees, departments, Avaya CDR, Cisco VPN events) so store queries run
// against real tables:
//
//	func TestStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    pg := testinfra.StartPostgres(t)
//	    pool, _ := pgxpool.New(ctx, pg.DSN)
//	    ...
//	}
package testinfra
