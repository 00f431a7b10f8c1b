// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package store holds the read-only Postgres queries behind dashboard
// envelopes: PACS entry/exit events, employees and departments, Avaya CDRs
// and the Cisco VPN syslog. Every method returns plain records ready to be
// embedded in an envelope.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store runs collaborator queries.
type Store struct {
	db Querier
}

// New wraps db.
func New(db Querier) *Store {
	return &Store{db: db}
}

// OpenPool connects a pool and verifies it with a ping.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Host, err)
	}

	logging.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("Postgres pool ready")
	return pool, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// collect runs query and maps every row with fn, recording metrics under name.
func collect[T any](ctx context.Context, s *Store, name, query string, fn pgx.RowToFunc[T], args ...any) ([]T, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery(name, time.Since(start), err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out, err := pgx.CollectRows(rows, fn)
	metrics.RecordDBQuery(name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// likePrefix escapes LIKE wildcards in s and appends %.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s) + "%"
}

// naiveISO renders timestamps without zone the way the dashboards expect.
const naiveISO = "2006-01-02T15:04:05.999999"

// zonedISO renders timestamptz values with a +hh:mm offset.
const zonedISO = "2006-01-02T15:04:05.999999-07:00"
