// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

//go:build integration

package pglisten_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/itdash/internal/pglisten"
	"github.com/tomtom215/itdash/internal/store"
	"github.com/tomtom215/itdash/internal/testinfra"
)

func TestListener_TriggerNotification(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	pg := testinfra.StartPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, pg.DSN)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	const channel = "vpn_event_channel"
	if err := store.New(pool).EnsureVPNTrigger(ctx, channel); err != nil {
		t.Fatalf("EnsureVPNTrigger: %v", err)
	}

	got := make(chan string, 1)
	l := pglisten.New(pg.DSN, channel, func(_ context.Context, payload []byte) {
		got <- string(payload)
	})
	if err := l.Dial(ctx); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Serve(serveCtx) }()

	if _, err := pool.Exec(ctx, `INSERT INTO cisco_vpn_event (created, host, event) VALUES (now(), 'asa1', 'line')`); err != nil {
		t.Fatal(err)
	}

	select {
	case payload := <-got:
		if payload != "asa1|line" {
			t.Errorf("payload = %q, want asa1|line", payload)
		}
	case <-ctx.Done():
		t.Fatal("no notification received")
	}

	stop()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}
