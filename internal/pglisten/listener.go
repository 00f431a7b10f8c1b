// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package pglisten receives Postgres NOTIFY payloads on a dedicated
// connection. Notifications carry no durability: anything sent while the
// listener is reconnecting is lost.
package pglisten

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// AdapterName labels listener logs and metrics.
const AdapterName = "pglisten"

// ErrNotConnected is returned by Serve before a successful Dial.
var ErrNotConnected = errors.New("listener not connected")

const closeTimeout = 5 * time.Second

// Handler receives one notification payload.
type Handler func(ctx context.Context, payload []byte)

// conn is the subset of *pgx.Conn the listener drives.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Listener owns one LISTEN connection. It implements reconnect.Conn.
type Listener struct {
	dsn     string
	channel string
	handle  Handler
	connect func(ctx context.Context, dsn string) (conn, error)

	mu   sync.Mutex
	conn conn
}

// New creates a listener for channel. Nothing connects until Dial.
func New(dsn, channel string, h Handler) *Listener {
	return &Listener{
		dsn:     dsn,
		channel: channel,
		handle:  h,
		connect: func(ctx context.Context, dsn string) (conn, error) {
			return pgx.Connect(ctx, dsn)
		},
	}
}

// String implements fmt.Stringer.
func (l *Listener) String() string {
	return AdapterName
}

// Dial opens the connection and subscribes to the channel.
func (l *Listener) Dial(ctx context.Context) error {
	c, err := l.connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if _, err := c.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		closeConn(c)
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}

	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()

	logging.Info().Str("adapter", AdapterName).Str("channel", l.channel).Msg("Listening for notifications")
	return nil
}

// Serve waits for notifications until ctx ends or the connection fails.
// Payloads are handled in arrival order.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	c := l.conn
	l.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	for {
		n, err := c.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Channel != l.channel {
			continue
		}
		l.deliver(ctx, n.Payload)
	}
}

func (l *Listener) deliver(ctx context.Context, payload string) {
	msgCtx := logging.ContextWithNewCorrelationID(ctx)
	defer func() {
		if r := recover(); r != nil {
			metrics.BrokerMessages.WithLabelValues(AdapterName, "panic").Inc()
			logging.Ctx(msgCtx).Error().Interface("panic", r).Msg("Notification handler panicked")
		}
	}()

	l.handle(msgCtx, []byte(payload))
	metrics.BrokerMessages.WithLabelValues(AdapterName, "ok").Inc()
}

// Close drops the connection. Safe when never connected.
func (l *Listener) Close() error {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.mu.Unlock()

	if c == nil {
		return nil
	}
	return closeConn(c)
}

func closeConn(c conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.Close(ctx)
}
