// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package pglisten

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn replays queued notifications, then fails with err.
type fakeConn struct {
	mu      sync.Mutex
	execs   []string
	queue   []*pgconn.Notification
	err     error
	execErr error
	closed  atomic.Int32
}

func (f *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.queue) == 0 {
		return nil, f.err
	}
	n := f.queue[0]
	f.queue = f.queue[1:]
	return n, nil
}

func (f *fakeConn) Close(context.Context) error {
	f.closed.Add(1)
	return nil
}

func newTestListener(fc *fakeConn, h Handler) *Listener {
	l := New("postgres://unused", "vpn_event_channel", h)
	l.connect = func(context.Context, string) (conn, error) { return fc, nil }
	return l
}

func TestListener_ServeBeforeDial(t *testing.T) {
	t.Parallel()

	l := New("postgres://unused", "ch", func(context.Context, []byte) {})
	if err := l.Serve(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Serve = %v, want ErrNotConnected", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestListener_DialIssuesQuotedListen(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{}
	l := newTestListener(fc, func(context.Context, []byte) {})
	if err := l.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fc.execs) != 1 || fc.execs[0] != `LISTEN "vpn_event_channel"` {
		t.Errorf("execs = %v", fc.execs)
	}
}

func TestListener_DialListenFailureClosesConn(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{execErr: errors.New("permission denied")}
	l := newTestListener(fc, func(context.Context, []byte) {})
	if err := l.Dial(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
	if fc.closed.Load() != 1 {
		t.Errorf("conn closed %d times, want 1", fc.closed.Load())
	}
	if err := l.Serve(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Serve after failed dial = %v", err)
	}
}

func TestListener_ServeDeliversInOrder(t *testing.T) {
	t.Parallel()

	transport := errors.New("conn reset")
	fc := &fakeConn{
		err: transport,
		queue: []*pgconn.Notification{
			{Channel: "vpn_event_channel", Payload: "1"},
			{Channel: "other", Payload: "ignored"},
			{Channel: "vpn_event_channel", Payload: "panic"},
			{Channel: "vpn_event_channel", Payload: "2"},
		},
	}

	var got []string
	l := newTestListener(fc, func(_ context.Context, p []byte) {
		if string(p) == "panic" {
			panic("handler bug")
		}
		got = append(got, string(p))
	})
	if err := l.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := l.Serve(context.Background())
	if !errors.Is(err, transport) {
		t.Errorf("Serve = %v, want transport error", err)
	}
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("payloads = %v", got)
	}

	_ = l.Close()
	_ = l.Close()
	if fc.closed.Load() != 1 {
		t.Errorf("conn closed %d times, want 1", fc.closed.Load())
	}
}

func TestListener_ServeCancelled(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{err: errors.New("should not surface")}
	l := newTestListener(fc, func(context.Context, []byte) {})
	if err := l.Dial(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
}
