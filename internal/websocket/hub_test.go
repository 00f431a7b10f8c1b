// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/events"
)

// newTestClient builds a client without a transport; tests read c.send directly.
func newTestClient(id string, buffer int) *Client {
	return NewClient(id, "tester", nil, buffer)
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.id)
		return nil
	}
}

func TestHub_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	if err := hub.Register(newTestClient("a", 1)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := hub.Register(newTestClient("a", 1)); !errors.Is(err, ErrDuplicateConnection) {
		t.Fatalf("duplicate Register = %v, want ErrDuplicateConnection", err)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	c := newTestClient("a", 1)
	_ = hub.Register(c)

	hub.Unregister("a")
	hub.Unregister("a")
	hub.Unregister("never-registered")

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
	select {
	case <-c.Done():
	default:
		t.Error("unregistered client not closed")
	}
}

func TestHub_SendTo(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	a, b := newTestClient("a", 4), newTestClient("b", 4)
	_ = hub.Register(a)
	_ = hub.Register(b)

	if err := hub.SendTo("a", []byte("only-a")); err != nil {
		t.Fatalf("SendTo: %v", err)
	}
	if got := receive(t, a); string(got) != "only-a" {
		t.Errorf("a got %q", got)
	}
	if len(b.send) != 0 {
		t.Error("b received a message addressed to a")
	}

	if err := hub.SendTo("missing", []byte("x")); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("SendTo(missing) = %v, want ErrClientNotFound", err)
	}
}

func TestHub_BroadcastReachesSnapshot(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = newTestClient(fmt.Sprintf("c%d", i), 4)
		_ = hub.Register(clients[i])
	}

	hub.Broadcast([]byte("hello"))

	for _, c := range clients {
		if got := receive(t, c); string(got) != "hello" {
			t.Errorf("%s got %q", c.id, got)
		}
	}

	late := newTestClient("late", 4)
	_ = hub.Register(late)
	if len(late.send) != 0 {
		t.Error("client registered after broadcast received it")
	}
}

func TestHub_BroadcastDropsSlowClient(t *testing.T) {
	t.Parallel()

	hub := NewHub(20 * time.Millisecond)
	slow := newTestClient("slow", 1)
	fast := newTestClient("fast", 4)
	_ = hub.Register(slow)
	_ = hub.Register(fast)

	slow.send <- []byte("backlog")

	start := time.Now()
	hub.Broadcast([]byte("next"))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Broadcast blocked for %s", elapsed)
	}

	if got := receive(t, fast); string(got) != "next" {
		t.Errorf("fast got %q", got)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("slow client not removed, count=%d", hub.ClientCount())
	}
	select {
	case <-slow.Done():
	default:
		t.Error("slow client not closed")
	}
}

func TestHub_BroadcastEnvelope(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	c := newTestClient("a", 1)
	_ = hub.Register(c)

	env := events.NewListEnvelope(events.EventPacsLastEvent, []string{"x", "y"})
	if err := hub.BroadcastEnvelope(env); err != nil {
		t.Fatalf("BroadcastEnvelope: %v", err)
	}

	var got struct {
		Event string `json:"event"`
		Data  struct {
			Results []string `json:"results"`
			Total   int      `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(receive(t, c), &got); err != nil {
		t.Fatal(err)
	}
	if got.Event != string(events.EventPacsLastEvent) || got.Data.Total != 2 || len(got.Data.Results) != 2 {
		t.Errorf("unexpected envelope %+v", got)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	hub := NewHub(50 * time.Millisecond)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		id := fmt.Sprintf("c%d", i)
		go func() {
			defer wg.Done()
			_ = hub.Register(newTestClient(id, 8))
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast([]byte("tick"))
		}()
		go func() {
			defer wg.Done()
			hub.Unregister(id)
		}()
	}
	wg.Wait()

	if n := hub.ClientCount(); n < 0 || n > 50 {
		t.Errorf("ClientCount = %d", n)
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(time.Second)
	c := newTestClient("a", 1)
	_ = hub.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.ClientCount() != 0 {
		t.Error("clients left after shutdown")
	}
	select {
	case <-c.Done():
	default:
		t.Error("client not closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled: got %s", got)
	}

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline: got %s", got)
	}
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	t.Parallel()

	c := newTestClient("a", 1)
	c.close()
	c.close()
	if err := c.enqueue([]byte("x"), time.Millisecond); !errors.Is(err, errClientClosed) {
		t.Errorf("enqueue after close = %v", err)
	}
}

func TestClient_Constants(t *testing.T) {
	t.Parallel()

	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %s must be below pongWait %s", pingPeriod, pongWait)
	}
	if maxMessageSize != 512*1024 {
		t.Errorf("maxMessageSize = %d", maxMessageSize)
	}
	if c := NewClient("x", "p", nil, 0); cap(c.send) != defaultSendBuffer {
		t.Errorf("default buffer = %d", cap(c.send))
	}
}
