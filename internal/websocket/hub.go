// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// Registry errors.
var (
	ErrDuplicateConnection = errors.New("connection id already registered")
	ErrClientNotFound      = errors.New("client not found")
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

const defaultSendTimeout = 2 * time.Second

// Hub is the connection registry. Register, Unregister, SendTo and
// Broadcast are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	sendTimeout time.Duration
}

// NewHub creates an empty registry. sendTimeout bounds how long a delivery
// waits on a full client queue.
func NewHub(sendTimeout time.Duration) *Hub {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Hub{
		clients:     make(map[string]*Client),
		sendTimeout: sendTimeout,
	}
}

// Register adds c. The id must not already be present.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if _, exists := h.clients[c.id]; exists {
		h.mu.Unlock()
		return ErrDuplicateConnection
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("connection_id", c.id).
		Str("principal", c.principal).
		Int("total_clients", total).
		Msg("websocket client connected")
	return nil
}

// Unregister removes id and closes its client. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	metrics.WSConnections.Dec()
	logging.Info().
		Str("connection_id", id).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// SendTo delivers payload to one client. A client whose queue stays full
// past the send timeout is unregistered.
func (h *Hub) SendTo(id string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return ErrClientNotFound
	}

	if err := c.enqueue(payload, h.sendTimeout); err != nil {
		h.dropSlowClient(c, err)
		return ErrClientNotFound
	}
	return nil
}

// Broadcast delivers payload to every client registered at call time. It
// never fails; clients that cannot accept the payload in time are removed.
func (h *Hub) Broadcast(payload []byte) {
	clients := h.snapshot()

	var slow []*Client
	for _, c := range clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	if len(slow) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, c := range slow {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := c.enqueue(payload, h.sendTimeout); err != nil {
				h.dropSlowClient(c, err)
			}
		}(c)
	}
	wg.Wait()
}

// BroadcastEnvelope serializes env once and broadcasts it.
func (h *Hub) BroadcastEnvelope(env events.Envelope) error {
	start := time.Now()
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	metrics.RecordBroadcast(string(env.Event), time.Since(start))
	logging.Debug().
		Str("event", string(env.Event)).
		Int("total", env.Total()).
		Int("clients", h.ClientCount()).
		Msg("envelope broadcast")
	return nil
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunWithContext blocks until ctx is done, then closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()

	closed := h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
	return ctx.Err()
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// snapshot returns the registered clients ordered by id.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

func (h *Hub) dropSlowClient(c *Client, cause error) {
	if errors.Is(cause, errClientClosed) {
		return
	}
	metrics.WSSlowClientsDropped.Inc()
	logging.Warn().
		Str("connection_id", c.id).
		Err(cause).
		Dur("send_timeout", h.sendTimeout).
		Msg("dropping slow websocket client")
	h.Unregister(c.id)
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
		metrics.WSConnections.Dec()
	}
	return len(clients)
}
