// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	defaultSendBuffer = 256
)

// errClientClosed is returned when enqueueing to a client that was unregistered.
var errClientClosed = errors.New("client closed")

// errSendTimeout is returned when a client's queue stayed full for the whole send timeout.
var errSendTimeout = errors.New("send timeout")

// Client is one connected session. Payloads are already-serialized JSON frames.
type Client struct {
	id        string
	principal string
	conn      *websocket.Conn
	send      chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client with a send queue of buffer frames.
func NewClient(id, principal string, conn *websocket.Conn, buffer int) *Client {
	if buffer < 1 {
		buffer = defaultSendBuffer
	}
	return &Client{
		id:        id,
		principal: principal,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Principal returns the authenticated subject.
func (c *Client) Principal() string {
	return c.principal
}

// Done is closed once the client is unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue places payload on the send queue, waiting at most timeout when the
// queue is full.
func (c *Client) enqueue(payload []byte, timeout time.Duration) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errClientClosed
	case <-timer.C:
		return errSendTimeout
	}
}

// close stops the write pump. The send channel is never closed so
// concurrent broadcasts cannot panic.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump writes queued frames and pings until the client is closed or a
// write fails. It owns the connection and closes it on exit.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort; the read loop sees the error
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("websocket write failed")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
