// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package broker consumes upstream messages from NATS JetStream and hands
// them to the router. Each binding is a durable pull consumer on one
// subject filter; messages are acknowledged after hand-off, so delivery is
// at-least-once.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/eventprocessor"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// AdapterName labels broker logs and metrics.
const AdapterName = "broker"

// ErrNotConnected is returned by Serve before a successful Dial.
var ErrNotConnected = errors.New("broker not connected")

// errConnectionLost is returned by Serve when the NATS connection closes.
var errConnectionLost = errors.New("nats connection closed")

// Handler receives one message body. It must not retain raw.
type Handler func(ctx context.Context, raw []byte)

// Binding routes one subject filter to a handler.
type Binding struct {
	Name    string
	Subject string
	Handle  Handler
}

// PacsBinding consumes PACS notifications.
func PacsBinding(cfg config.NATSConfig, h Handler) Binding {
	return Binding{Name: "pacs", Subject: cfg.PacsSubject, Handle: h}
}

// CollectorBinding consumes every collector result.
func CollectorBinding(cfg config.NATSConfig, h Handler) Binding {
	return Binding{Name: cfg.CollectorSubject, Subject: eventprocessor.CollectorWildcard(cfg.CollectorSubject), Handle: h}
}

// Consumer owns one NATS connection and its pull consumers. It implements
// reconnect.Conn.
type Consumer struct {
	url      string
	cfg      config.NATSConfig
	bindings []Binding

	mu        sync.Mutex
	nc        *nats.Conn
	consumers []jetstream.Consumer
	lost      chan struct{}
}

// NewConsumer creates a consumer for url. Nothing connects until Dial.
func NewConsumer(url string, cfg config.NATSConfig, bindings ...Binding) *Consumer {
	return &Consumer{url: url, cfg: cfg, bindings: bindings}
}

// String implements fmt.Stringer.
func (c *Consumer) String() string {
	return AdapterName
}

// Dial connects, ensures the stream and creates or updates each durable consumer.
func (c *Consumer) Dial(ctx context.Context) error {
	lost := make(chan struct{})
	var lostOnce sync.Once

	nc, err := nats.Connect(c.url,
		nats.Name("itdash-consumer"),
		nats.NoReconnect(),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("adapter", AdapterName).Msg("NATS disconnected")
			}
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			lostOnce.Do(func() { close(lost) })
		}),
	)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.url, err)
	}

	consumers, err := c.setup(ctx, nc)
	if err != nil {
		nc.Close()
		return err
	}

	c.mu.Lock()
	c.nc = nc
	c.consumers = consumers
	c.lost = lost
	c.mu.Unlock()
	return nil
}

func (c *Consumer) setup(ctx context.Context, nc *nats.Conn) ([]jetstream.Consumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	init, err := eventprocessor.NewStreamInitializer(js, eventprocessor.StreamConfigFrom(c.cfg))
	if err != nil {
		return nil, err
	}
	if _, err := init.EnsureStream(ctx); err != nil {
		return nil, err
	}

	consumers := make([]jetstream.Consumer, 0, len(c.bindings))
	for _, b := range c.bindings {
		cons, err := js.CreateOrUpdateConsumer(ctx, c.cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       c.durableName(b),
			FilterSubject: b.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckWait:       c.cfg.AckWait,
			MaxDeliver:    c.cfg.MaxDeliver,
		})
		if err != nil {
			return nil, fmt.Errorf("consumer %s: %w", b.Name, err)
		}
		consumers = append(consumers, cons)
	}
	return consumers, nil
}

// durableName is <prefix>-<binding>. Replicas that need fan-out rather
// than load sharing must use distinct prefixes.
func (c *Consumer) durableName(b Binding) string {
	return c.cfg.DurablePrefix + "-" + sanitize(b.Name)
}

// sanitize replaces characters JetStream forbids in durable names.
func sanitize(s string) string {
	out := []byte(s)
	for i, ch := range out {
		switch ch {
		case '.', '*', '>', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}

// Serve pulls messages for every binding until ctx ends, the connection is
// lost or a consumer fails.
func (c *Consumer) Serve(ctx context.Context) error {
	c.mu.Lock()
	nc, consumers, lost := c.nc, c.consumers, c.lost
	c.mu.Unlock()
	if nc == nil || nc.IsClosed() {
		return ErrNotConnected
	}

	iters := make([]jetstream.MessagesContext, 0, len(consumers))
	defer func() {
		for _, it := range iters {
			it.Stop()
		}
	}()
	for i, cons := range consumers {
		it, err := cons.Messages()
		if err != nil {
			return fmt.Errorf("messages %s: %w", c.bindings[i].Name, err)
		}
		iters = append(iters, it)
	}

	errCh := make(chan error, len(iters))
	var wg sync.WaitGroup
	for i, it := range iters {
		wg.Add(1)
		go func(b Binding, it jetstream.MessagesContext) {
			defer wg.Done()
			errCh <- c.pump(ctx, b, it)
		}(c.bindings[i], it)
	}

	logging.Info().Str("adapter", AdapterName).Int("bindings", len(iters)).Msg("Broker consumer serving")

	var result error
	select {
	case <-ctx.Done():
		result = ctx.Err()
	case <-lost:
		result = errConnectionLost
	case err := <-errCh:
		result = err
	}

	for _, it := range iters {
		it.Stop()
	}
	wg.Wait()
	return result
}

// pump handles messages of one binding in order.
func (c *Consumer) pump(ctx context.Context, b Binding, it jetstream.MessagesContext) error {
	for {
		msg, err := it.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return nil
			}
			return fmt.Errorf("binding %s: %w", b.Name, err)
		}

		outcome := c.deliver(ctx, b, msg.Data())
		if err := msg.Ack(); err != nil {
			outcome = "ack_error"
			logging.Warn().Err(err).Str("binding", b.Name).Msg("Failed to ack message")
		}
		metrics.BrokerMessages.WithLabelValues(b.Name, outcome).Inc()
	}
}

// deliver hands raw to the binding handler, containing panics.
func (c *Consumer) deliver(ctx context.Context, b Binding, raw []byte) (outcome string) {
	msgCtx := logging.ContextWithNewCorrelationID(ctx)
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			logging.Ctx(msgCtx).Error().
				Str("binding", b.Name).
				Interface("panic", r).
				Msg("Handler panicked, message dropped")
		}
	}()

	b.Handle(msgCtx, raw)
	return "ok"
}

// Close drops the connection. Safe when never connected.
func (c *Consumer) Close() error {
	c.mu.Lock()
	nc := c.nc
	c.nc = nil
	c.consumers = nil
	c.mu.Unlock()

	if nc != nil {
		nc.Close()
	}
	return nil
}
