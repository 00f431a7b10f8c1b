// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/itdash/internal/broker"
	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/eventprocessor"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/router"
	"github.com/tomtom215/itdash/internal/supervisor"
)

// NATSComponents holds the broker-side pieces wired at startup.
type NATSComponents struct {
	server    *eventprocessor.EmbeddedServer
	publisher *eventprocessor.Publisher
	consumer  *broker.Consumer
	url       string
}

// InitNATS starts the embedded server when configured and builds the
// publisher and consumer. It returns nil when NATS is disabled.
// The consumer is not dialed here.
func InitNATS(cfg *config.Config, rt *router.Router) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	c := &NATSComponents{url: cfg.NATS.URL}

	if cfg.NATS.EmbeddedServer {
		server, err := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfigFrom(cfg.NATS))
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		c.server = server
		c.url = server.ClientURL()
	} else {
		logging.Info().Str("url", c.url).Msg("Using external NATS server")
	}

	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(c.url), nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("nats-publisher")))
	c.publisher = publisher

	c.consumer = broker.NewConsumer(c.url, cfg.NATS,
		broker.PacsBinding(cfg.NATS, rt.OnQueueMessage),
		broker.CollectorBinding(cfg.NATS, rt.OnScheduledResult),
	)
	return c, nil
}

// Publisher returns the collector publisher, or nil when NATS is disabled.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Consumer returns the broker consumer, or nil when NATS is disabled.
func (c *NATSComponents) Consumer() *broker.Consumer {
	if c == nil {
		return nil
	}
	return c.consumer
}

// AddToSupervisor puts the embedded server in the data layer. The consumer
// is added by the caller once its first connection succeeded.
func (c *NATSComponents) AddToSupervisor(tree *supervisor.SupervisorTree) {
	if c == nil || c.server == nil {
		return
	}
	tree.AddDataService(c.server)
	logging.Info().Str("url", c.url).Msg("Embedded NATS server added to supervisor tree (data layer)")
}

// Close releases the publisher. The embedded server is stopped by its
// supervisor service, or here when the tree never started.
func (c *NATSComponents) Close() {
	if c == nil {
		return
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if c.server != nil && c.server.IsRunning() {
		_ = c.server.Shutdown(context.Background())
	}
}
