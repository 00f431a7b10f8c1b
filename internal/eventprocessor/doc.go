// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

/*
Package eventprocessor provides the NATS JetStream plumbing shared by the
broker consumer and the scheduled collectors.

# Components

  - EmbeddedServer: an in-process NATS server with JetStream for single-node
    deployments (NATS_EMBEDDED=true).
  - StreamInitializer: idempotently creates or updates the stream that
    captures the PACS subject and the collector subject tree.
  - Publisher: a Watermill NATS publisher guarded by a circuit breaker.
    Collectors publish serialized envelopes to <collector_subject>.<event>.
  - WatermillLogger: a watermill.LoggerAdapter writing through zerolog.

# Subjects

	pacs.events                       {"new_pacs_event_id": N}
	celery_beat.event_provider_info   {"event": "...", "data": {...}}
	celery_beat.event_dhcp_*          {"event": "...", "collected_at": ..., "servers": [...]}

# Startup order

	srv, _ := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfigFrom(cfg.NATS))
	nc, _ := nats.Connect(srv.ClientURL())
	js, _ := jetstream.New(nc)
	init, _ := eventprocessor.NewStreamInitializer(js, eventprocessor.StreamConfigFrom(cfg.NATS))
	_, _ = init.EnsureStream(ctx)
	pub, _ := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(srv.ClientURL()), eventprocessor.NewWatermillLogger())
*/
package eventprocessor
