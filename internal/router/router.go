// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package router turns upstream messages into dashboard broadcasts and serves
// client requests.
//
// Upstream entry points (OnQueueMessage, OnDbNotification, OnScheduledResult)
// never return errors: malformed or unknown input is logged and dropped so
// adapter receive loops keep consuming. Dispatch goes through a single table
// keyed by the event's Kind.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/cache"
	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
	"github.com/tomtom215/itdash/internal/store"
	"github.com/tomtom215/itdash/internal/vpn"
)

// Upstream sources, used as log and metric labels.
const (
	SourceQueue     = "queue"
	SourceDB        = "db"
	SourceScheduled = "scheduled"
)

// Routing outcomes.
const (
	outcomeOK      = "ok"
	outcomeDecode  = "decode_error"
	outcomeUnknown = "unknown"
	outcomeError   = "error"
)

var errNoPacsEventID = errors.New("message has neither an event tag nor new_pacs_event_id")

// Broadcaster fans an envelope out to every session.
type Broadcaster interface {
	BroadcastEnvelope(env events.Envelope) error
}

// Queries are the read collaborators behind envelopes.
type Queries interface {
	PacsTodayEvents(ctx context.Context) ([]store.PacsRecord, error)
	PacsEventsByID(ctx context.Context, id int64) ([]store.PacsRecord, error)
	PacsLastEvents(ctx context.Context, filter string) ([]store.PacsRecord, error)
	FilteredEmployees(ctx context.Context, prefix string) ([]store.Employee, error)
	DepartmentStructure(ctx context.Context, upn string) ([]int64, error)
	AvayaCdr(ctx context.Context, hours int) ([]store.CdrRecord, error)
}

// VPNSessions computes the active session table.
type VPNSessions interface {
	ActiveByHost(ctx context.Context) (vpn.SessionsByHost, error)
}

type handlerFunc func(ctx context.Context, ev events.Event, msg *events.UpstreamMessage, raw []byte) error

// Router dispatches upstream messages and client requests.
type Router struct {
	hub     Broadcaster
	queries Queries
	vpn     VPNSessions
	latest  cache.LatestStore

	handlers map[events.Kind]handlerFunc
}

// New wires a router.
func New(hub Broadcaster, queries Queries, sessions VPNSessions, latest cache.LatestStore) *Router {
	r := &Router{
		hub:     hub,
		queries: queries,
		vpn:     sessions,
		latest:  latest,
	}
	r.handlers = map[events.Kind]handlerFunc{
		events.KindPacs:      r.handlePacs,
		events.KindCollector: r.handleCollector,
		events.KindVPN:       r.handleVPN,
	}
	return r
}

// OnQueueMessage handles a broker message: a PACS notification
// ({"new_pacs_event_id": N}) or a tagged envelope.
func (r *Router) OnQueueMessage(ctx context.Context, raw []byte) {
	r.route(ctx, SourceQueue, raw)
}

// OnScheduledResult handles a collector result.
func (r *Router) OnScheduledResult(ctx context.Context, raw []byte) {
	r.route(ctx, SourceScheduled, raw)
}

// OnDbNotification handles a "host|raw" change signal from the VPN trigger.
// Every notification triggers a recompute of the active session table.
func (r *Router) OnDbNotification(ctx context.Context, raw []byte) {
	start := time.Now()
	metrics.DBNotifications.Inc()

	sig, err := vpn.ParseSignal(string(raw))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("source", SourceDB).Int("bytes", len(raw)).Msg("Malformed database notification")
	} else {
		logging.Ctx(ctx).Debug().
			Str("host", sig.Host).
			Str("action", sig.Action.String()).
			Str("user", sig.User).
			Msg("VPN event notification")
	}

	err = r.handleVPN(ctx, events.EventVpnActiveSessionCount, nil, raw)
	r.finish(ctx, SourceDB, events.EventVpnActiveSessionCount, start, err)
}

func (r *Router) route(ctx context.Context, source string, raw []byte) {
	start := time.Now()

	var msg events.UpstreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.RecordRouterEvent(source, "", outcomeDecode, time.Since(start))
		logging.Ctx(ctx).Warn().Err(err).Str("source", source).Int("bytes", len(raw)).Msg("Dropping undecodable upstream message")
		return
	}

	ev, handler, err := r.resolve(&msg)
	if err != nil {
		metrics.RecordRouterEvent(source, "", outcomeUnknown, time.Since(start))
		logging.Ctx(ctx).Warn().Err(err).Str("source", source).Str("event", msg.Event).Msg("Dropping upstream message")
		return
	}

	err = handler(ctx, ev, &msg, raw)
	r.finish(ctx, source, ev, start, err)
}

// resolve picks the handler for msg. Untagged messages carrying a PACS
// event id are PACS notifications.
func (r *Router) resolve(msg *events.UpstreamMessage) (events.Event, handlerFunc, error) {
	if msg.Event == "" {
		if msg.NewPacsEventID == nil {
			return "", nil, errNoPacsEventID
		}
		return events.EventPacsEntryExit, r.handlePacs, nil
	}

	ev, err := events.ParseEvent(msg.Event)
	if err != nil {
		return "", nil, err
	}
	handler, ok := r.handlers[ev.Kind()]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s is a reply-only event", events.ErrUnknownEvent, ev)
	}
	return ev, handler, nil
}

func (r *Router) finish(ctx context.Context, source string, ev events.Event, start time.Time, err error) {
	if err != nil {
		metrics.RecordRouterEvent(source, string(ev), outcomeError, time.Since(start))
		logging.Ctx(ctx).Error().Err(err).Str("source", source).Str("event", string(ev)).Msg("Failed to route upstream message")
		return
	}
	metrics.RecordRouterEvent(source, string(ev), outcomeOK, time.Since(start))
}

// handlePacs re-queries the new event (or today's events when no id is
// given) and the last event per owner, then broadcasts both.
func (r *Router) handlePacs(ctx context.Context, _ events.Event, msg *events.UpstreamMessage, _ []byte) error {
	var (
		entries []store.PacsRecord
		err     error
	)
	if msg != nil && msg.NewPacsEventID != nil {
		entries, err = r.queries.PacsEventsByID(ctx, *msg.NewPacsEventID)
	} else {
		entries, err = r.queries.PacsTodayEvents(ctx)
	}
	if err != nil {
		return err
	}

	last, err := r.queries.PacsLastEvents(ctx, "")
	if err != nil {
		return err
	}

	if err := r.hub.BroadcastEnvelope(events.NewListEnvelope(events.EventPacsEntryExit, entries)); err != nil {
		return err
	}
	return r.hub.BroadcastEnvelope(events.NewListEnvelope(events.EventPacsLastEvent, last))
}

// handleCollector re-wraps the payload under its tag, stores it as the
// latest value and broadcasts it unchanged.
func (r *Router) handleCollector(ctx context.Context, ev events.Event, msg *events.UpstreamMessage, raw []byte) error {
	data, err := collectorData(msg, raw)
	if err != nil {
		return err
	}

	env := events.NewRawEnvelope(ev, data)
	payload, err := env.Marshal()
	if err != nil {
		return err
	}

	if r.latest != nil {
		if err := r.latest.SetLatest(ctx, ev, payload); err != nil {
			// The broadcast still goes out; only late joiners miss it.
			logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev)).Msg("Failed to store latest collector value")
		}
	}
	return r.hub.BroadcastEnvelope(env)
}

// collectorData returns msg.Data, or for DHCP-style messages without a data
// field, every top-level field except "event".
func collectorData(msg *events.UpstreamMessage, raw []byte) (json.RawMessage, error) {
	if len(msg.Data) > 0 {
		return msg.Data, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode collector fields: %w", err)
	}
	delete(fields, "event")
	if len(fields) == 0 {
		return nil, nil
	}
	return json.Marshal(fields)
}

// handleVPN recomputes the active session table and broadcasts it.
func (r *Router) handleVPN(ctx context.Context, _ events.Event, _ *events.UpstreamMessage, _ []byte) error {
	env, err := r.vpnEnvelope(ctx)
	if err != nil {
		return err
	}
	return r.hub.BroadcastEnvelope(env)
}

func (r *Router) vpnEnvelope(ctx context.Context) (events.Envelope, error) {
	sessions, err := r.vpn.ActiveByHost(ctx)
	if err != nil {
		return events.Envelope{}, err
	}
	return events.NewMapEnvelope(events.EventVpnActiveSessionCount, sessions), nil
}
