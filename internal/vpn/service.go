// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package vpn

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/itdash/internal/logging"
)

// EventStore returns stored login and logout rows in ascending creation
// order.
type EventStore interface {
	SessionEvents(ctx context.Context) ([]Event, error)
}

// Service answers active-session queries.
type Service struct {
	store EventStore
	now   func() time.Time
}

// NewService wraps store.
func NewService(store EventStore) *Service {
	return &Service{store: store, now: time.Now}
}

// ActiveByHost recomputes the active session table.
func (s *Service) ActiveByHost(ctx context.Context) (SessionsByHost, error) {
	events, err := s.store.SessionEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vpn events: %w", err)
	}

	active := ActiveSessions(events, s.now().UTC())
	logging.Ctx(ctx).Debug().
		Int("events", len(events)).
		Int("hosts", len(active)).
		Int("sessions", active.Total()).
		Msg("Recomputed active VPN sessions")
	return active, nil
}
