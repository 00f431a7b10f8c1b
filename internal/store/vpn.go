// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/vpn"
)

// Names of the objects created by EnsureVPNTrigger.
const (
	VPNNotifyFunction = "notify_new_vpn_event"
	VPNTrigger        = "trg_vpn_event"
)

// SessionEvents returns ASA login and logout rows in ascending creation order.
func (s *Store) SessionEvents(ctx context.Context) ([]vpn.Event, error) {
	return collect(ctx, s, "vpn_session_events", `
		SELECT id, created, host, event
		FROM cisco_vpn_event
		WHERE event LIKE '%' || $1 || '%' OR event LIKE '%' || $2 || '%'
		ORDER BY created ASC NULLS FIRST, id ASC`, scanVPNEvent, vpn.LoginMessageID, vpn.LogoutMessageID)
}

func scanVPNEvent(row pgx.CollectableRow) (vpn.Event, error) {
	var (
		ev        vpn.Event
		created   *time.Time
		host, raw *string
	)
	if err := row.Scan(&ev.ID, &created, &host, &raw); err != nil {
		return vpn.Event{}, err
	}
	if created != nil {
		ev.Created = created.UTC()
	}
	ev.Host = deref(host)
	ev.Raw = deref(raw)
	return ev, nil
}

// notifyFunctionSQL publishes host|event on channel for every new row. NULL
// columns become empty strings so the payload is never NULL.
func notifyFunctionSQL(channel string) string {
	return fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('%s', COALESCE(NEW.host, '') || '|' || COALESCE(NEW.event, ''));
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`, VPNNotifyFunction, strings.ReplaceAll(channel, "'", "''"))
}

// EnsureVPNTrigger installs the notify function and the AFTER INSERT
// trigger on cisco_vpn_event. Both steps are idempotent.
func (s *Store) EnsureVPNTrigger(ctx context.Context, channel string) error {
	var funcExists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`, VPNNotifyFunction).Scan(&funcExists); err != nil {
		return fmt.Errorf("check notify function: %w", err)
	}
	if !funcExists {
		if _, err := s.db.Exec(ctx, notifyFunctionSQL(channel)); err != nil {
			return fmt.Errorf("create notify function: %w", err)
		}
		logging.Info().Str("function", VPNNotifyFunction).Str("channel", channel).Msg("VPN notify function created")
	}

	var triggerExists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = $1)`, VPNTrigger).Scan(&triggerExists); err != nil {
		return fmt.Errorf("check trigger: %w", err)
	}
	if !triggerExists {
		_, err := s.db.Exec(ctx, fmt.Sprintf(`
			CREATE TRIGGER %s
				AFTER INSERT ON cisco_vpn_event
				FOR EACH ROW
				EXECUTE FUNCTION %s()`, VPNTrigger, VPNNotifyFunction))
		if err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
		logging.Info().Str("trigger", VPNTrigger).Msg("VPN trigger created")
	}
	return nil
}
