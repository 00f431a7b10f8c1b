// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// UnknownAccessPoint is shown when an event has no access point.
const UnknownAccessPoint = "Неизвестно"

// PacsCodeEntry is the event code of a successful pass.
const PacsCodeEntry = 1

// PacsRecord is one access-control event.
type PacsRecord struct {
	EventDate   string `json:"eventDate"`
	DisplayName string `json:"displayName"`
	AccessPoint string `json:"accessPoint"`
}

const pacsSelect = `
	SELECT e.created, o.firstname, o.secondname, o.lastname, ap.name
	FROM pacs_event e
	LEFT JOIN pacs_card_owner o ON e.owner_id = o.system_id
	LEFT JOIN pacs_access_point ap ON e.ap_id = ap.system_id`

// PacsTodayEvents returns today's entry events, newest first.
func (s *Store) PacsTodayEvents(ctx context.Context) ([]PacsRecord, error) {
	return collect(ctx, s, "pacs_today_events", pacsSelect+`
		WHERE e.created >= CURRENT_DATE AND e.created < CURRENT_DATE + 1 AND e.code = $1
		ORDER BY e.created DESC`, scanPacsRecord, PacsCodeEntry)
}

// PacsEventsByID returns the entry event with the given id, if any.
func (s *Store) PacsEventsByID(ctx context.Context, id int64) ([]PacsRecord, error) {
	return collect(ctx, s, "pacs_events_by_id", pacsSelect+`
		WHERE e.id = $1 AND e.code = $2`, scanPacsRecord, id, PacsCodeEntry)
}

// PacsLastEvents returns the latest event per card owner, newest first. A
// non-empty filter keeps owners whose "last first second" name starts with
// it, case-insensitively.
func (s *Store) PacsLastEvents(ctx context.Context, filter string) ([]PacsRecord, error) {
	filter = strings.TrimSpace(filter)
	return collect(ctx, s, "pacs_last_events", `
		SELECT created, firstname, secondname, lastname, name FROM (
			SELECT DISTINCT ON (e.owner_id) e.created, o.firstname, o.secondname, o.lastname, ap.name
			FROM pacs_event e
			JOIN pacs_card_owner o ON e.owner_id = o.system_id
			LEFT JOIN pacs_access_point ap ON e.ap_id = ap.system_id
			WHERE $1 = '' OR concat_ws(' ', o.lastname, o.firstname, o.secondname) ILIKE $2
			ORDER BY e.owner_id, e.created DESC
		) last
		ORDER BY created DESC`, scanPacsRecord, filter, likePrefix(filter))
}

func scanPacsRecord(row pgx.CollectableRow) (PacsRecord, error) {
	var (
		created                     time.Time
		first, second, last, apName *string
	)
	if err := row.Scan(&created, &first, &second, &last, &apName); err != nil {
		return PacsRecord{}, err
	}
	return newPacsRecord(created, first, second, last, apName), nil
}

func newPacsRecord(created time.Time, first, second, last, apName *string) PacsRecord {
	ap := deref(apName)
	if ap == "" {
		ap = UnknownAccessPoint
	}
	return PacsRecord{
		EventDate:   created.Format(naiveISO),
		DisplayName: displayName(first, second, last),
		AccessPoint: ap,
	}
}

// displayName joins "last first second" and trims the ends, keeping the
// inner spacing of missing parts.
func displayName(first, second, last *string) string {
	return strings.TrimSpace(deref(last) + " " + deref(first) + " " + deref(second))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
