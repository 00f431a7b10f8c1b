// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// CdrRecord is one Avaya call detail record with resolved employee names.
type CdrRecord struct {
	CallStart     string  `json:"callStart"`
	CallDuration  *int64  `json:"callDuration"`
	CallingNumber *string `json:"callingNumber"`
	CallingName   *string `json:"callingName"`
	CalledNumber  *string `json:"calledNumber"`
	CalledName    *string `json:"calledName"`
	CallCode      *string `json:"callCode"`
}

// AvayaCdr returns calls started within the last hours, newest first.
func (s *Store) AvayaCdr(ctx context.Context, hours int) ([]CdrRecord, error) {
	return collect(ctx, s, "avaya_cdr", `
		SELECT a.date, a.duration, a.calling_number, calling.display_name,
		       a.called_number, called.display_name, a.call_code
		FROM avaya_cdr a
		LEFT JOIN employee calling ON calling.call_number::text = a.calling_number
		LEFT JOIN employee called ON called.call_number::text = a.called_number
		WHERE a.date >= now() - make_interval(hours => $1)
		ORDER BY a.date DESC`, scanCdrRecord, hours)
}

func scanCdrRecord(row pgx.CollectableRow) (CdrRecord, error) {
	var (
		r     CdrRecord
		start time.Time
	)
	if err := row.Scan(&start, &r.CallDuration, &r.CallingNumber, &r.CallingName, &r.CalledNumber, &r.CalledName, &r.CallCode); err != nil {
		return CdrRecord{}, err
	}
	r.CallStart = start.Format(zonedISO)
	return r, nil
}
