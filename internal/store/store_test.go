// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package store

import (
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                string
		first, second, last *string
		want                string
	}{
		{"full", strPtr("Ivan"), strPtr("Petrovich"), strPtr("Sidorov"), "Sidorov Ivan Petrovich"},
		{"no patronymic", strPtr("Ivan"), nil, strPtr("Sidorov"), "Sidorov Ivan"},
		{"only first", strPtr("Ivan"), nil, nil, "Ivan"},
		{"nothing", nil, nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := displayName(tt.first, tt.second, tt.last); got != tt.want {
				t.Errorf("displayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPacsRecord(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 4, 8, 15, 30, 250000000, time.UTC)

	rec := newPacsRecord(created, strPtr("Anna"), nil, strPtr("Ivanova"), nil)
	if rec.AccessPoint != UnknownAccessPoint {
		t.Errorf("access point = %q, want %q", rec.AccessPoint, UnknownAccessPoint)
	}
	if rec.EventDate != "2026-03-04T08:15:30.25" {
		t.Errorf("event date = %q", rec.EventDate)
	}
	if rec.DisplayName != "Ivanova Anna" {
		t.Errorf("display name = %q", rec.DisplayName)
	}

	rec = newPacsRecord(created, nil, nil, nil, strPtr("Main gate"))
	if rec.AccessPoint != "Main gate" {
		t.Errorf("access point = %q", rec.AccessPoint)
	}
}

func TestLikePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":        "%",
		"Ivan":    "Ivan%",
		"50%":     `50\%%`,
		"a_b":     `a\_b%`,
		`back\sl`: `back\\sl%`,
	}
	for in, want := range tests {
		if got := likePrefix(in); got != want {
			t.Errorf("likePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDepartmentStructure(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		got := departmentStructure(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("parent first then siblings", func(t *testing.T) {
		t.Parallel()
		rows := []departmentRow{
			{ID: 11, ParentID: i64Ptr(10)},
			{ID: 12, ParentID: i64Ptr(10)},
			{ID: 12, ParentID: i64Ptr(10)},
		}
		got := departmentStructure(rows)
		want := []int64{10, 11, 12}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})
}

func TestNotifyFunctionSQL(t *testing.T) {
	t.Parallel()

	sql := notifyFunctionSQL("vpn_event_channel")
	for _, want := range []string{
		"CREATE OR REPLACE FUNCTION notify_new_vpn_event()",
		"pg_notify('vpn_event_channel'",
		"COALESCE(NEW.host, '') || '|' || COALESCE(NEW.event, '')",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("notify function SQL missing %q:\n%s", want, sql)
		}
	}
}
