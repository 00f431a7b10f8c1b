// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package vpn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func loginLine(ip, user string) string {
	return `<166>Mar 03 2025 10:00:00: %ASA-7-746012: user-identity: Add IP-User mapping ` + ip + ` - LOCAL\\` + user + ` Succeeded - VPN user`
}

func logoutLine(ip, user string) string {
	return `<166>Mar 03 2025 11:00:00: %ASA-7-746013: user-identity: Delete IP-User mapping ` + ip + ` - LOCAL\\` + user + ` Succeeded - VPN user`
}

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		wantAction Action
		wantIP     string
		wantUser   string
	}{
		{"login", loginLine("10.8.0.5", "jdoe"), ActionLogin, "10.8.0.5", "jdoe"},
		{"login with domain", loginLine("10.8.0.6", "jdoe@corp.local"), ActionLogin, "10.8.0.6", "jdoe"},
		{"logout", logoutLine("10.8.0.5", "jdoe"), ActionLogout, "10.8.0.5", "jdoe"},
		{"single backslash", `%ASA-7-746012: user-identity: Add IP-User mapping 10.0.0.1 - LOCAL\jdoe Succeeded - VPN user`, ActionNone, "", ""},
		{"other message", "%ASA-6-113004: AAA user authentication Successful", ActionNone, "", ""},
		{"empty", "", ActionNone, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			action, ip, user := ParseLine(tt.line)
			if action != tt.wantAction || ip != tt.wantIP || user != tt.wantUser {
				t.Errorf("ParseLine() = (%s, %q, %q), want (%s, %q, %q)", action, ip, user, tt.wantAction, tt.wantIP, tt.wantUser)
			}
		})
	}
}

func TestParseSignal(t *testing.T) {
	t.Parallel()

	sig, err := ParseSignal("HOST1|" + loginLine("10.8.0.5", "jdoe"))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Host != "HOST1" || sig.Action != ActionLogin || sig.User != "jdoe" {
		t.Errorf("unexpected signal %+v", sig)
	}

	sig, err = ParseSignal("|a|b")
	if err != nil || sig.Host != UnknownHost || sig.Raw != "a|b" || sig.Action != ActionNone {
		t.Errorf("ParseSignal(|a|b) = %+v, %v", sig, err)
	}

	if _, err := ParseSignal("no separator"); !errors.Is(err, ErrMalformedSignal) {
		t.Errorf("expected ErrMalformedSignal, got %v", err)
	}
}

func TestActiveSessions(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	events := []Event{
		{ID: 1, Created: at(0), Host: "HOST1", Raw: loginLine("10.0.0.1", "alice")},
		{ID: 2, Created: at(1), Host: "HOST1", Raw: loginLine("10.0.0.2", "bob")},
		{ID: 3, Created: at(2), Host: "HOST1", Raw: logoutLine("10.0.0.2", "bob")},
		{ID: 4, Created: at(3), Host: "HOST2", Raw: loginLine("10.0.0.3", "carol")},
		{ID: 5, Created: at(4), Host: "HOST2", Raw: logoutLine("10.0.0.4", "dave")},
		{ID: 6, Created: at(5), Host: "HOST2", Raw: loginLine("10.0.0.4", "dave")},
		{ID: 7, Created: at(6), Host: "", Raw: loginLine("10.0.0.5", "erin")},
		{ID: 8, Created: at(7), Host: "HOST1", Raw: "%ASA-6-000000: noise"},
		// Login and logout at the same instant count as logged out.
		{ID: 9, Created: at(8), Host: "HOST1", Raw: loginLine("10.0.0.6", "frank")},
		{ID: 10, Created: at(8), Host: "HOST1", Raw: logoutLine("10.0.0.6", "frank")},
	}

	now := at(60)
	got := ActiveSessions(events, now)

	if len(got) != 3 {
		t.Fatalf("expected 3 hosts, got %d: %+v", len(got), got)
	}
	if len(got["HOST1"]) != 1 || got["HOST1"][0].Username != "alice" {
		t.Errorf("HOST1 = %+v, want only alice", got["HOST1"])
	}
	host2 := got["HOST2"]
	if len(host2) != 2 || host2[0].Username != "carol" || host2[1].Username != "dave" {
		t.Errorf("HOST2 should list carol then dave, got %+v", host2)
	}
	if len(got[UnknownHost]) != 1 || got[UnknownHost][0].Username != "erin" {
		t.Errorf("NULL host should group under unknown: %+v", got[UnknownHost])
	}

	alice := got["HOST1"][0]
	if alice.Status != StatusActive {
		t.Errorf("status = %s", alice.Status)
	}
	if alice.DurationSeconds != 3600 {
		t.Errorf("duration = %d, want 3600", alice.DurationSeconds)
	}
	if alice.LoginTime != "2025-03-03T10:00:00+00:00" {
		t.Errorf("login_time = %s", alice.LoginTime)
	}
	if got.Total() != 4 {
		t.Errorf("Total() = %d, want 4", got.Total())
	}
}

func TestActiveSessions_ReloginAfterLogout(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Created: base, Host: "H", Raw: loginLine("10.0.0.1", "alice")},
		{Created: base.Add(time.Minute), Host: "H", Raw: logoutLine("10.0.0.1", "alice")},
		{Created: base.Add(2 * time.Minute), Host: "H", Raw: loginLine("10.0.0.1", "alice2")},
	}
	got := ActiveSessions(events, base.Add(3*time.Minute))
	if len(got["H"]) != 1 || got["H"][0].Username != "alice2" || got["H"][0].DurationSeconds != 60 {
		t.Errorf("unexpected %+v", got["H"])
	}
}

type stubStore struct {
	events []Event
	err    error
}

func (s stubStore) SessionEvents(context.Context) ([]Event, error) {
	return s.events, s.err
}

func TestService_ActiveByHost(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := NewService(stubStore{events: []Event{{Created: now.Add(-time.Hour), Host: "HOST1", Raw: loginLine("10.1.1.1", "jdoe")}}})
	svc.now = func() time.Time { return now }

	got, err := svc.ActiveByHost(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got["HOST1"]) != 1 || got["HOST1"][0].DurationSeconds != 3600 {
		t.Errorf("unexpected %+v", got)
	}

	svc = NewService(stubStore{err: errors.New("db down")})
	if _, err := svc.ActiveByHost(context.Background()); err == nil {
		t.Error("expected store error to surface")
	}
}
