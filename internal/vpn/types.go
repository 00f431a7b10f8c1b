// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package vpn derives active Cisco AnyConnect sessions from ASA syslog
// lines stored in cisco_vpn_event.
//
// A session starts with a 746012 "Add IP-User mapping" line and ends with a
// 746013 "Delete IP-User mapping" line for the same internal IP. The active
// table is recomputed from the log every time a change signal arrives.
package vpn

import (
	"time"
)

// UnknownHost groups events whose host column is NULL.
const UnknownHost = "unknown"

// StatusActive is the only status reported for sessions.
const StatusActive = "active"

// Action is the kind of a parsed ASA line.
type Action int

const (
	// ActionNone marks lines that are not session boundaries.
	ActionNone Action = iota
	ActionLogin
	ActionLogout
)

func (a Action) String() string {
	switch a {
	case ActionLogin:
		return "login"
	case ActionLogout:
		return "logout"
	default:
		return "none"
	}
}

// Event is one stored syslog row.
type Event struct {
	ID      int64
	Created time.Time
	Host    string
	Raw     string
}

// Session is one active VPN session as sent to dashboards.
type Session struct {
	Username        string `json:"username"`
	InternalIP      string `json:"internal_ip"`
	LoginTime       string `json:"login_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	Status          string `json:"status"`

	loginAt time.Time
}

// SessionsByHost maps ASA host to its active sessions, oldest login first.
type SessionsByHost map[string][]Session

// Total returns the number of sessions across hosts.
func (s SessionsByHost) Total() int {
	n := 0
	for _, sessions := range s {
		n += len(sessions)
	}
	return n
}

// Signal is a parsed database change notification (host|raw).
type Signal struct {
	Host   string
	Raw    string
	Action Action
	IP     string
	User   string
}
