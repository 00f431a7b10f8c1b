// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package vpn

import (
	"sort"
	"time"
)

// isoLayout renders offsets as +00:00 rather than Z.
const isoLayout = "2006-01-02T15:04:05.999999-07:00"

type loginRecord struct {
	username string
	host     string
	at       time.Time
}

// ActiveSessions computes the active table from events in ascending
// creation order. A session is active when the last login for its internal
// IP has no logout at or after it.
func ActiveSessions(events []Event, now time.Time) SessionsByHost {
	lastLogin := make(map[string]loginRecord)
	lastLogout := make(map[string]time.Time)

	for _, ev := range events {
		action, ip, user := ParseLine(ev.Raw)
		switch action {
		case ActionLogin:
			host := ev.Host
			if host == "" {
				host = UnknownHost
			}
			lastLogin[ip] = loginRecord{username: user, host: host, at: ev.Created}
		case ActionLogout:
			lastLogout[ip] = ev.Created
		}
	}

	grouped := make(SessionsByHost)
	for ip, login := range lastLogin {
		if logout, ok := lastLogout[ip]; ok && !logout.Before(login.at) {
			continue
		}
		grouped[login.host] = append(grouped[login.host], Session{
			Username:        login.username,
			InternalIP:      ip,
			LoginTime:       login.at.Format(isoLayout),
			DurationSeconds: int64(now.Sub(login.at).Seconds()),
			Status:          StatusActive,
			loginAt:         login.at,
		})
	}

	for host := range grouped {
		sessions := grouped[host]
		sort.SliceStable(sessions, func(i, j int) bool {
			if sessions[i].loginAt.Equal(sessions[j].loginAt) {
				return sessions[i].InternalIP < sessions[j].InternalIP
			}
			return sessions[i].loginAt.Before(sessions[j].loginAt)
		})
	}
	return grouped
}
