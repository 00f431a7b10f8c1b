// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package vpn

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedSignal is returned for notifications without a host separator.
var ErrMalformedSignal = errors.New("malformed vpn signal")

// Message ids used to pre-filter rows in SQL.
const (
	LoginMessageID  = "%ASA-7-746012"
	LogoutMessageID = "%ASA-7-746013"
)

var (
	loginPattern  = regexp.MustCompile(`%ASA-7-746012: user-identity: Add IP-User mapping (\S+) - LOCAL\\\\([^@\s]+)(?:@[^\s]*)? Succeeded - VPN user`)
	logoutPattern = regexp.MustCompile(`%ASA-7-746013: user-identity: Delete IP-User mapping (\S+) - LOCAL\\\\([^@\s]+)(?:@[^\s]*)? Succeeded - VPN user`)
)

// ParseLine classifies one ASA line and extracts the internal IP and user
// name. Domain suffixes (user@domain) are stripped.
func ParseLine(line string) (action Action, internalIP, username string) {
	if line == "" {
		return ActionNone, "", ""
	}
	if m := loginPattern.FindStringSubmatch(line); m != nil {
		return ActionLogin, m[1], m[2]
	}
	if m := logoutPattern.FindStringSubmatch(line); m != nil {
		return ActionLogout, m[1], m[2]
	}
	return ActionNone, "", ""
}

// ParseSignal splits a notification payload "host|raw". The raw part may
// itself contain '|'. An empty host becomes UnknownHost.
func ParseSignal(payload string) (Signal, error) {
	host, raw, ok := strings.Cut(payload, "|")
	if !ok {
		return Signal{}, ErrMalformedSignal
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = UnknownHost
	}

	sig := Signal{Host: host, Raw: raw}
	sig.Action, sig.IP, sig.User = ParseLine(raw)
	return sig, nil
}
