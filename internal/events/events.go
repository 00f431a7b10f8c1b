// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package events defines the closed vocabularies exchanged with dashboard
// clients and upstream producers, and the envelope they travel in.
//
// Server to client:
//
//	{"event": "event_pacs_entry_exit", "data": {"results": [...], "total": 3}}
//
// Client to server:
//
//	{"event": "getAvayaCdr", "data": 24}
package events

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEvent is returned when a tag is outside the vocabulary.
var ErrUnknownEvent = errors.New("unknown event")

// Event tags a server-to-client envelope. The tag alone determines the shape
// of the envelope's data.
type Event string

// Broadcast and reply events.
const (
	EventPacsEntryExit           Event = "event_pacs_entry_exit"
	EventPacsLastEvent           Event = "event_pacs_last_event"
	EventPacsEmployeeLastEvent   Event = "event_pacs_employee_last_event"
	EventProviderInfo            Event = "event_provider_info"
	EventHardwareGroupAlarm      Event = "event_hardware_group_alarm"
	EventAvayaE1ChannelInfo      Event = "event_avaya_e1_channel_info"
	EventAvayaCdr                Event = "event_avaya_cdr"
	EventDhcpScopesCollected     Event = "event_dhcp_scopes_collected"
	EventDhcpStatisticsCollected Event = "event_dhcp_statistics_collected"
	EventDhcpLeasesCollected     Event = "event_dhcp_leases_collected"
	EventCiscoVpnActiveSession   Event = "event_cisco_vpn_active_session"
	EventVpnActiveSessionCount   Event = "event_vpn_active_session_count"
	EventDepartmentStructure     Event = "event_department_structure_by_upn"
	EventFilteredEmployee        Event = "event_filtered_employee"
)

// Kind groups events by how the router treats them.
type Kind int

const (
	// KindReply events are only sent in answer to a client request.
	KindReply Kind = iota
	// KindPacs events trigger a re-query of the PACS views.
	KindPacs
	// KindCollector events carry final results and are rebroadcast as-is.
	KindCollector
	// KindVPN events trigger a recompute of active VPN sessions.
	KindVPN
)

var eventKinds = map[Event]Kind{
	EventPacsEntryExit:           KindPacs,
	EventPacsLastEvent:           KindPacs,
	EventPacsEmployeeLastEvent:   KindReply,
	EventProviderInfo:            KindCollector,
	EventHardwareGroupAlarm:      KindCollector,
	EventAvayaE1ChannelInfo:      KindCollector,
	EventAvayaCdr:                KindReply,
	EventDhcpScopesCollected:     KindCollector,
	EventDhcpStatisticsCollected: KindCollector,
	EventDhcpLeasesCollected:     KindCollector,
	EventCiscoVpnActiveSession:   KindCollector,
	EventVpnActiveSessionCount:   KindVPN,
	EventDepartmentStructure:     KindReply,
	EventFilteredEmployee:        KindReply,
}

// ParseEvent converts a raw tag into an Event.
func ParseEvent(s string) (Event, error) {
	e := Event(strings.TrimSpace(s))
	if _, ok := eventKinds[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
	return e, nil
}

// Valid reports whether e is part of the vocabulary.
func (e Event) Valid() bool {
	_, ok := eventKinds[e]
	return ok
}

// Kind returns the routing class of e. Unknown events report KindReply.
func (e Event) Kind() Kind {
	return eventKinds[e]
}

// CollectorEvents returns the events whose latest value is cached.
func CollectorEvents() []Event {
	out := make([]Event, 0, 8)
	for e, k := range eventKinds {
		if k == KindCollector {
			out = append(out, e)
		}
	}
	return out
}

// DashboardSnapshotEvents are replayed from the latest-value cache when a
// client asks for the dashboard, in this order.
var DashboardSnapshotEvents = []Event{
	EventProviderInfo,
	EventAvayaE1ChannelInfo,
	EventHardwareGroupAlarm,
}

// LatestKey is the cache key holding the most recent envelope for e.
func LatestKey(e Event) string {
	return "latest:" + string(e)
}
