// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope is the unit delivered to clients. Data is immutable once built.
type Envelope struct {
	Event Event `json:"event"`
	Data  any   `json:"data"`
}

// ListData is the data shape of list events.
type ListData struct {
	Results any `json:"results"`
	Total   int `json:"total"`
}

// NewListEnvelope wraps results with total = len(results). A nil slice is
// sent as [].
func NewListEnvelope[T any](e Event, results []T) Envelope {
	if results == nil {
		results = []T{}
	}
	return Envelope{Event: e, Data: ListData{Results: results, Total: len(results)}}
}

// NewMapEnvelope wraps a keyed aggregate with total = len(results).
func NewMapEnvelope[K comparable, V any](e Event, results map[K]V) Envelope {
	if results == nil {
		results = map[K]V{}
	}
	return Envelope{Event: e, Data: ListData{Results: results, Total: len(results)}}
}

// NewRawEnvelope wraps data that is already JSON.
func NewRawEnvelope(e Event, data json.RawMessage) Envelope {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return Envelope{Event: e, Data: data}
}

// Marshal serializes the envelope once for fan-out.
func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", e.Event, err)
	}
	return b, nil
}

// Total returns the total of a list envelope, or -1 for other shapes.
func (e Envelope) Total() int {
	if ld, ok := e.Data.(ListData); ok {
		return ld.Total
	}
	return -1
}

// ErrorReply is sent to a single client when its request cannot be served.
type ErrorReply struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}

// Error reply messages.
const (
	ErrorInvalidFormat = "Invalid format"
	ErrorRequestFailed = "Request failed"
)

// Marshal serializes the reply.
func (r ErrorReply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
