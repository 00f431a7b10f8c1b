// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package events

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/validation"
)

// RequestType is the closed set of client-to-server requests.
type RequestType string

// Client requests.
const (
	RequestDashboard             RequestType = "getDashboardEvent"
	RequestPacsInitValue         RequestType = "getPacsInitValue"
	RequestPacsEmployeeLastEvent RequestType = "getPacsEmployeeLastEvent"
	RequestDepartmentStructure   RequestType = "getDepartmentStructureByUPN"
	RequestFilteredInitiator     RequestType = "getFilteredRequestInitiator"
	RequestAvayaCdr              RequestType = "getAvayaCdr"
)

// MaxCdrHours bounds the Avaya CDR look-back window.
const MaxCdrHours = 720

// ClientRequest is one inbound client message. Data may be absent, an
// object, a string or an integer.
type ClientRequest struct {
	Event RequestType     `json:"event" validate:"required,oneof=getDashboardEvent getPacsInitValue getPacsEmployeeLastEvent getDepartmentStructureByUPN getFilteredRequestInitiator getAvayaCdr"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeClientRequest parses and validates one text frame.
func DecodeClientRequest(raw []byte) (*ClientRequest, *validation.RequestValidationError) {
	var req ClientRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, validation.NewFieldError("body", "json", "body must be a JSON object: "+err.Error())
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, verr
	}
	switch firstByte(req.Data) {
	case 0, 'n', '{', '"', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		return nil, validation.NewFieldError("data", "type", "data must be an object, a string or an integer")
	}
	return &req, nil
}

func firstByte(b json.RawMessage) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// HasData reports whether data was sent and is not null.
func (r *ClientRequest) HasData() bool {
	c := firstByte(r.Data)
	return c != 0 && c != 'n'
}

// StringData returns data as a string. Absent data yields "".
func (r *ClientRequest) StringData() (string, *validation.RequestValidationError) {
	if !r.HasData() {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(r.Data, &s); err != nil {
		return "", validation.NewFieldError("data", "type", "data must be a string")
	}
	return strings.TrimSpace(s), nil
}

// IntData returns data as an integer, accepting a JSON number or a numeric
// string, checked against tag (a validator expression such as "min=1,max=720").
func (r *ClientRequest) IntData(tag string) (int, *validation.RequestValidationError) {
	if !r.HasData() {
		return 0, validation.NewFieldError("data", "required", "data is required")
	}

	var n int
	if err := json.Unmarshal(r.Data, &n); err != nil {
		var s string
		if json.Unmarshal(r.Data, &s) != nil {
			return 0, validation.NewFieldError("data", "type", "data must be an integer")
		}
		parsed, perr := strconv.Atoi(strings.TrimSpace(s))
		if perr != nil {
			return 0, validation.NewFieldError("data", "type", "data must be an integer")
		}
		n = parsed
	}

	if verr := validation.ValidateVar("data", n, tag); verr != nil {
		return 0, verr
	}
	return n, nil
}

// UpstreamMessage is the loose shape of broker and collector payloads.
// PACS notifications carry only NewPacsEventID; collector results carry an
// event tag and either data or DHCP-style top-level fields.
type UpstreamMessage struct {
	Event          string          `json:"event,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	NewPacsEventID *int64          `json:"new_pacs_event_id,omitempty"`
}
