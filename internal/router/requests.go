// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package router

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/validation"
)

// cdrHoursTag bounds the getAvayaCdr look-back window.
var cdrHoursTag = fmt.Sprintf("min=1,max=%d", events.MaxCdrHours)

// HandleRequest serves one client request and returns the reply envelopes
// in send order. Bad request data is returned as a
// *validation.RequestValidationError.
func (r *Router) HandleRequest(ctx context.Context, principal string, req *events.ClientRequest) ([]events.Envelope, error) {
	logging.Ctx(ctx).Debug().Str("request", string(req.Event)).Msg("Client request")

	switch req.Event {
	case events.RequestDashboard:
		return r.dashboard(ctx)

	case events.RequestPacsInitValue:
		today, err := r.queries.PacsTodayEvents(ctx)
		if err != nil {
			return nil, err
		}
		last, err := r.queries.PacsLastEvents(ctx, "")
		if err != nil {
			return nil, err
		}
		return []events.Envelope{
			events.NewListEnvelope(events.EventPacsEntryExit, today),
			events.NewListEnvelope(events.EventPacsLastEvent, last),
		}, nil

	case events.RequestPacsEmployeeLastEvent:
		filter, verr := req.StringData()
		if verr != nil {
			return nil, verr
		}
		last, err := r.queries.PacsLastEvents(ctx, filter)
		if err != nil {
			return nil, err
		}
		return []events.Envelope{events.NewListEnvelope(events.EventPacsEmployeeLastEvent, last)}, nil

	case events.RequestDepartmentStructure:
		upn, verr := req.StringData()
		if verr != nil {
			return nil, verr
		}
		if upn == "" {
			upn = principal
		} else if verr := validation.ValidateVar("data", upn, "upn"); verr != nil {
			return nil, verr
		}
		ids, err := r.queries.DepartmentStructure(ctx, upn)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int64{}
		}
		return []events.Envelope{{Event: events.EventDepartmentStructure, Data: ids}}, nil

	case events.RequestFilteredInitiator:
		prefix, verr := req.StringData()
		if verr != nil {
			return nil, verr
		}
		employees, err := r.queries.FilteredEmployees(ctx, prefix)
		if err != nil {
			return nil, err
		}
		if employees == nil {
			return []events.Envelope{{Event: events.EventFilteredEmployee, Data: []struct{}{}}}, nil
		}
		return []events.Envelope{{Event: events.EventFilteredEmployee, Data: employees}}, nil

	case events.RequestAvayaCdr:
		hours, verr := req.IntData(cdrHoursTag)
		if verr != nil {
			return nil, verr
		}
		cdr, err := r.queries.AvayaCdr(ctx, hours)
		if err != nil {
			return nil, err
		}
		return []events.Envelope{events.NewListEnvelope(events.EventAvayaCdr, cdr)}, nil
	}

	return nil, validation.NewFieldError("event", "oneof", fmt.Sprintf("unsupported request %q", req.Event))
}

// dashboard returns the recomputed VPN table followed by the cached latest
// collector envelopes. Missing cache entries are skipped.
func (r *Router) dashboard(ctx context.Context) ([]events.Envelope, error) {
	vpnEnv, err := r.vpnEnvelope(ctx)
	if err != nil {
		return nil, err
	}
	out := []events.Envelope{vpnEnv}

	if r.latest == nil {
		return out, nil
	}
	for _, ev := range events.DashboardSnapshotEvents {
		stored, ok, err := r.latest.GetLatest(ctx, ev)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev)).Msg("Failed to read latest collector value")
			continue
		}
		if !ok {
			continue
		}

		var cached struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(stored, &cached); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("event", string(ev)).Msg("Discarding corrupt latest collector value")
			continue
		}
		out = append(out, events.NewRawEnvelope(ev, cached.Data))
	}
	return out, nil
}
