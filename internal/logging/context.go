// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	connectionIDKey  contextKey = "connection_id"
	principalKey     contextKey = "principal"
)

// GenerateCorrelationID returns a short id for tying related log lines together.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID returns a full UUID for HTTP requests.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID stores id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID stores a freshly generated correlation id in ctx.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation id or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ContextWithRequestID stores an HTTP request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithSession tags ctx with a WebSocket connection id and its principal.
func ContextWithSession(ctx context.Context, connectionID, principal string) context.Context {
	ctx = context.WithValue(ctx, connectionIDKey, connectionID)
	return context.WithValue(ctx, principalKey, principal)
}

// Ctx returns the global logger enriched with every id found in ctx.
//
//	logging.Ctx(ctx).Info().Msg("request dispatched")
//	// {"level":"info","connection_id":"...","principal":"jdoe","message":"request dispatched"}
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith returns a logger context builder with the ctx ids pre-populated.
func CtxWith(ctx context.Context) zerolog.Context {
	c := Logger().With()
	for _, key := range []contextKey{correlationIDKey, requestIDKey, connectionIDKey, principalKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			c = c.Str(string(key), v)
		}
	}
	return c
}

// WithComponent creates a child logger with a component field.
//
//	log := logging.WithComponent("pglisten")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
