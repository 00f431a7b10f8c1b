// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package eventprocessor

import (
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// NewCircuitBreaker creates a breaker that opens after FailureThreshold
// consecutive failures. State changes are logged and exported as metrics.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: onStateChange,
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[any](settings)
}

func onStateChange(name string, from, to gobreaker.State) {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()

	evt := logging.Info()
	if to == gobreaker.StateOpen {
		evt = logging.Warn()
	}
	evt.Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
}

// CircuitBreakerState converts gobreaker.State to a string for monitoring.
func CircuitBreakerState(cb *gobreaker.CircuitBreaker[any]) string {
	return cb.State().String()
}

// ExecuteWithBreaker runs fn through cb. A nil breaker runs fn directly.
func ExecuteWithBreaker(cb *gobreaker.CircuitBreaker[any], fn func() (any, error)) (any, error) {
	if cb == nil {
		return fn()
	}
	return cb.Execute(fn)
}
