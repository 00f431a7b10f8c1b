// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package reconnect is the connection policy shared by every upstream
// adapter (broker consumer, Postgres listener).
//
// Startup and steady state are deliberately asymmetric:
//
//   - Connect makes a bounded number of attempts. Exhaustion is the only
//     error class allowed to abort the process.
//   - Run serves a live connection and, after any transport failure,
//     closes it and reconnects forever until the context is cancelled.
//
// Both paths wait with exponential backoff and jitter starting at the
// configured delay.
package reconnect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// ErrRetriesExhausted is returned by Connect when every attempt failed.
var ErrRetriesExhausted = errors.New("connection retries exhausted")

// Conn is one adapter-owned upstream connection.
type Conn interface {
	// Dial establishes the connection.
	Dial(ctx context.Context) error
	// Serve blocks receiving messages until the transport fails or ctx is
	// cancelled. Serve on a closed connection must return an error at once.
	Serve(ctx context.Context) error
	// Close releases the transport. Safe to call when not connected.
	Close() error
}

// Policy holds the backoff parameters.
type Policy struct {
	retries    int
	delay      time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
}

// NewPolicy builds a policy from configuration. Zero values fall back to
// 5 retries with a 5s delay.
func NewPolicy(cfg config.ReconnectConfig) *Policy {
	p := &Policy{
		retries:    cfg.Retries,
		delay:      cfg.Delay,
		maxDelay:   cfg.MaxDelay,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
	}
	if p.retries < 1 {
		p.retries = 5
	}
	if p.delay <= 0 {
		p.delay = 5 * time.Second
	}
	if p.maxDelay < p.delay {
		p.maxDelay = p.delay
	}
	if p.multiplier < 1 {
		p.multiplier = 1
	}
	return p
}

// Retries returns the bound used by Connect.
func (p *Policy) Retries() int {
	return p.retries
}

func (p *Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.delay
	b.RandomizationFactor = p.jitter
	b.Multiplier = p.multiplier
	b.MaxInterval = p.maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Connect dials up to Retries times. It returns ctx.Err() if cancelled and
// an error wrapping ErrRetriesExhausted and the last dial error otherwise.
func (p *Policy) Connect(ctx context.Context, name string, c Conn) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.retries-1)), ctx)

	op := func() error {
		attempt++
		err := c.Dial(ctx)
		if err != nil {
			metrics.AdapterConnectFailures.WithLabelValues(name).Inc()
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.Warn().
			Str("adapter", name).
			Int("attempt", attempt).
			Int("max_attempts", p.retries).
			Dur("retry_in", wait).
			Err(err).
			Msg("Upstream connection failed, retrying")
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, name, attempt, err)
	}

	metrics.SetAdapterConnected(name, true)
	logging.Info().Str("adapter", name).Int("attempt", attempt).Msg("Upstream connection established")
	return nil
}

// Run serves c until ctx is cancelled, reconnecting after every transport
// failure without bound. It always returns ctx.Err().
func (p *Policy) Run(ctx context.Context, name string, c Conn) error {
	for {
		serveErr := c.Serve(ctx)
		if err := c.Close(); err != nil {
			logging.Debug().Str("adapter", name).Err(err).Msg("Close after serve failed")
		}
		metrics.SetAdapterConnected(name, false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Str("adapter", name).Err(serveErr).Msg("Upstream connection lost, reconnecting")

		if err := p.reconnect(ctx, name, c); err != nil {
			return err
		}
	}
}

// reconnect waits and dials until it succeeds or ctx ends.
func (p *Policy) reconnect(ctx context.Context, name string, c Conn) error {
	b := p.newBackOff()
	for attempt := 1; ; attempt++ {
		if err := sleep(ctx, b.NextBackOff()); err != nil {
			return err
		}

		metrics.AdapterReconnects.WithLabelValues(name).Inc()
		err := c.Dial(ctx)
		if err == nil {
			metrics.SetAdapterConnected(name, true)
			logging.Info().Str("adapter", name).Int("attempt", attempt).Msg("Upstream connection re-established")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.AdapterConnectFailures.WithLabelValues(name).Inc()
		logging.Warn().Str("adapter", name).Int("attempt", attempt).Err(err).Msg("Reconnect attempt failed")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
