// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package cache keeps the latest collector envelope per event tag so a newly
// connected dashboard can be populated without waiting for the next
// collection cycle.
//
// Two stores implement LatestStore:
//   - RedisStore shares values between backend replicas (go-redis).
//   - MemoryStore is an in-process TTL map for single-node deployments and tests.
package cache

import (
	"context"

	"github.com/tomtom215/itdash/internal/events"
)

// LatestStore persists the most recent serialized envelope per event.
type LatestStore interface {
	// SetLatest overwrites the value stored for event.
	SetLatest(ctx context.Context, event events.Event, envelope []byte) error

	// GetLatest returns the stored envelope. ok is false when nothing is
	// stored or the value has expired.
	GetLatest(ctx context.Context, event events.Event) (envelope []byte, ok bool, err error)
}

// Compile-time interface checks.
var (
	_ LatestStore = (*MemoryStore)(nil)
	_ LatestStore = (*RedisStore)(nil)
)
