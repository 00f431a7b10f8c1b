// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/metrics"
)

const memoryStoreName = "memory"

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe TTL map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose values expire after ttl. A zero ttl
// keeps values forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetLatest implements LatestStore.
func (m *MemoryStore) SetLatest(_ context.Context, event events.Event, envelope []byte) error {
	data := make([]byte, len(envelope))
	copy(data, envelope)

	e := entry{data: data}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[events.LatestKey(event)] = e
	m.mu.Unlock()
	return nil
}

// GetLatest implements LatestStore. Expired entries are removed on read.
func (m *MemoryStore) GetLatest(_ context.Context, event events.Event) ([]byte, bool, error) {
	key := events.LatestKey(event)

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if ok && m.expired(e) {
		m.mu.Lock()
		if cur, still := m.entries[key]; still && m.expired(cur) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		ok = false
	}

	metrics.RecordCacheLookup(memoryStoreName, ok)
	if !ok {
		return nil, false, nil
	}
	return e.data, true, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cleanup drops expired entries and returns how many were removed.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// RunCleanup runs Cleanup every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}
