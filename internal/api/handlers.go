// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

const healthCheckTimeout = 2 * time.Second

// ClientCounter reports connected WebSocket sessions.
type ClientCounter interface {
	ClientCount() int
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthStatus is the /health body.
type HealthStatus struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Clients      int               `json:"connected_clients"`
	Uptime       float64           `json:"uptime_seconds"`
	Goroutines   int               `json:"goroutines"`
	MemoryRSS    uint64            `json:"memory_rss_bytes,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Handler serves the non-WebSocket endpoints.
type Handler struct {
	clients   ClientCounter
	checks    []HealthCheck
	version   string
	startTime time.Time

	procOnce sync.Once
	proc     *process.Process
}

// NewHandler creates a handler. checks run on every /health request.
func NewHandler(clients ClientCounter, version string, checks ...HealthCheck) *Handler {
	return &Handler{
		clients:   clients,
		checks:    checks,
		version:   version,
		startTime: time.Now(),
	}
}

// Root returns the service banner.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "ITDash API is running"})
}

// Health reports process and dependency status. Any failing dependency
// marks the service degraded; the status code stays 200 so clients keep
// their sessions while an adapter reconnects.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:     "healthy",
		Version:    h.version,
		Clients:    h.clients.ClientCount(),
		Uptime:     time.Since(h.startTime).Seconds(),
		Goroutines: runtime.NumGoroutine(),
		MemoryRSS:  h.memoryRSS(r.Context()),
	}
	metrics.AppUptime.Set(status.Uptime)

	if len(h.checks) > 0 {
		status.Dependencies = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		for _, c := range h.checks {
			if err := c.Check(ctx); err != nil {
				status.Dependencies[c.Name] = "down"
				status.Status = "degraded"
				logging.Ctx(r.Context()).Debug().Err(err).Str("dependency", c.Name).Msg("Health check failed")
				continue
			}
			status.Dependencies[c.Name] = "up"
		}
	}

	respondJSON(w, http.StatusOK, status)
}

// Live always answers 200 while the process serves HTTP.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// memoryRSS returns the resident set size, or 0 when unavailable.
func (h *Handler) memoryRSS(ctx context.Context) uint64 {
	h.procOnce.Do(func() {
		p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pid fits int32
		if err != nil {
			logging.Debug().Err(err).Msg("Process stats unavailable")
			return
		}
		h.proc = p
	})
	if h.proc == nil {
		return 0
	}
	mem, err := h.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0
	}
	return mem.RSS
}
