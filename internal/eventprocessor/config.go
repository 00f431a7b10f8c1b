// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package eventprocessor

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/itdash/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 1 << 30,
	}
}

// ServerConfigFrom derives the embedded server settings from cfg. The
// listen address comes from cfg.URL so clients and server agree.
func ServerConfigFrom(cfg config.NATSConfig) ServerConfig {
	sc := DefaultServerConfig()
	if u, err := url.Parse(cfg.URL); err == nil && u.Host != "" {
		if host, port, err := net.SplitHostPort(u.Host); err == nil {
			sc.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				sc.Port = p
			}
		}
	}
	if cfg.StoreDir != "" {
		sc.StoreDir = cfg.StoreDir
	}
	if cfg.MaxMemory > 0 {
		sc.JetStreamMaxMem = cfg.MaxMemory
	}
	if cfg.MaxStore > 0 {
		sc.JetStreamMaxStore = cfg.MaxStore
	}
	return sc
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// StreamConfig defines the dashboard event stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// StreamConfigFrom captures the PACS subject and every collector subject.
func StreamConfigFrom(cfg config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{cfg.PacsSubject, CollectorWildcard(cfg.CollectorSubject)},
		MaxAge:          cfg.StreamMaxAge,
		MaxBytes:        -1,
		MaxMsgs:         -1,
		DuplicateWindow: cfg.DuplicateWindow,
		Replicas:        1,
	}
}

// CollectorSubject returns the subject a collector result is published on.
func CollectorSubject(prefix, event string) string {
	return prefix + "." + event
}

// CollectorWildcard matches every collector subject under prefix.
func CollectorWildcard(prefix string) string {
	return prefix + ".>"
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
