// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package metrics holds the Prometheus collectors for ITDash. Collectors
// are registered with the default registry at init and served on /metrics.
package metrics

import (
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "itdash"

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of registered WebSocket sessions",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_sent_total",
			Help:      "Frames written to WebSocket clients",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_received_total",
			Help:      "Frames read from WebSocket clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_errors_total",
			Help:      "WebSocket errors by type",
		},
		[]string{"type"}, // "auth", "invalid_format", "request_failed", "rate_limited", "write", "read"
	)

	WSBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_broadcasts_total",
			Help:      "Envelopes broadcast to all sessions, by event",
		},
		[]string{"event"},
	)

	WSBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "websocket_broadcast_duration_seconds",
			Help:      "Time to enqueue one broadcast to every session",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
		},
	)

	WSSlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_slow_clients_dropped_total",
			Help:      "Sessions unregistered because their send queue stayed full past the send timeout",
		},
	)

	// Router Metrics
	RouterEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_events_total",
			Help:      "Upstream payloads handled by the event router",
		},
		[]string{"source", "event", "outcome"}, // outcome: "broadcast", "decode_error", "unknown_event", "collaborator_error"
	)

	RouterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "router_handle_duration_seconds",
			Help:      "Time spent handling one upstream payload",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Adapter Metrics
	AdapterConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adapter_connected",
			Help:      "1 when the upstream adapter holds a live connection",
		},
		[]string{"adapter"},
	)

	AdapterReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_reconnects_total",
			Help:      "Connection attempts made after a transport failure",
		},
		[]string{"adapter"},
	)

	AdapterConnectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_connect_failures_total",
			Help:      "Failed connection attempts",
		},
		[]string{"adapter"},
	)

	BrokerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_messages_total",
			Help:      "Messages consumed from the broker, by binding and outcome",
		},
		[]string{"binding", "outcome"}, // "acked", "nacked", "panic"
	)

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_published_total",
			Help:      "Messages published to NATS",
		},
		[]string{"subject"},
	)

	DBNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_notifications_total",
			Help:      "Postgres notifications received on the VPN channel",
		},
	)

	// Collector Metrics
	CollectorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_runs_total",
			Help:      "Scheduled collector runs by outcome",
		},
		[]string{"collector", "outcome"},
	)

	CollectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collector_duration_seconds",
			Help:      "Scheduled collector run duration",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"collector"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of collaborator queries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_query_errors_total",
			Help:      "Failed collaborator queries",
		},
		[]string{"query", "error_type"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Latest-value cache hits",
		},
		[]string{"store"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Latest-value cache misses",
		},
		[]string{"store"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "In-flight HTTP requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_info",
			Help:      "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
)

// SetAppInfo publishes the running version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// RecordDBQuery records one collaborator query.
func RecordDBQuery(query string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(query, errorType(err)).Inc()
	}
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRouterEvent records the outcome of one upstream payload.
func RecordRouterEvent(source, event, outcome string, duration time.Duration) {
	if event == "" {
		event = "none"
	}
	RouterEvents.WithLabelValues(source, event, outcome).Inc()
	RouterDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordBroadcast records one fan-out.
func RecordBroadcast(event string, duration time.Duration) {
	WSBroadcasts.WithLabelValues(event).Inc()
	WSBroadcastDuration.Observe(duration.Seconds())
}

// RecordCollectorRun records one scheduled collection.
func RecordCollectorRun(collector string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	CollectorRuns.WithLabelValues(collector, outcome).Inc()
	CollectorDuration.WithLabelValues(collector).Observe(duration.Seconds())
}

// SetAdapterConnected flips the adapter connection gauge.
func SetAdapterConnected(adapter string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	AdapterConnected.WithLabelValues(adapter).Set(v)
}

// RecordCacheLookup records a latest-value cache lookup.
func RecordCacheLookup(store string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(store).Inc()
	} else {
		CacheMisses.WithLabelValues(store).Inc()
	}
}

// errorType buckets errors into a bounded label set.
func errorType(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "context canceled"):
		return "canceled"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connect"):
		return "connection"
	case strings.Contains(msg, "no rows"):
		return "no_rows"
	default:
		return "other"
	}
}
