// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/itdash/internal/logging"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	t.Parallel()

	var capturedID, loggedID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		loggedID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if capturedID != responseID || loggedID != responseID {
		t.Errorf("context ids %q / %q, header %q", capturedID, loggedID, responseID)
	}
}

func TestRequestID_UpstreamHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{"preserved", "proxy-abc-123", true},
		{"empty", "", false},
		{"oversized", strings.Repeat("x", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.preserve && got != tt.header {
				t.Errorf("got %q, want %q", got, tt.header)
			}
			if !tt.preserve && got == tt.header {
				t.Errorf("upstream id %q should have been replaced", tt.header)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	t.Parallel()

	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("got %q", id)
	}
	ctx := context.WithValue(context.Background(), RequestIDKey, 42)
	if id := GetRequestID(ctx); id != "" {
		t.Errorf("wrong type should yield empty id, got %q", id)
	}
}

func TestStatusWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sw := newStatusWriter(rec)
	sw.WriteHeader(http.StatusTeapot)
	sw.WriteHeader(http.StatusOK)
	if sw.statusCode != http.StatusTeapot {
		t.Errorf("status = %d", sw.statusCode)
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestStatusWriter_HijackUnsupported(t *testing.T) {
	t.Parallel()

	sw := newStatusWriter(httptest.NewRecorder())
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("recorder cannot be hijacked")
	}
}

func TestRoutePattern(t *testing.T) {
	t.Parallel()

	var pattern string
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		pattern = routePattern(req)
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/7", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || pattern != "unmatched" {
		t.Errorf("status = %d, pattern = %q", rec.Code, pattern)
	}

	if got := routePattern(httptest.NewRequest(http.MethodGet, "/", nil)); got != "unmatched" {
		t.Errorf("no route context: %q", got)
	}
}

// The full stack must keep the connection hijackable for WebSocket upgrades.
func TestStack_WebSocketUpgrade(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	r := chi.NewRouter()
	r.Use(RequestID, RequestLogger, PrometheusMetrics)
	r.Get("/api/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("status = %d", resp.StatusCode)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "hello" {
		t.Errorf("read = %q, %v", msg, err)
	}
}
