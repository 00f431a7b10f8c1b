// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// Tests below reconfigure the global logger and must not run in parallel.

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("event", "event_provider_info").Msg("broadcast")

	out := buf.String()
	if !strings.Contains(out, `"message":"broadcast"`) {
		t.Errorf("missing message in %s", out)
	}
	if !strings.Contains(out, `"event":"event_provider_info"`) {
		t.Errorf("missing field in %s", out)
	}
}

func TestInit_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "itdash.log")

	Init(Config{Level: "info", Output: &buf, File: FileConfig{Path: path, MaxSizeMB: 1}})
	Warn().Msg("written twice")
	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	Init(DefaultConfig())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written twice") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(buf.String(), "written twice") {
		t.Errorf("primary output missing entry: %s", buf.String())
	}
}

func TestCtx_AddsSessionFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	ctx := ContextWithSession(context.Background(), "conn-1", "jdoe")
	ctx = ContextWithCorrelationID(ctx, "abc12345")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"connection_id":"conn-1"`, `"principal":"jdoe"`, `"correlation_id":"abc12345"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestCorrelationID_Empty(t *testing.T) {
	t.Parallel()
	if id := CorrelationIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
	if len(GenerateCorrelationID()) != 8 {
		t.Error("correlation id should be 8 characters")
	}
}

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevelString("debug")
	defer Init(DefaultConfig())

	logger := NewSlogLogger().With("service", "broker").WithGroup("suture")
	logger.Warn("service restarted", slog.Int("attempt", 2))

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"broker"`, `"suture.attempt":2`, `"message":"service restarted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestToZerologLevel(t *testing.T) {
	t.Parallel()

	cases := map[slog.Level]zerolog.Level{
		slog.LevelDebug - 4: zerolog.TraceLevel,
		slog.LevelDebug:     zerolog.DebugLevel,
		slog.LevelInfo:      zerolog.InfoLevel,
		slog.LevelWarn:      zerolog.WarnLevel,
		slog.LevelError:     zerolog.ErrorLevel,
	}
	for in, want := range cases {
		if got := toZerologLevel(in); got != want {
			t.Errorf("toZerologLevel(%v) = %v, want %v", in, got, want)
		}
	}
}
