// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("pacs_events_by_id", "timeout"))

	RecordDBQuery("pacs_events_by_id", 5*time.Millisecond, nil)
	RecordDBQuery("pacs_events_by_id", 5*time.Millisecond, errors.New("context deadline exceeded"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("pacs_events_by_id", "timeout"))
	if after-before != 1 {
		t.Errorf("expected one timeout error recorded, got %v", after-before)
	}
}

func TestErrorType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"context deadline exceeded":    "timeout",
		"i/o timeout":                  "timeout",
		"context canceled":             "canceled",
		"dial tcp: connection refused": "connection",
		"no rows in result set":        "no_rows",
		"syntax error":                 "other",
	}
	for msg, want := range tests {
		if got := errorType(errors.New(msg)); got != want {
			t.Errorf("errorType(%q) = %s, want %s", msg, got, want)
		}
	}
}

func TestRecordRouterEvent(t *testing.T) {
	c := RouterEvents.WithLabelValues("queue", "none", "decode_error")
	before := testutil.ToFloat64(c)

	RecordRouterEvent("queue", "", "decode_error", time.Millisecond)

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("empty event should be labelled none, delta = %v", got)
	}
}

func TestRecordCollectorRun(t *testing.T) {
	ok := CollectorRuns.WithLabelValues("provider_info", "success")
	failed := CollectorRuns.WithLabelValues("provider_info", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordCollectorRun("provider_info", time.Second, nil)
	RecordCollectorRun("provider_info", time.Second, errors.New("zabbix down"))

	if testutil.ToFloat64(ok)-okBefore != 1 || testutil.ToFloat64(failed)-failedBefore != 1 {
		t.Error("collector outcomes not recorded")
	}
}

func TestSetAdapterConnected(t *testing.T) {
	SetAdapterConnected("pglisten", true)
	if v := testutil.ToFloat64(AdapterConnected.WithLabelValues("pglisten")); v != 1 {
		t.Errorf("gauge = %v, want 1", v)
	}
	SetAdapterConnected("pglisten", false)
	if v := testutil.ToFloat64(AdapterConnected.WithLabelValues("pglisten")); v != 0 {
		t.Errorf("gauge = %v, want 0", v)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
}

func TestMetricsLint(t *testing.T) {
	SetAppInfo("test")
	RecordBroadcast("event_provider_info", time.Millisecond)
	RecordCacheLookup("redis", true)
	RecordCacheLookup("redis", false)
	RecordAPIRequest("GET", "/health", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint: %v", err)
	}
	for _, p := range problems {
		if len(p.Metric) >= len(namespace) && p.Metric[:len(namespace)] == namespace {
			t.Errorf("lint problem on %s: %s", p.Metric, p.Text)
		}
	}
}
