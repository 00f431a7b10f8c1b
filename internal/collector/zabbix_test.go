// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package collector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *ZabbixClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewZabbixClient(config.ZabbixConfig{
		URL:        srv.URL + "/api_jsonrpc.php",
		AuthToken:  "secret-token",
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	})
	c.retryDelay = time.Millisecond
	return c
}

func TestZabbixClient_ItemsRequestShape(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json-rpc" {
			t.Errorf("content-type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[{"hostid":"10149","key_":"net.if.in[ifHCInOctets.6]","name":"In","lastvalue":"1200"}]}`))
	})

	items, err := c.Items(context.Background(), []string{"10149"}, []string{"net.if.in[ifHCInOctets.6]"})
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].LastValue != "1200" || items[0].Key != "net.if.in[ifHCInOctets.6]" {
		t.Errorf("items = %+v", items)
	}

	if captured["jsonrpc"] != "2.0" || captured["method"] != "item.get" || captured["auth"] != "secret-token" {
		t.Errorf("envelope = %v", captured)
	}
	params, _ := captured["params"].(map[string]any)
	filter, _ := params["filter"].(map[string]any)
	if keys, _ := filter["key_"].([]any); len(keys) != 1 {
		t.Errorf("filter = %v", params["filter"])
	}
}

func TestZabbixClient_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[]}`))
	})

	items, err := c.Items(context.Background(), []string{"1"}, nil)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v", items)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestZabbixClient_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Problems(context.Background(), []string{"7"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 1 + 3 retries", calls.Load())
	}
}

func TestZabbixClient_RPCErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid params.","data":"Not authorised."}}`))
	})

	_, err := c.Items(context.Background(), []string{"1"}, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want RPCError", err)
	}
	if rpcErr.Code != -32602 || rpcErr.Data != "Not authorised." {
		t.Errorf("rpc error = %+v", rpcErr)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestZabbixClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Items(ctx, []string{"1"}, nil); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
