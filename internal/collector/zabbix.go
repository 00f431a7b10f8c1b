// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/eventprocessor"
	"github.com/tomtom215/itdash/internal/logging"
)

const (
	contentTypeJSONRPC = "application/json-rpc"
	maxResponseBytes   = 8 << 20
)

// RPCError is a JSON-RPC error object returned by Zabbix.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("zabbix rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("zabbix rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      int64  `json:"id"`
	Auth    string `json:"auth,omitempty"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Item is one monitored value from item.get.
type Item struct {
	HostID    string `json:"hostid"`
	Key       string `json:"key_"`
	Name      string `json:"name"`
	LastValue string `json:"lastvalue"`
}

// Problem is one open problem from problem.get.
type Problem struct {
	EventID      string `json:"eventid"`
	ObjectID     string `json:"objectid"`
	Clock        string `json:"clock"`
	Name         string `json:"name"`
	Severity     string `json:"severity"`
	Acknowledged string `json:"acknowledged"`
}

// ZabbixAPI is what the collector jobs need from Zabbix.
type ZabbixAPI interface {
	Items(ctx context.Context, hostIDs, keys []string) ([]Item, error)
	Problems(ctx context.Context, groupIDs []string) ([]Problem, error)
}

var _ ZabbixAPI = (*ZabbixClient)(nil)

// ZabbixClient calls the Zabbix JSON-RPC endpoint with bounded retries
// behind a circuit breaker.
type ZabbixClient struct {
	url        string
	token      string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[any]
	nextID     atomic.Int64
}

// NewZabbixClient builds a client from configuration.
func NewZabbixClient(cfg config.ZabbixConfig) *ZabbixClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &ZabbixClient{
		url:        cfg.URL,
		token:      cfg.AuthToken,
		maxRetries: retries,
		retryDelay: time.Second,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("zabbix")),
	}
}

// Items runs item.get for the given hosts, filtered by item key.
func (c *ZabbixClient) Items(ctx context.Context, hostIDs, keys []string) ([]Item, error) {
	params := map[string]any{
		"hostids": hostIDs,
		"output":  []string{"hostid", "key_", "name", "lastvalue"},
		"filter":  map[string]any{"key_": keys},
	}
	var items []Item
	if err := c.Call(ctx, "item.get", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Problems runs problem.get for the given host groups, newest first.
func (c *ZabbixClient) Problems(ctx context.Context, groupIDs []string) ([]Problem, error) {
	params := map[string]any{
		"groupids":  groupIDs,
		"output":    []string{"eventid", "objectid", "clock", "name", "severity", "acknowledged"},
		"recent":    false,
		"sortfield": []string{"eventid"},
		"sortorder": "DESC",
	}
	var problems []Problem
	if err := c.Call(ctx, "problem.get", params, &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// Call invokes method and decodes the result into out. Transport and
// HTTP failures are retried; RPC errors are not.
func (c *ZabbixClient) Call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      c.nextID.Add(1),
		Auth:    c.token,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	attempt := 0
	op := func() (json.RawMessage, error) {
		attempt++
		res, err := eventprocessor.ExecuteWithBreaker(c.breaker, func() (any, error) {
			return c.post(ctx, body)
		})
		if err != nil {
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res.(json.RawMessage), nil
	}
	notify := func(err error, wait time.Duration) {
		logging.Warn().Str("method", method).Int("attempt", attempt).Dur("retry_in", wait).Err(err).Msg("Zabbix request failed, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxRetries)), ctx)
	result, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return fmt.Errorf("zabbix %s: %w", method, err)
	}

	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *ZabbixClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeJSONRPC)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zabbix returned status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpc.Error != nil {
		return nil, rpc.Error
	}
	return rpc.Result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
