// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/itdash/internal/api"
	"github.com/tomtom215/itdash/internal/auth"
	"github.com/tomtom215/itdash/internal/broker"
	"github.com/tomtom215/itdash/internal/cache"
	"github.com/tomtom215/itdash/internal/collector"
	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
	"github.com/tomtom215/itdash/internal/pglisten"
	"github.com/tomtom215/itdash/internal/reconnect"
	"github.com/tomtom215/itdash/internal/router"
	"github.com/tomtom215/itdash/internal/store"
	"github.com/tomtom215/itdash/internal/supervisor"
	"github.com/tomtom215/itdash/internal/supervisor/services"
	"github.com/tomtom215/itdash/internal/vpn"
	ws "github.com/tomtom215/itdash/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// upstream is one adapter connection run under the reconnect policy.
type upstream struct {
	name string
	conn reconnect.Conn
}

const (
	memoryCleanupInterval = time.Minute
	httpShutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
		File: logging.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   true,
		},
	})
	metrics.SetAppInfo(version)

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Stringer("config", cfg).
		Msg("Starting ITDash with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		logging.Error().Err(err).Msg("ITDash stopped with error")
		_ = logging.Close()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
	_ = logging.Close()
}

//nolint:gocyclo // sequential wiring of every component
func run(ctx context.Context, cfg *config.Config) error {
	pool, err := store.OpenPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool)
	if cfg.Database.ProvisionTrigger {
		if err := st.EnsureVPNTrigger(ctx, cfg.Database.NotifyChannel); err != nil {
			return fmt.Errorf("provision vpn trigger: %w", err)
		}
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	checks := []api.HealthCheck{{Name: "postgres", Check: st.Ping}}

	latest, err := openLatestStore(ctx, cfg, tree)
	if err != nil {
		return err
	}
	if rs, ok := latest.(*cache.RedisStore); ok {
		defer func() { _ = rs.Close() }()
		checks = append(checks, api.HealthCheck{Name: "redis", Check: rs.Ping})
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("create token decoder: %w", err)
	}

	hub := ws.NewHub(cfg.WebSocket.SendTimeout)
	rt := router.New(hub, st, vpn.NewService(st), latest)

	natsComponents, err := InitNATS(cfg, rt)
	if err != nil {
		return err
	}
	defer natsComponents.Close()

	// The listener needs a plain connection string; pool options would be
	// sent to the server as runtime parameters.
	listenCfg := cfg.Database
	listenCfg.MaxConns = 0
	listener := pglisten.New(listenCfg.DSN(), cfg.Database.NotifyChannel, rt.OnDbNotification)

	policy := reconnect.NewPolicy(cfg.Reconnect)
	adapters := []upstream{{pglisten.AdapterName, listener}}
	if consumer := natsComponents.Consumer(); consumer != nil {
		adapters = append(adapters, upstream{broker.AdapterName, consumer})
	}

	for _, a := range adapters {
		if err := policy.Connect(ctx, a.name, a.conn); err != nil {
			for _, opened := range adapters {
				_ = opened.conn.Close()
			}
			return fmt.Errorf("initial connection: %w", err)
		}
	}

	natsComponents.AddToSupervisor(tree)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	for _, a := range adapters {
		tree.AddMessagingService(services.NewAdapterService(a.name, policy, a.conn))
	}

	if cfg.Zabbix.Enabled {
		var sink collector.Sink = collector.FuncSink(rt.OnScheduledResult)
		if pub := natsComponents.Publisher(); pub != nil {
			sink = collector.NewPublisherSink(pub, cfg.NATS.CollectorSubject)
		}
		client := collector.NewZabbixClient(cfg.Zabbix)
		tree.AddMessagingService(collector.NewScheduler(collector.Jobs(client, cfg.Zabbix), sink, cfg.Zabbix.Interval))
		logging.Info().Str("url", cfg.Zabbix.URL).Dur("interval", cfg.Zabbix.Interval).Msg("Zabbix collectors enabled")
	}

	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security))
	sessions := ws.NewSessionHandler(hub, jwtManager, rt, cfg.WebSocket, chiMiddleware.AllowedOrigins())
	handler := api.NewHandler(hub, version, checks...)
	apiRouter := api.NewRouter(handler, chiMiddleware, sessions)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           apiRouter.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}

// openLatestStore returns the Redis store when enabled, otherwise an
// in-memory store whose cleanup loop runs in the data layer.
func openLatestStore(ctx context.Context, cfg *config.Config, tree *supervisor.SupervisorTree) (cache.LatestStore, error) {
	if cfg.Redis.Enabled {
		rs, err := cache.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return rs, nil
	}

	mem := cache.NewMemoryStore(cfg.Redis.LatestTTL)
	tree.AddDataService(services.NewFuncService("latest-cache-cleanup", func(ctx context.Context) error {
		return mem.RunCleanup(ctx, memoryCleanupInterval)
	}))
	logging.Info().Dur("ttl", cfg.Redis.LatestTTL).Msg("Using in-memory latest-value store (REDIS_ENABLED=false)")
	return mem, nil
}
