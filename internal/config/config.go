// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package config loads ITDash configuration.
//
// Loading order (later layers win):
//  1. Built-in defaults (defaultConfig)
//  2. .env files in the working directory (joho/godotenv, never overriding the real environment)
//  3. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  4. Environment variables (DATABASE_HOST, JWT_SECRET_KEY, NATS_URL, ...)
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("failed to load configuration")
//	}
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Redis     RedisConfig     `koanf:"redis"`
	NATS      NATSConfig      `koanf:"nats"`
	Zabbix    ZabbixConfig    `koanf:"zabbix"`
	Reconnect ReconnectConfig `koanf:"reconnect"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig points at the operational Postgres database holding PACS,
// employee, Avaya CDR and Cisco VPN tables.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"max_conns"`

	// NotifyChannel is the LISTEN channel fed by the cisco_vpn_event trigger.
	NotifyChannel string `koanf:"notify_channel"`

	// ProvisionTrigger creates the notify function and trigger at startup when missing.
	ProvisionTrigger bool `koanf:"provision_trigger"`
}

// DSN renders a pgx connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(int(d.MaxConns)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SecurityConfig covers token verification and HTTP hardening.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTAlgorithm      string        `koanf:"jwt_algorithm"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// RedisConfig configures the latest-value cache used by dashboard snapshots.
// When disabled an in-process TTL cache is used instead.
type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Host      string        `koanf:"host"`
	Port      int           `koanf:"port"`
	DB        int           `koanf:"db"`
	Password  string        `koanf:"password"`
	LatestTTL time.Duration `koanf:"latest_ttl"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// NATSConfig configures the message broker.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamName      string        `koanf:"stream_name"`
	StreamMaxAge    time.Duration `koanf:"stream_max_age"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// PacsSubject carries {"new_pacs_event_id": N} notifications.
	PacsSubject string `koanf:"pacs_subject"`

	// CollectorSubject is the prefix collectors publish under (<prefix>.<event>).
	CollectorSubject string `koanf:"collector_subject"`

	DurablePrefix string        `koanf:"durable_prefix"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxDeliver    int           `koanf:"max_deliver"`
}

// ZabbixConfig configures the scheduled monitoring collectors.
type ZabbixConfig struct {
	Enabled    bool          `koanf:"enabled"`
	URL        string        `koanf:"url"`
	AuthToken  string        `koanf:"auth_token"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
	Interval   time.Duration `koanf:"interval"`

	ProviderHostIDs  []string `koanf:"provider_host_ids"`
	ProviderItemKeys []string `koanf:"provider_item_keys"`
	HardwareGroupIDs []string `koanf:"hardware_group_ids"`
	AvayaHostIDs     []string `koanf:"avaya_host_ids"`
	AvayaItemKeys    []string `koanf:"avaya_item_keys"`
}

// ReconnectConfig is the shared policy for broker and database adapters.
type ReconnectConfig struct {
	// Retries bounds the initial connection attempts before startup fails.
	Retries    int           `koanf:"retries"`
	Delay      time.Duration `koanf:"delay"`
	MaxDelay   time.Duration `koanf:"max_delay"`
	Multiplier float64       `koanf:"multiplier"`
	Jitter     float64       `koanf:"jitter"`
}

// WebSocketConfig tunes client sessions.
type WebSocketConfig struct {
	SendTimeout    time.Duration `koanf:"send_timeout"`
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	RequestRate    float64       `koanf:"request_rate"`
	RequestBurst   int           `koanf:"request_burst"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// String renders a redacted summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("server=%s db=%s@%s/%s nats=%s(embedded=%t) redis=%t zabbix=%t",
		c.Server.Addr(), c.Database.User, net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		c.Database.Name, c.NATS.URL, c.NATS.EmbeddedServer, c.Redis.Enabled, c.Zabbix.Enabled)
}
