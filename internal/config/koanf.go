// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/itdash/config.yaml",
	"/etc/itdash/config.yml",
}

// DefaultDotEnvFiles are loaded into the process environment before env vars are read.
var DefaultDotEnvFiles = []string{".env"}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             5432,
			Name:             "postgres",
			User:             "postgres",
			Password:         "postgres",
			SSLMode:          "disable",
			MaxConns:         10,
			NotifyChannel:    "vpn_event_channel",
			ProvisionTrigger: true,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			JWTAlgorithm:    "HS256",
			CORSOrigins:     []string{"http://localhost:4200", "http://127.0.0.1:4200"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Redis: RedisConfig{
			Enabled:   true,
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			LatestTTL: 24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:          true,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        256 << 20,
			MaxStore:         1 << 30,
			StreamName:       "ITDASH_EVENTS",
			StreamMaxAge:     24 * time.Hour,
			DuplicateWindow:  2 * time.Minute,
			PacsSubject:      "pacs.events",
			CollectorSubject: "celery_beat",
			DurablePrefix:    "itdash-backend",
			AckWait:          30 * time.Second,
			MaxDeliver:       5,
		},
		Zabbix: ZabbixConfig{
			Enabled:         false,
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			Interval:        time.Minute,
			ProviderHostIDs: []string{"10149", "10199"},
			ProviderItemKeys: []string{
				"net.if.in[ifHCInOctets.6]",
				"net.if.out[ifHCOutOctets.6]",
				"net.if.in[ifHCInOctets.3]",
				"net.if.out[ifHCOutOctets.3]",
				"net.if.in[ifHCInOctets.4]",
				"net.if.out[ifHCOutOctets.4]",
			},
		},
		Reconnect: ReconnectConfig{
			Retries:    5,
			Delay:      5 * time.Second,
			MaxDelay:   time.Minute,
			Multiplier: 2.0,
			Jitter:     0.2,
		},
		WebSocket: WebSocketConfig{
			SendTimeout:    2 * time.Second,
			SendBuffer:     256,
			MaxMessageSize: 512 * 1024,
			RequestRate:    10,
			RequestBurst:   20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, .env, an optional YAML file
// and the environment, then validates it.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(DefaultDotEnvFiles); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates the environment from the given files. Missing files are
// skipped and variables already set in the environment are left alone.
func loadDotEnv(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"zabbix.provider_host_ids",
	"zabbix.provider_item_keys",
	"zabbix.hardware_group_ids",
	"zabbix.avaya_host_ids",
	"zabbix.avaya_item_keys",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// The database, JWT, Redis and HOST/PORT names match the deployment .env files.
var envMappings = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"database_host":              "database.host",
	"database_port":              "database.port",
	"database_name":              "database.name",
	"database_user":              "database.user",
	"database_password":          "database.password",
	"database_sslmode":           "database.sslmode",
	"database_max_conns":         "database.max_conns",
	"database_notify_channel":    "database.notify_channel",
	"database_provision_trigger": "database.provision_trigger",

	"jwt_secret_key":      "security.jwt_secret",
	"jwt_algorithm":       "security.jwt_algorithm",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"redis_enabled":    "redis.enabled",
	"redis_host":       "redis.host",
	"redis_port":       "redis.port",
	"redis_db":         "redis.db",
	"redis_password":   "redis.password",
	"redis_latest_ttl": "redis.latest_ttl",

	"nats_enabled":           "nats.enabled",
	"nats_url":               "nats.url",
	"nats_embedded":          "nats.embedded_server",
	"nats_store_dir":         "nats.store_dir",
	"nats_max_memory":        "nats.max_memory",
	"nats_max_store":         "nats.max_store",
	"nats_stream_name":       "nats.stream_name",
	"nats_pacs_subject":      "nats.pacs_subject",
	"nats_collector_subject": "nats.collector_subject",
	"nats_durable_prefix":    "nats.durable_prefix",
	"nats_ack_wait":          "nats.ack_wait",
	"nats_max_deliver":       "nats.max_deliver",

	"zabbix_enabled":            "zabbix.enabled",
	"zabbix_host":               "zabbix.url",
	"zabbix_auth_token":         "zabbix.auth_token",
	"zabbix_timeout":            "zabbix.timeout",
	"zabbix_max_retries":        "zabbix.max_retries",
	"zabbix_interval":           "zabbix.interval",
	"zabbix_provider_host_ids":  "zabbix.provider_host_ids",
	"zabbix_provider_item_keys": "zabbix.provider_item_keys",
	"zabbix_hardware_group_ids": "zabbix.hardware_group_ids",
	"zabbix_avaya_host_ids":     "zabbix.avaya_host_ids",
	"zabbix_avaya_item_keys":    "zabbix.avaya_item_keys",

	"reconnect_retries":    "reconnect.retries",
	"reconnect_delay":      "reconnect.delay",
	"reconnect_max_delay":  "reconnect.max_delay",
	"reconnect_multiplier": "reconnect.multiplier",
	"reconnect_jitter":     "reconnect.jitter",

	"websocket_send_timeout":     "websocket.send_timeout",
	"websocket_send_buffer":      "websocket.send_buffer",
	"websocket_max_message_size": "websocket.max_message_size",
	"websocket_request_rate":     "websocket.request_rate",
	"websocket_request_burst":    "websocket.request_burst",

	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are ignored.
//
//   - DATABASE_HOST -> database.host
//   - JWT_SECRET_KEY -> security.jwt_secret
//   - ZABBIX_HOST -> zabbix.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
