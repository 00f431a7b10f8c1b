// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minJWTSecretLength matches the HS256 key size.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateZabbix(); err != nil {
		return err
	}
	if err := c.validateReconnect(); err != nil {
		return err
	}
	if err := c.validateWebSocket(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}
	if c.Database.NotifyChannel == "" {
		return fmt.Errorf("DATABASE_NOTIFY_CHANNEL must not be empty")
	}
	if strings.ContainsAny(c.Database.NotifyChannel, " ;\"'") {
		return fmt.Errorf("DATABASE_NOTIFY_CHANNEL %q is not a valid identifier", c.Database.NotifyChannel)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET_KEY must be at least %d characters", minJWTSecretLength)
	}
	switch c.Security.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM %q is not supported (HS256, HS384, HS512)", c.Security.JWTAlgorithm)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("NATS_STREAM_NAME must not be empty")
	}
	if strings.ContainsAny(c.NATS.StreamName, ".*> ") {
		return fmt.Errorf("NATS_STREAM_NAME %q must not contain '.', '*', '>' or spaces", c.NATS.StreamName)
	}
	if c.NATS.PacsSubject == "" || c.NATS.CollectorSubject == "" {
		return fmt.Errorf("NATS_PACS_SUBJECT and NATS_COLLECTOR_SUBJECT are required")
	}
	if c.NATS.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1")
	}
	return nil
}

func (c *Config) validateZabbix() error {
	if !c.Zabbix.Enabled {
		return nil
	}
	u, err := url.Parse(c.Zabbix.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ZABBIX_HOST must be an absolute URL, got %q", c.Zabbix.URL)
	}
	if c.Zabbix.AuthToken == "" {
		return fmt.Errorf("ZABBIX_AUTH_TOKEN is required when ZABBIX_ENABLED=true")
	}
	if c.Zabbix.Interval <= 0 {
		return fmt.Errorf("ZABBIX_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateReconnect() error {
	r := c.Reconnect
	if r.Retries < 1 {
		return fmt.Errorf("RECONNECT_RETRIES must be at least 1")
	}
	if r.Delay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be positive")
	}
	if r.MaxDelay < r.Delay {
		return fmt.Errorf("RECONNECT_MAX_DELAY (%s) must not be below RECONNECT_DELAY (%s)", r.MaxDelay, r.Delay)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("RECONNECT_MULTIPLIER must be >= 1")
	}
	if r.Jitter < 0 || r.Jitter >= 1 {
		return fmt.Errorf("RECONNECT_JITTER must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	w := c.WebSocket
	if w.SendTimeout <= 0 {
		return fmt.Errorf("WEBSOCKET_SEND_TIMEOUT must be positive")
	}
	if w.SendBuffer < 1 {
		return fmt.Errorf("WEBSOCKET_SEND_BUFFER must be at least 1")
	}
	if w.MaxMessageSize < 1024 {
		return fmt.Errorf("WEBSOCKET_MAX_MESSAGE_SIZE must be at least 1024 bytes")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not valid", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
