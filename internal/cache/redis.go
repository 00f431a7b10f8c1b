// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

const redisStoreName = "redis"

// RedisStore keeps latest envelopes as plain string keys.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// OpenRedis connects using cfg and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}

	logging.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Redis latest-value store ready")
	return NewRedisStore(client, cfg.LatestTTL), nil
}

// SetLatest implements LatestStore.
func (r *RedisStore) SetLatest(ctx context.Context, event events.Event, envelope []byte) error {
	if err := r.client.Set(ctx, events.LatestKey(event), envelope, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", event, err)
	}
	return nil
}

// GetLatest implements LatestStore.
func (r *RedisStore) GetLatest(ctx context.Context, event events.Event) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, events.LatestKey(event)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(redisStoreName, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", event, err)
	}
	metrics.RecordCacheLookup(redisStoreName, true)
	return data, true, nil
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
