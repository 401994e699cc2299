/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package distcache provides the second-tier, Redis-backed analysis
// cache that sits behind the in-memory LRU described in §4.5/§9: a
// station-fleet-wide cache so a track analyzed once on one station's
// worker is not re-analyzed by every other station playing it.
//
// Grounded on internal/cache.Cache's circuit-breaker pattern (disable on
// Redis error, degrade silently to "no cache").
package distcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

const keyPrefix = "grimnir:automix:analysis:"

// DefaultTTL matches the rough lifetime of a station's rotation; re-analysis
// beyond this just means the LRU refills.
const DefaultTTL = 30 * 24 * time.Hour

// Config configures the Redis-backed analysis cache.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	DisableOnError bool
}

// Cache is the Redis-backed second tier of the analysis cache.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	cfg    Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis, disabling the cache (not failing startup) if the
// initial ping fails, matching internal/cache.New's degrade-not-crash
// posture.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	c := &Cache{client: client, logger: logger.With().Str("component", "automix.distcache").Logger(), cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis analysis cache unavailable, running without it")
		c.disabled = true
	}
	return c
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Cache) available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled
}

func (c *Cache) handleError(err error) {
	if err == nil || err == redis.Nil {
		return
	}
	c.logger.Debug().Err(err).Msg("analysis cache operation failed")
	if c.cfg.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
	}
}

// Get returns a cached analysis for songID, if present.
func (c *Cache) Get(ctx context.Context, songID string) (analyzer.TrackAnalysis, bool) {
	if !c.available() {
		return analyzer.TrackAnalysis{}, false
	}
	data, err := c.client.Get(ctx, keyPrefix+songID).Bytes()
	if err == redis.Nil {
		return analyzer.TrackAnalysis{}, false
	}
	if err != nil {
		c.handleError(err)
		return analyzer.TrackAnalysis{}, false
	}
	var a analyzer.TrackAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		c.logger.Debug().Err(err).Str("song_id", songID).Msg("failed to unmarshal cached analysis")
		return analyzer.TrackAnalysis{}, false
	}
	return a, true
}

// Set stores an analysis for songID with the configured TTL.
func (c *Cache) Set(ctx context.Context, songID string, a analyzer.TrackAnalysis) {
	if !c.available() {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		c.logger.Debug().Err(err).Msg("failed to marshal analysis for cache")
		return
	}
	if err := c.client.Set(ctx, keyPrefix+songID, data, c.cfg.TTL).Err(); err != nil {
		c.handleError(err)
	}
}
