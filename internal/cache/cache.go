// Package cache memoizes analytics results in Redis. Results are pure
// functions of their inputs, so the cache key carries everything that can
// change an answer: user, date range and analysis parameters. Entries are
// never shared across users.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/migralog/backend/internal/config"
)

// Client wraps a Redis connection for analytics memoization
type Client struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache client, or nil when no Redis address is configured.
// A nil *Client is a valid no-op cache for callers.
func New(cfg config.RedisConfig, logger *zap.Logger) *Client {
	if cfg.Address == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{
		rdb:    rdb,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

// Key builds a cache key scoped to one user, window and parameter set
func Key(kind, userID string, from, to *time.Time, params config.AnalyticsConfig) string {
	fromStr, toStr := "-", "-"
	if from != nil {
		fromStr = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		toStr = to.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("analytics:%s:%s:%s:%s:n%d:m%d:w%d",
		kind, userID, fromStr, toStr,
		params.TopN, params.TrendMonths, params.OveruseWindowDays,
	)
}

// Get loads a cached result into dest. It reports whether the key was
// present; transport errors surface so the caller can decide to log and
// recompute.
func (c *Client) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Set stores a result under key with the configured TTL
func (c *Client) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
