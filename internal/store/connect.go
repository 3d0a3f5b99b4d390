// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBackoffBase = 500 * time.Millisecond
	maxBackoff         = 10 * time.Second
)

type connectConfig struct {
	backoffBase time.Duration
	logger      *slog.Logger
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithBackoffBase sets the first retry delay. Later delays double up to 10s.
func WithBackoffBase(d time.Duration) ConnectOption {
	return func(c *connectConfig) {
		c.backoffBase = d
	}
}

// WithConnectLogger sets the logger for retry attempts.
func WithConnectLogger(l *slog.Logger) ConnectOption {
	return func(c *connectConfig) {
		c.logger = l
	}
}

// Connect opens a pool and pings the database, retrying with exponential
// backoff up to attempts times. A URL that cannot be parsed fails at once.
func Connect(ctx context.Context, databaseURL string, attempts int, opts ...ConnectOption) (*pgxpool.Pool, error) {
	cfg := connectConfig{backoffBase: defaultBackoffBase, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if attempts < 1 {
		attempts = 1
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1),
		retry.WithCappedDuration(maxBackoff, retry.NewExponential(cfg.backoffBase)))

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("attempt", attempt).Wrap(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			cfg.logger.WarnContext(ctx, "database not reachable, retrying",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err)
			return retry.RetryableError(oops.Code("DB_CONNECT_FAILED").With("attempt", attempt).Wrap(err))
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}
