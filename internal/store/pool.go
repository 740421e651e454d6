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

// RetryPolicy bounds how long startup connections are retried.
type RetryPolicy struct {
	Attempts  uint64
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy retries for roughly half a minute.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  8,
	BaseDelay: 250 * time.Millisecond,
	MaxDelay:  5 * time.Second,
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryPolicy.BaseDelay
	}
	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(p.Attempts, b)
}

// Retry runs fn until it succeeds, returns a permanent error, or the
// policy is exhausted. fn marks transient failures with retry.RetryableError.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, what string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	attempt := 0
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil {
			logger.Warn("connection attempt failed", "target", what, "attempt", attempt, "error", err)
		}
		return err
	})
}

// Connect opens a pgx pool for dsn and waits until the server answers a
// ping. Malformed DSNs fail immediately.
func Connect(ctx context.Context, dsn string, policy RetryPolicy, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse dsn").Wrap(err)
	}

	var pool *pgxpool.Pool
	err = Retry(ctx, policy, logger, "postgres", func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("database", cfg.ConnConfig.Database).
			Wrap(err)
	}
	return pool, nil
}
