// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements auth.SessionRepository on Redis.
//
// Each session is a JSON value under <prefix>session:<token>. The key TTL
// outlives the session expiry by a retention window so that an expired
// token is still reported as expired rather than unknown. A sorted set
// <prefix>sessions:expiry scores tokens by expiry for sweeping.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/store"
)

// DefaultPrefix namespaces every key the repository writes.
const DefaultPrefix = "portal:"

// DefaultRetention is how long an expired session stays readable.
const DefaultRetention = time.Hour

type sessionRecord struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepository implements auth.SessionRepository using Redis.
type SessionRepository struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// Option configures a SessionRepository.
type Option func(*SessionRepository)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *SessionRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRetention sets how long expired sessions remain readable.
func WithRetention(d time.Duration) Option {
	return func(r *SessionRepository) {
		if d >= 0 {
			r.retention = d
		}
	}
}

// NewSessionRepository creates a SessionRepository over client.
func NewSessionRepository(client goredis.UniversalClient, opts ...Option) *SessionRepository {
	r := &SessionRepository{
		client:    client,
		prefix:    DefaultPrefix,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRepository) sessionKey(token string) string {
	return r.prefix + "session:" + token
}

func (r *SessionRepository) indexKey() string {
	return r.prefix + "sessions:expiry"
}

// ttl returns the key lifetime for a session expiring at expiresAt.
func (r *SessionRepository) ttl(expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(r.now()) + r.retention
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Create stores a new session. An existing token is ErrDuplicate.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	payload, err := json.Marshal(sessionRecord{
		Token:     session.Token,
		Username:  session.Username,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "encode session").Wrap(err)
	}

	created, err := r.client.SetNX(ctx, r.sessionKey(session.Token), payload, r.ttl(session.ExpiresAt)).Result()
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "set session").
			With("username", session.Username).
			Wrap(err)
	}
	if !created {
		return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicate)
	}

	err = r.client.ZAdd(ctx, r.indexKey(), goredis.Z{
		Score:  float64(session.ExpiresAt.UnixMilli()),
		Member: session.Token,
	}).Err()
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "index session").
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(token)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "get session").Wrap(err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_CORRUPT").With("operation", "decode session").Wrap(err)
	}
	return &auth.Session{
		Token:     rec.Token,
		Username:  rec.Username,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// DeleteByToken removes a session.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	var del *goredis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, r.sessionKey(token))
		pipe.ZRem(ctx, r.indexKey(), token)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session").Wrap(err)
	}
	if del.Val() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is before now and
// returns how many index entries were cleared.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	maxScore := "(" + strconv.FormatInt(now.UnixMilli(), 10)
	tokens, err := r.client.ZRangeByScore(ctx, r.indexKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").With("operation", "scan expiry index").Wrap(err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, len(tokens))
	members := make([]any, len(tokens))
	for i, t := range tokens {
		keys[i] = r.sessionKey(t)
		members[i] = t
	}

	var removed *goredis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		removed = pipe.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}
	return removed.Val(), nil
}

// Connect parses url, opens a client and waits until the server answers
// a ping.
func Connect(ctx context.Context, url string, policy store.RetryPolicy, logger *slog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").With("operation", "parse url").Wrap(err)
	}
	client := goredis.NewClient(opts)

	err = store.Retry(ctx, policy, logger, "redis", func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return client, nil
}
