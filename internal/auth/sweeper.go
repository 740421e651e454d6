// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/holomush/portal/pkg/errutil"
)

// SweepRecorder receives the outcome of each sweep.
type SweepRecorder interface {
	RecordSweep(removed int64, err error)
}

// Sweeper removes expired sessions on a fixed interval.
type Sweeper struct {
	store    *SessionStore
	interval time.Duration
	recorder SweepRecorder
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. recorder and logger may be nil.
func NewSweeper(store *SessionStore, interval time.Duration, recorder SweepRecorder, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, interval: interval, recorder: recorder, logger: logger}
}

// Run sweeps every interval until ctx is cancelled. A non-positive
// interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.store.SweepExpired(ctx)
	if err != nil && ctx.Err() == nil {
		errutil.LogError(s.logger, "session sweep failed", err)
	}
	if s.recorder != nil {
		s.recorder.RecordSweep(n, err)
	}
}
