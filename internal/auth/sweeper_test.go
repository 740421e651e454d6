// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/auth/mocks"
)

type sweepCounter struct {
	mu      sync.Mutex
	removed int64
	calls   int
}

func (c *sweepCounter) RecordSweep(removed int64, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed += removed
	c.calls++
}

func (c *sweepCounter) snapshot() (int64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed, c.calls
}

func TestSweeper_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := mocks.NewMockSessionRepository(t)
	store, err := auth.NewSessionStore(repo)
	require.NoError(t, err)
	repo.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(2), nil)

	counter := &sweepCounter{}
	sweeper := auth.NewSweeper(store, 5*time.Millisecond, counter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, calls := counter.snapshot()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	removed, calls := counter.snapshot()
	assert.Equal(t, int64(2*calls), removed)
}

func TestSweeper_DisabledInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	store, err := auth.NewSessionStore(mocks.NewMockSessionRepository(t))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		auth.NewSweeper(store, 0, nil, nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper with zero interval should return immediately")
	}
}
