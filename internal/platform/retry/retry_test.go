package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpflow/perparbbot/internal/domain"
)

func fastCfg() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.NewVenueError("X10", domain.ClassRetryable, errors.New("502"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := domain.NewVenueError("Lighter", domain.ClassRateLimited, domain.ErrRateLimited)
	err := Do(context.Background(), fastCfg(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, domain.ClassRateLimited, domain.ClassOf(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestDoAbortsOnFatal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastCfg(), func(ctx context.Context) error {
		calls++
		return domain.NewVenueError("X10", domain.ClassFatal, errors.New("unknown symbol"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		cancel()
		return domain.NewVenueError("X10", domain.ClassRetryable, errors.New("boom"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelayForDoublesAndCaps(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond}
	assert.Equal(t, time.Millisecond, delayFor(cfg, 0))
	assert.Equal(t, 2*time.Millisecond, delayFor(cfg, 1))
	assert.Equal(t, 3*time.Millisecond, delayFor(cfg, 2))
	assert.Equal(t, 3*time.Millisecond, delayFor(cfg, 3))
}
