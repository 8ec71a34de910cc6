// Package retry implements the bounded retry loop shared by the venue
// adapters. It consumes the error classification from internal/domain:
// Retryable and RateLimited failures are retried with exponentially
// increasing delay, Fatal failures abort immediately.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/perpflow/perparbbot/internal/domain"
)

// Config bounds a retry loop.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt; it doubles
	// after each further failure.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 250 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	return c
}

// Do runs op until it succeeds, exhausts cfg.MaxAttempts, hits a Fatal
// error, or ctx is done. The last error is returned unwrapped so callers
// keep the venue classification.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry: %w", err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if domain.ClassOf(lastErr) == domain.ClassFatal {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		if err := sleep(ctx, delayFor(cfg, attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// delayFor computes the backoff before the attempt following attempt
// (0-based): base * 2^attempt, capped at MaxDelay.
func delayFor(cfg Config, attempt int) time.Duration {
	d := cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
