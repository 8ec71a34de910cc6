// Package liquidity implements the pre-flight liquidity admission gate: a
// synchronous check that both venues hold enough depth before capital is
// committed to the first leg of a position.
package liquidity

import (
	"fmt"
	"time"
)

// CheckConfig controls the admission gate. It is owned by the caller,
// created once at startup, and never mutated by the gate.
type CheckConfig struct {
	// Enabled short-circuits Check to a trivial pass when false.
	Enabled bool

	// DepthLevels is how many price levels are aggregated per venue.
	DepthLevels int

	// SafetyFactor multiplies the required quantity before comparison, as
	// margin against depth eroding before the order lands. Must be >= 1.
	SafetyFactor float64

	// MaxSpreadBps is the quoted-spread threshold in basis points.
	// 0 disables the spread check entirely.
	MaxSpreadBps float64

	// SpreadHardFail makes an exceeded MaxSpreadBps fail the check instead
	// of only logging a warning.
	SpreadHardFail bool

	// CacheTTL is the snapshot reuse window. 0 disables caching.
	CacheTTL time.Duration

	// FallbackToL1 permits a single best-bid/ask fetch when the multi-level
	// depth fetch fails.
	FallbackToL1 bool

	// MinLiquidityThreshold is the absolute quantity floor below which a
	// venue is never considered liquid, regardless of safety-factor math.
	MinLiquidityThreshold float64

	// MaxStaleness rejects snapshots older than this. 0 disables the
	// freshness check.
	MaxStaleness time.Duration

	// CheckTimeout bounds the whole Check call. Zero means the default.
	CheckTimeout time.Duration
}

// defaultCheckTimeout bounds Check when the config does not.
const defaultCheckTimeout = 3 * time.Second

// DefaultCheckConfig returns the production defaults.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		Enabled:               true,
		DepthLevels:           5,
		SafetyFactor:          3.0,
		MaxSpreadBps:          50,
		SpreadHardFail:        false,
		CacheTTL:              5 * time.Second,
		FallbackToL1:          true,
		MinLiquidityThreshold: 0.01,
		MaxStaleness:          5 * time.Second,
		CheckTimeout:          defaultCheckTimeout,
	}
}

// Validate reports a configuration a caller should never pass.
func (c *CheckConfig) Validate() error {
	if c.DepthLevels < 1 {
		return fmt.Errorf("liquidity config: depth_levels must be >= 1, got %d", c.DepthLevels)
	}
	if c.SafetyFactor < 1.0 {
		return fmt.Errorf("liquidity config: safety_factor must be >= 1.0, got %g", c.SafetyFactor)
	}
	if c.MaxSpreadBps < 0 {
		return fmt.Errorf("liquidity config: max_spread_bps must not be negative, got %g", c.MaxSpreadBps)
	}
	if c.MinLiquidityThreshold < 0 {
		return fmt.Errorf("liquidity config: min_liquidity_threshold must not be negative, got %g", c.MinLiquidityThreshold)
	}
	if c.CacheTTL < 0 || c.MaxStaleness < 0 || c.CheckTimeout < 0 {
		return fmt.Errorf("liquidity config: durations must not be negative")
	}
	return nil
}

// checkTimeout returns the configured overall budget, defaulted.
func (c *CheckConfig) checkTimeout() time.Duration {
	if c.CheckTimeout > 0 {
		return c.CheckTimeout
	}
	return defaultCheckTimeout
}
