// Package config defines the top-level configuration for the perp arbitrage
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PERPARB_* environment
// variables.
type Config struct {
	Lighter   LighterConfig   `toml:"lighter"`
	X10       X10Config       `toml:"x10"`
	Redis     RedisConfig     `toml:"redis"`
	Liquidity LiquidityConfig `toml:"liquidity"`
	LogLevel  string          `toml:"log_level"`
}

// LighterConfig holds Lighter API endpoints and credentials.
type LighterConfig struct {
	BaseURL       string `toml:"base_url"`
	AuthToken     string `toml:"auth_token"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryBaseMs   int    `toml:"retry_base_ms"`
}

// X10Config holds X10 API endpoints and credentials.
type X10Config struct {
	BaseURL       string            `toml:"base_url"`
	WsURL         string            `toml:"ws_url"`
	ApiKey        string            `toml:"api_key"`
	RetryAttempts int               `toml:"retry_attempts"`
	RetryBaseMs   int               `toml:"retry_base_ms"`
	MarketMap     map[string]string `toml:"market_map"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables
// Redis entirely; the bot then runs with in-process caching only.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// LiquidityConfig holds the admission gate parameters.
type LiquidityConfig struct {
	Enabled               bool    `toml:"enabled"`
	DepthLevels           int     `toml:"depth_levels"`
	SafetyFactor          float64 `toml:"safety_factor"`
	MaxSpreadBps          float64 `toml:"max_spread_bps"`
	SpreadHardFail        bool    `toml:"spread_hard_fail"`
	CacheTTLSeconds       float64 `toml:"cache_ttl_seconds"`
	FallbackToL1          bool    `toml:"fallback_to_l1"`
	MinLiquidityThreshold float64 `toml:"min_liquidity_threshold"`
	MaxStalenessSeconds   float64 `toml:"max_staleness_seconds"`
	CheckTimeoutMs        int     `toml:"check_timeout_ms"`
}

// CacheTTL returns the snapshot reuse window as a duration.
func (l LiquidityConfig) CacheTTL() time.Duration {
	return time.Duration(l.CacheTTLSeconds * float64(time.Second))
}

// MaxStaleness returns the freshness window as a duration.
func (l LiquidityConfig) MaxStaleness() time.Duration {
	return time.Duration(l.MaxStalenessSeconds * float64(time.Second))
}

// CheckTimeout returns the overall check budget as a duration.
func (l LiquidityConfig) CheckTimeout() time.Duration {
	return time.Duration(l.CheckTimeoutMs) * time.Millisecond
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration, matching the production
// deployment shape: both venues on mainnet, gate enabled with a 3x safety
// factor.
func Defaults() Config {
	return Config{
		Lighter: LighterConfig{
			BaseURL:       "https://mainnet.zklighter.elliot.ai/api/v1",
			RetryAttempts: 3,
			RetryBaseMs:   250,
		},
		X10: X10Config{
			BaseURL:       "https://api.extended.exchange/api/v1",
			WsURL:         "wss://api.extended.exchange/stream.extended.exchange/v1/orderbooks",
			RetryAttempts: 3,
			RetryBaseMs:   250,
			MarketMap:     map[string]string{},
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Liquidity: LiquidityConfig{
			Enabled:               true,
			DepthLevels:           5,
			SafetyFactor:          3.0,
			MaxSpreadBps:          50,
			SpreadHardFail:        false,
			CacheTTLSeconds:       5.0,
			FallbackToL1:          true,
			MinLiquidityThreshold: 0.01,
			MaxStalenessSeconds:   5.0,
			CheckTimeoutMs:        3000,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values that cannot work. It returns
// a single error aggregating every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Lighter.BaseURL == "" {
		errs = append(errs, "lighter: base_url must not be empty")
	}
	if c.X10.BaseURL == "" {
		errs = append(errs, "x10: base_url must not be empty")
	}

	if c.Liquidity.DepthLevels < 1 {
		errs = append(errs, fmt.Sprintf("liquidity: depth_levels must be >= 1, got %d", c.Liquidity.DepthLevels))
	}
	if c.Liquidity.SafetyFactor < 1.0 {
		errs = append(errs, fmt.Sprintf("liquidity: safety_factor must be >= 1.0, got %g", c.Liquidity.SafetyFactor))
	}
	if c.Liquidity.MaxSpreadBps < 0 {
		errs = append(errs, "liquidity: max_spread_bps must not be negative")
	}
	if c.Liquidity.MinLiquidityThreshold < 0 {
		errs = append(errs, "liquidity: min_liquidity_threshold must not be negative")
	}
	if c.Liquidity.CacheTTLSeconds < 0 || c.Liquidity.MaxStalenessSeconds < 0 || c.Liquidity.CheckTimeoutMs < 0 {
		errs = append(errs, "liquidity: durations must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
