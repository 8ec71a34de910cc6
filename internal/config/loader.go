package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PERPARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PERPARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Lighter ──
	setStr(&cfg.Lighter.BaseURL, "PERPARB_LIGHTER_BASE_URL")
	setStr(&cfg.Lighter.AuthToken, "PERPARB_LIGHTER_AUTH_TOKEN")
	setInt(&cfg.Lighter.RetryAttempts, "PERPARB_LIGHTER_RETRY_ATTEMPTS")

	// ── X10 ──
	setStr(&cfg.X10.BaseURL, "PERPARB_X10_BASE_URL")
	setStr(&cfg.X10.WsURL, "PERPARB_X10_WS_URL")
	setStr(&cfg.X10.ApiKey, "PERPARB_X10_API_KEY")
	setInt(&cfg.X10.RetryAttempts, "PERPARB_X10_RETRY_ATTEMPTS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PERPARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PERPARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PERPARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PERPARB_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "PERPARB_REDIS_TLS_ENABLED")

	// ── Liquidity gate ──
	setBool(&cfg.Liquidity.Enabled, "PERPARB_LIQUIDITY_ENABLED")
	setInt(&cfg.Liquidity.DepthLevels, "PERPARB_LIQUIDITY_DEPTH_LEVELS")
	setFloat(&cfg.Liquidity.SafetyFactor, "PERPARB_LIQUIDITY_SAFETY_FACTOR")
	setFloat(&cfg.Liquidity.MaxSpreadBps, "PERPARB_LIQUIDITY_MAX_SPREAD_BPS")
	setBool(&cfg.Liquidity.SpreadHardFail, "PERPARB_LIQUIDITY_SPREAD_HARD_FAIL")
	setFloat(&cfg.Liquidity.CacheTTLSeconds, "PERPARB_LIQUIDITY_CACHE_TTL_SECONDS")
	setBool(&cfg.Liquidity.FallbackToL1, "PERPARB_LIQUIDITY_FALLBACK_TO_L1")
	setFloat(&cfg.Liquidity.MinLiquidityThreshold, "PERPARB_LIQUIDITY_MIN_THRESHOLD")
	setFloat(&cfg.Liquidity.MaxStalenessSeconds, "PERPARB_LIQUIDITY_MAX_STALENESS_SECONDS")
	setInt(&cfg.Liquidity.CheckTimeoutMs, "PERPARB_LIQUIDITY_CHECK_TIMEOUT_MS")

	// ── Misc ──
	setStr(&cfg.LogLevel, "PERPARB_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
