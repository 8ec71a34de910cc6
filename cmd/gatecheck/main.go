// Command gatecheck runs one liquidity admission check against both venues
// and prints the decision. It is the operational harness for the gate the
// executor consults before opening a position: useful for verifying venue
// connectivity, tuning gate parameters, and debugging rejections.
//
// Exit code 0 means the check passed, 1 means it failed or errored.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perpflow/perparbbot/internal/cache/memory"
	cacheredis "github.com/perpflow/perparbbot/internal/cache/redis"
	"github.com/perpflow/perparbbot/internal/config"
	"github.com/perpflow/perparbbot/internal/domain"
	"github.com/perpflow/perparbbot/internal/liquidity"
	"github.com/perpflow/perparbbot/internal/platform/lighter"
	"github.com/perpflow/perparbbot/internal/platform/retry"
	"github.com/perpflow/perparbbot/internal/platform/x10"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	symbol := flag.String("symbol", "BTC-PERP", "symbol to check")
	sideArg := flag.String("side", "BUY", "side of the first leg (BUY or SELL)")
	qty := flag.Float64("qty", 0, "required quantity")
	useStream := flag.Bool("stream", false, "subscribe to the X10 orderbook stream before checking")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration and input.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	side, err := domain.ParseSide(*sideArg)
	if err != nil {
		logger.Error("invalid side", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *symbol, side, *qty, *useStream); err != nil {
		logger.Error("gatecheck failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run wires the cache, venue adapters, and gate, then executes one check.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, symbol string, side domain.Side, qty float64, useStream bool) error {
	var (
		cache   domain.SnapshotCache
		limiter domain.RateLimiter
	)

	if cfg.Redis.Addr != "" {
		rc, err := cacheredis.New(ctx, cacheredis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = cacheredis.NewSnapshotCache(rc)
		limiter = cacheredis.NewRateLimiter(rc)
		logger.Info("using redis snapshot cache", slog.String("addr", cfg.Redis.Addr))
	} else {
		cache = memory.NewSnapshotCache()
		logger.Info("using in-process snapshot cache")
	}

	lighterClient := lighter.NewClient(cfg.Lighter.BaseURL)
	if cfg.Lighter.AuthToken != "" {
		lighterClient.SetAuthToken(cfg.Lighter.AuthToken)
	}
	lighterClient.SetRetryConfig(retryConfig(cfg.Lighter.RetryAttempts, cfg.Lighter.RetryBaseMs))

	x10Client := x10.NewClient(cfg.X10.BaseURL, cfg.X10.ApiKey)
	x10Client.SetMarketMap(cfg.X10.MarketMap)
	x10Client.SetRetryConfig(retryConfig(cfg.X10.RetryAttempts, cfg.X10.RetryBaseMs))

	if limiter != nil {
		lighterClient.SetRateLimiter(limiter)
		x10Client.SetRateLimiter(limiter)
	}

	if useStream && cfg.X10.WsURL != "" {
		ws := x10.NewWSClient(cfg.X10.WsURL)
		if err := ws.Connect(ctx); err != nil {
			logger.Warn("x10 stream unavailable, falling back to REST",
				slog.String("error", err.Error()))
		} else {
			defer ws.Close()
			if err := ws.Subscribe(ctx, []string{x10Client.ResolveMarket(symbol)}); err != nil {
				logger.Warn("x10 stream subscribe failed, falling back to REST",
					slog.String("error", err.Error()))
			} else {
				x10Client.SetStream(ws)
				logger.Info("subscribed to x10 orderbook stream", slog.String("ws_url", cfg.X10.WsURL))
			}
		}
	}

	gate := liquidity.NewGate(lighterClient, x10Client, cache, logger)

	gateCfg := liquidity.CheckConfig{
		Enabled:               cfg.Liquidity.Enabled,
		DepthLevels:           cfg.Liquidity.DepthLevels,
		SafetyFactor:          cfg.Liquidity.SafetyFactor,
		MaxSpreadBps:          cfg.Liquidity.MaxSpreadBps,
		SpreadHardFail:        cfg.Liquidity.SpreadHardFail,
		CacheTTL:              cfg.Liquidity.CacheTTL(),
		FallbackToL1:          cfg.Liquidity.FallbackToL1,
		MinLiquidityThreshold: cfg.Liquidity.MinLiquidityThreshold,
		MaxStaleness:          cfg.Liquidity.MaxStaleness(),
		CheckTimeout:          cfg.Liquidity.CheckTimeout(),
	}

	res, err := gate.Check(ctx, symbol, side, qty, &gateCfg)
	if err != nil {
		return err
	}

	attrs := []any{
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Bool("passed", res.Passed),
		slog.String("reason", res.Reason),
		slog.Float64("required_qty", res.RequiredQty),
		slog.Any("available_qty", res.AvailableQty),
		slog.Any("depth_levels_used", res.DepthLevelsUsed),
		slog.Float64("spread_bps", res.SpreadBps),
		slog.Float64("latency_ms", res.LatencyMs),
	}
	if len(res.VenueErrors) > 0 {
		attrs = append(attrs, slog.Any("venue_errors", res.VenueErrors))
	}

	if !res.Passed {
		logger.Warn("liquidity check failed", attrs...)
		os.Exit(1)
	}
	logger.Info("liquidity check passed", attrs...)
	return nil
}

func retryConfig(attempts, baseMs int) retry.Config {
	return retry.Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Duration(baseMs) * time.Millisecond,
	}
}
