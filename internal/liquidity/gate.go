package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perpflow/perparbbot/internal/domain"
)

// Gate is the liquidity admission gate. It fetches depth from both venues
// concurrently (through the snapshot cache when warm), aggregates it on the
// consumed side, validates the books, applies the safety factor, and returns
// a structured pass/fail decision. Each call is independent; the shared
// snapshot cache is the only state.
type Gate struct {
	// providers in evaluation order; failure attribution is deterministic
	// because venues are always walked in this order.
	providers [2]domain.DepthProvider
	cache     domain.SnapshotCache
	logger    *slog.Logger
}

// NewGate creates a gate over exactly two venues. cache may be nil to
// disable snapshot reuse.
func NewGate(first, second domain.DepthProvider, cache domain.SnapshotCache, logger *slog.Logger) *Gate {
	return &Gate{
		providers: [2]domain.DepthProvider{first, second},
		cache:     cache,
		logger:    logger.With(slog.String("component", "liquidity_gate")),
	}
}

// Check decides whether both venues hold enough depth to admit a trade of
// requiredQty on side. Expected operational failures (venue down, rate
// limited, thin or bad books) resolve into a failed result with a
// venue-attributed reason; Check returns a Go error only for programmer
// errors (nil or invalid config) and caller cancellation.
func (g *Gate) Check(ctx context.Context, symbol string, side domain.Side, requiredQty float64, cfg *CheckConfig) (CheckResult, error) {
	if cfg == nil {
		return CheckResult{}, fmt.Errorf("liquidity: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return CheckResult{}, fmt.Errorf("liquidity: %w", err)
	}

	res := CheckResult{
		RequiredQty:     requiredQty,
		AvailableQty:    map[string]float64{},
		DepthLevelsUsed: map[string]int{},
		VenueErrors:     map[string]string{},
	}

	if !cfg.Enabled {
		res.Passed = true
		res.Reason = "disabled"
		return res, nil
	}
	if requiredQty <= 0 {
		res.Reason = "invalid required quantity (must be > 0)"
		return res, nil
	}

	checkID := uuid.NewString()
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, cfg.checkTimeout())
	defer cancel()

	var (
		snaps     [2]domain.OrderbookSnapshot
		fetchErrs [2]error
	)

	eg, fetchCtx := errgroup.WithContext(checkCtx)
	for i, p := range g.providers {
		i, p := i, p
		eg.Go(func() error {
			snaps[i], fetchErrs[i] = g.fetchVenue(fetchCtx, p, symbol, cfg)
			return nil
		})
	}
	_ = eg.Wait() // venue failures are captured, never propagated

	// Caller-level cancellation discards partial work: no coherent
	// decision was reached.
	if err := ctx.Err(); err != nil {
		return CheckResult{}, fmt.Errorf("liquidity: check cancelled: %w", domain.ErrContextDone)
	}

	for i, p := range g.providers {
		venue := p.Venue()
		if fetchErrs[i] != nil {
			res.AvailableQty[venue] = 0
			res.DepthLevelsUsed[venue] = 0
			res.VenueErrors[venue] = fetchErrs[i].Error()
			continue
		}
		qty, used := AggregateDepth(snaps[i], side, cfg.DepthLevels)
		res.AvailableQty[venue] = qty
		res.DepthLevelsUsed[venue] = used
	}

	// Spread is quoted off the first venue's book; a stable choice so the
	// metric is comparable across checks.
	res.SpreadBps = SpreadBps(snaps[0].BestBid(), snaps[0].BestAsk())

	g.decide(&res, snaps, fetchErrs, side, cfg)
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0

	g.logger.Debug("liquidity check finished",
		slog.String("check_id", checkID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Bool("passed", res.Passed),
		slog.String("reason", res.Reason),
		slog.Float64("spread_bps", res.SpreadBps),
		slog.Float64("latency_ms", res.LatencyMs),
	)

	return res, nil
}

// decide walks the failure conditions in a fixed order and records the first
// hit. Venue-attributed conditions always evaluate venues in provider order.
func (g *Gate) decide(res *CheckResult, snaps [2]domain.OrderbookSnapshot, fetchErrs [2]error, side domain.Side, cfg *CheckConfig) {
	for i, p := range g.providers {
		if fetchErrs[i] != nil {
			res.Reason = fmt.Sprintf("%s orderbook unavailable: %s", p.Venue(), fetchErrs[i].Error())
			return
		}
	}

	if ok, reason := Usable(snaps[0], snaps[1], time.Now(), cfg.MaxStaleness); !ok {
		res.Reason = reason
		return
	}

	for _, p := range g.providers {
		venue := p.Venue()
		if qty := res.AvailableQty[venue]; qty < cfg.MinLiquidityThreshold {
			res.Reason = fmt.Sprintf("%s liquidity below threshold (%s < %s)",
				venue, fmtQty(qty), fmtQty(cfg.MinLiquidityThreshold))
			return
		}
	}

	required := res.RequiredQty * cfg.SafetyFactor
	for _, p := range g.providers {
		venue := p.Venue()
		if qty := res.AvailableQty[venue]; qty < required {
			res.Reason = fmt.Sprintf("%s insufficient liquidity (need %s, have %s)",
				venue, fmtQty(required), fmtQty(qty))
			return
		}
	}

	if cfg.MaxSpreadBps > 0 && res.SpreadBps > cfg.MaxSpreadBps {
		if cfg.SpreadHardFail {
			res.Reason = fmt.Sprintf("spread too wide (%.1f bps > %.1f bps)",
				res.SpreadBps, cfg.MaxSpreadBps)
			return
		}
		g.logger.Warn("wide spread on admission check",
			slog.Float64("spread_bps", res.SpreadBps),
			slog.Float64("max_spread_bps", cfg.MaxSpreadBps),
		)
	}

	res.Passed = true
}

// fetchVenue is the cache-or-fetch path for one venue: a warm cache entry is
// served as-is, otherwise the provider is asked for depth and the result is
// stored for the reuse window. The optional L1 fallback covers venues whose
// multi-level endpoint fails while the top of book is still readable.
func (g *Gate) fetchVenue(ctx context.Context, p domain.DepthProvider, symbol string, cfg *CheckConfig) (domain.OrderbookSnapshot, error) {
	venue := p.Venue()

	if g.cache != nil && cfg.CacheTTL > 0 {
		snap, err := g.cache.Get(ctx, venue, symbol)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			g.logger.Warn("snapshot cache read failed",
				slog.String("venue", venue),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	snap, err := p.FetchDepth(ctx, symbol, cfg.DepthLevels)
	if err != nil && cfg.FallbackToL1 && ctx.Err() == nil {
		g.logger.Warn("depth fetch failed, falling back to L1",
			slog.String("venue", venue),
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		if l1, l1err := p.FetchDepth(ctx, symbol, 1); l1err == nil {
			snap, err = l1, nil
		}
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}

	if g.cache != nil && cfg.CacheTTL > 0 {
		if err := g.cache.Set(ctx, snap, cfg.CacheTTL); err != nil {
			g.logger.Warn("snapshot cache write failed",
				slog.String("venue", venue),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}
