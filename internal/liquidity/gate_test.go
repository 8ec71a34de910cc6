package liquidity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpflow/perparbbot/internal/cache/memory"
	"github.com/perpflow/perparbbot/internal/domain"
)

// stubProvider is a scriptable DepthProvider for gate tests.
type stubProvider struct {
	venue string
	snap  domain.OrderbookSnapshot
	err   error
	delay time.Duration

	// l1Snap, when set, is returned for levels == 1 even if err is set,
	// exercising the L1 fallback path.
	l1Snap *domain.OrderbookSnapshot

	calls atomic.Int32
}

func (s *stubProvider) Venue() string { return s.venue }

func (s *stubProvider) FetchDepth(ctx context.Context, symbol string, levels int) (domain.OrderbookSnapshot, error) {
	s.calls.Add(1)

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.OrderbookSnapshot{}, domain.NewVenueError(s.venue, domain.ClassFatal, ctx.Err())
		case <-time.After(s.delay):
		}
	}

	if levels == 1 && s.l1Snap != nil {
		return *s.l1Snap, nil
	}
	if s.err != nil {
		return domain.OrderbookSnapshot{}, s.err
	}

	snap := s.snap
	snap.Venue = s.venue
	snap.Symbol = symbol
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	return snap, nil
}

// book builds a healthy two-sided snapshot whose requested side carries
// perLevel quantity on each of n levels.
func book(bid, ask float64, n int, perLevel float64) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{}
	for i := 0; i < n; i++ {
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: bid - float64(i), Qty: perLevel})
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: ask + float64(i), Qty: perLevel})
	}
	return snap
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *CheckConfig {
	cfg := DefaultCheckConfig()
	cfg.CacheTTL = 0 // most tests want every check to hit the provider
	cfg.MaxStaleness = 0
	cfg.FallbackToL1 = false
	cfg.CheckTimeout = 2 * time.Second
	return &cfg
}

func TestCheckScenarioBothVenuesDeep(t *testing.T) {
	// BUY 0.03 with safety factor 3 needs 0.09 on the ask side of both
	// books; 5 levels of 3.0 on Lighter and 2.4 on X10 clear it easily.
	lighter := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0)}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 2.4)}
	gate := NewGate(lighter, x10, nil, testLogger())

	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, testConfig())
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 15.0, res.AvailableQty["Lighter"])
	assert.Equal(t, 12.0, res.AvailableQty["X10"])
	assert.Equal(t, 5, res.DepthLevelsUsed["Lighter"])
	assert.Equal(t, 5, res.DepthLevelsUsed["X10"])
	assert.InDelta(t, 2.0, res.SpreadBps, 1e-9)
	assert.GreaterOrEqual(t, res.LatencyMs, 0.0)
}

func TestCheckInsufficientLiquidityNamesVenueAndShortfall(t *testing.T) {
	// SELL 1.0 with safety factor 3 needs 3.0 on the bid side; X10 only
	// has 1.5.
	lighter := &stubProvider{venue: "Lighter", snap: book(2999, 3001, 5, 2.0)}
	x10 := &stubProvider{venue: "X10", snap: book(2999, 3001, 3, 0.5)}
	gate := NewGate(lighter, x10, nil, testLogger())

	res, err := gate.Check(context.Background(), "ETH-PERP", domain.SideSell, 1.0, testConfig())
	require.NoError(t, err)

	assert.False(t, res.Passed)
	assert.Equal(t, "X10 insufficient liquidity (need 3.0, have 1.5)", res.Reason)
	assert.Equal(t, 1.5, res.AvailableQty["X10"])
	assert.Equal(t, 3, res.DepthLevelsUsed["X10"])
}

func TestCheckFirstVenueAttributedWhenBothFail(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter", snap: book(2999, 3001, 2, 0.2)}
	x10 := &stubProvider{venue: "X10", snap: book(2999, 3001, 2, 0.3)}
	gate := NewGate(lighter, x10, nil, testLogger())

	res, err := gate.Check(context.Background(), "ETH-PERP", domain.SideSell, 1.0, testConfig())
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "Lighter insufficient liquidity")
}

func TestCheckDisabledSkipsNetwork(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter"}
	x10 := &stubProvider{venue: "X10"}
	gate := NewGate(lighter, x10, nil, testLogger())

	cfg := testConfig()
	cfg.Enabled = false

	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 1.0, cfg)
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, "disabled", res.Reason)
	assert.Equal(t, 0.0, res.LatencyMs)
	assert.Equal(t, int32(0), lighter.calls.Load())
	assert.Equal(t, int32(0), x10.calls.Load())
}

func TestCheckInvalidQuantityFailsWithoutNetwork(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter"}
	x10 := &stubProvider{venue: "X10"}
	gate := NewGate(lighter, x10, nil, testLogger())

	for _, qty := range []float64{0, -1} {
		res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, qty, testConfig())
		require.NoError(t, err)
		assert.False(t, res.Passed)
		assert.Equal(t, "invalid required quantity (must be > 0)", res.Reason)
	}
	assert.Equal(t, int32(0), lighter.calls.Load())
	assert.Equal(t, int32(0), x10.calls.Load())
}

func TestCheckNilOrInvalidConfigIsAnError(t *testing.T) {
	gate := NewGate(&stubProvider{venue: "Lighter"}, &stubProvider{venue: "X10"}, nil, testLogger())

	_, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 1.0, nil)
	require.Error(t, err)

	bad := testConfig()
	bad.SafetyFactor = 0.5
	_, err = gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 1.0, bad)
	require.Error(t, err)
}

func TestCheckVenueFailureBecomesZeroQty(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0)}
	x10 := &stubProvider{
		venue: "X10",
		err:   domain.NewVenueError("X10", domain.ClassRateLimited, domain.ErrRateLimited),
	}
	gate := NewGate(lighter, x10, nil, testLogger())

	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, testConfig())
	require.NoError(t, err, "venue failures must not surface as errors")

	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "X10 orderbook unavailable")
	assert.Equal(t, 0.0, res.AvailableQty["X10"])
	assert.Equal(t, 15.0, res.AvailableQty["Lighter"])
	assert.Contains(t, res.VenueErrors["X10"], "rate limited")
}

func TestCheckSlowVenueBoundedByTimeout(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0)}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 3.0), delay: 10 * time.Second}
	gate := NewGate(lighter, x10, nil, testLogger())

	cfg := testConfig()
	cfg.CheckTimeout = 100 * time.Millisecond

	start := time.Now()
	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 0.0, res.AvailableQty["X10"])
	assert.Less(t, elapsed, time.Second, "check must return within the overall budget")
}

func TestCheckCallerCancellationReturnsError(t *testing.T) {
	slow := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0), delay: 5 * time.Second}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 3.0)}
	gate := NewGate(slow, x10, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := gate.Check(ctx, "BTC-PERP", domain.SideBuy, 0.03, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContextDone)
}

func TestCheckWarmCacheReusesFetch(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0)}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 2.4)}
	gate := NewGate(lighter, x10, memory.NewSnapshotCache(), testLogger())

	cfg := testConfig()
	cfg.CacheTTL = time.Minute

	first, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)
	second, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)

	// One underlying fetch per venue; decisions identical.
	assert.Equal(t, int32(1), lighter.calls.Load())
	assert.Equal(t, int32(1), x10.calls.Load())
	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.AvailableQty, second.AvailableQty)
	assert.Equal(t, first.DepthLevelsUsed, second.DepthLevelsUsed)
	assert.Equal(t, first.SpreadBps, second.SpreadBps)
}

func TestCheckFallbackToL1(t *testing.T) {
	l1 := book(9999, 10001, 1, 0.5)
	l1.Venue = "Lighter"
	l1.Symbol = "BTC-PERP"
	l1.FetchedAt = time.Now()

	lighter := &stubProvider{
		venue:  "Lighter",
		err:    domain.NewVenueError("Lighter", domain.ClassRetryable, errors.New("depth endpoint down")),
		l1Snap: &l1,
	}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 3.0)}
	gate := NewGate(lighter, x10, nil, testLogger())

	cfg := testConfig()
	cfg.FallbackToL1 = true

	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)

	// The L1 read (0.5) still clears the 0.09 requirement.
	assert.True(t, res.Passed)
	assert.Equal(t, 0.5, res.AvailableQty["Lighter"])
	assert.Equal(t, 1, res.DepthLevelsUsed["Lighter"])
	assert.Equal(t, int32(2), lighter.calls.Load(), "depth attempt then L1 attempt")
}

func TestCheckSpreadPolicy(t *testing.T) {
	// ~199 bps quoted spread on the first venue.
	wide := book(9900, 10100, 5, 3.0)
	lighter := &stubProvider{venue: "Lighter", snap: wide}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 3.0)}
	gate := NewGate(lighter, x10, nil, testLogger())

	cfg := testConfig()
	cfg.MaxSpreadBps = 50

	// Advisory mode: warn but pass.
	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Greater(t, res.SpreadBps, 50.0)

	// Hard-fail mode: same data now rejects.
	cfg.SpreadHardFail = true
	res, err = gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "spread too wide")

	// Disabled spread check ignores the width entirely.
	cfg.MaxSpreadBps = 0
	res, err = gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestCheckMinLiquidityFloor(t *testing.T) {
	lighter := &stubProvider{venue: "Lighter", snap: book(9999, 10001, 5, 3.0)}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 1, 0.004)}
	gate := NewGate(lighter, x10, nil, testLogger())

	// requiredQty*safetyFactor is tiny, but the absolute floor still
	// rejects the 0.004 book.
	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.001, testConfig())
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "X10 liquidity below threshold")
}

func TestCheckStaleSnapshotRejected(t *testing.T) {
	stale := book(9999, 10001, 5, 3.0)
	stale.FetchedAt = time.Now().Add(-time.Minute)

	lighter := &stubProvider{venue: "Lighter", snap: stale}
	x10 := &stubProvider{venue: "X10", snap: book(9999, 10001, 5, 3.0)}
	gate := NewGate(lighter, x10, nil, testLogger())

	cfg := testConfig()
	cfg.MaxStaleness = 5 * time.Second

	res, err := gate.Check(context.Background(), "BTC-PERP", domain.SideBuy, 0.03, cfg)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reason, "Lighter snapshot is stale")
}
