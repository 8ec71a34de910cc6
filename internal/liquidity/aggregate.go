package liquidity

import (
	"github.com/perpflow/perparbbot/internal/domain"
)

// AggregateDepth sums quantity across up to levels entries on the side of
// the book consumed by taking side. A book with fewer levels than requested
// contributes what it has; an empty side contributes 0. Malformed negative
// quantities count as 0, never subtracted. Pure, no error path.
func AggregateDepth(snap domain.OrderbookSnapshot, side domain.Side, levels int) (qty float64, used int) {
	entries := snap.SideLevels(side)
	if levels <= 0 || len(entries) == 0 {
		return 0, 0
	}
	if levels > len(entries) {
		levels = len(entries)
	}

	for _, lvl := range entries[:levels] {
		if lvl.Qty > 0 {
			qty += lvl.Qty
		}
	}
	return qty, levels
}

// SpreadBps computes the quoted spread in basis points:
// (ask - bid) / mid * 10000. Returns 0 when either price is non-positive,
// so an unusable book reads as "no spread information" rather than poisoning
// metrics.
func SpreadBps(bestBid, bestAsk float64) float64 {
	if bestBid <= 0 || bestAsk <= 0 {
		return 0
	}
	mid := (bestBid + bestAsk) / 2
	if mid <= 0 {
		return 0
	}
	return (bestAsk - bestBid) / mid * 10000
}
