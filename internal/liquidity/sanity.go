package liquidity

import (
	"fmt"
	"time"

	"github.com/perpflow/perparbbot/internal/domain"
)

// The book validator is two independent layers plus a freshness window:
//
//  1. Depth presence (relaxed): a venue needs positive quantity on at least
//     ONE side. Low-volume symbols are frequently one-sided on a given
//     venue; requiring both sides rejects thin markets that are still
//     tradeable on the consumed side.
//  2. Price sanity (strict): best bid > 0, best ask > 0, bid < ask. A book
//     can carry depth on one side while a quoted price is zero or crossed.

// HasAnySideDepth is the relaxed depth-presence policy: positive aggregated
// quantity on at least one side of the book.
func HasAnySideDepth(snap domain.OrderbookSnapshot) bool {
	for _, lvl := range snap.Bids {
		if lvl.Qty > 0 {
			return true
		}
	}
	for _, lvl := range snap.Asks {
		if lvl.Qty > 0 {
			return true
		}
	}
	return false
}

// priceSanity checks one venue's quoted prices: both sides positive and not
// crossed.
func priceSanity(snap domain.OrderbookSnapshot) (bool, string) {
	bid, ask := snap.BestBid(), snap.BestAsk()
	switch {
	case bid <= 0:
		return false, fmt.Sprintf("%s missing or zero best bid", snap.Venue)
	case ask <= 0:
		return false, fmt.Sprintf("%s missing or zero best ask", snap.Venue)
	case bid >= ask:
		return false, fmt.Sprintf("%s book is crossed (bid %s >= ask %s)",
			snap.Venue, fmtQty(bid), fmtQty(ask))
	}
	return true, ""
}

// Usable applies depth presence, price sanity, and freshness across a pair
// of venue snapshots for the same symbol. It returns the first failing
// condition's reason, venue-attributed; ok is true only when every
// applicable check passes for both venues. maxStaleness <= 0 disables the
// freshness check.
func Usable(a, b domain.OrderbookSnapshot, now time.Time, maxStaleness time.Duration) (bool, string) {
	for _, snap := range []domain.OrderbookSnapshot{a, b} {
		if !HasAnySideDepth(snap) {
			return false, fmt.Sprintf("%s orderbook has no depth on either side", snap.Venue)
		}
	}

	for _, snap := range []domain.OrderbookSnapshot{a, b} {
		if ok, reason := priceSanity(snap); !ok {
			return false, reason
		}
	}

	if maxStaleness > 0 {
		for _, snap := range []domain.OrderbookSnapshot{a, b} {
			if snap.FetchedAt.IsZero() {
				return false, fmt.Sprintf("%s snapshot has no timestamp", snap.Venue)
			}
			if age := now.Sub(snap.FetchedAt); age > maxStaleness {
				return false, fmt.Sprintf("%s snapshot is stale (%.1fs > %.1fs)",
					snap.Venue, age.Seconds(), maxStaleness.Seconds())
			}
		}
	}

	return true, ""
}
