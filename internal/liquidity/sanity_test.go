package liquidity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/perpflow/perparbbot/internal/domain"
)

func healthy(venue string, at time.Time) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		Venue:     venue,
		Symbol:    "BTC-PERP",
		Bids:      []domain.PriceLevel{{Price: 9999, Qty: 5}},
		Asks:      []domain.PriceLevel{{Price: 10001, Qty: 5}},
		FetchedAt: at,
	}
}

func TestUsableHealthyPair(t *testing.T) {
	now := time.Now()
	ok, reason := Usable(healthy("Lighter", now), healthy("X10", now), now, 5*time.Second)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestHasAnySideDepthOneSided(t *testing.T) {
	oneSided := domain.OrderbookSnapshot{
		Venue: "X10",
		Bids:  []domain.PriceLevel{{Price: 9999, Qty: 3}},
	}
	assert.True(t, HasAnySideDepth(oneSided))

	empty := domain.OrderbookSnapshot{Venue: "X10"}
	assert.False(t, HasAnySideDepth(empty))

	// Quoted prices with zero quantity are presence-empty.
	quotedOnly := domain.OrderbookSnapshot{
		Venue: "X10",
		Bids:  []domain.PriceLevel{{Price: 9999, Qty: 0}},
		Asks:  []domain.PriceLevel{{Price: 10001, Qty: 0}},
	}
	assert.False(t, HasAnySideDepth(quotedOnly))
}

// The depth-presence and price-sanity layers are independent: a one-sided
// book can pass presence yet fail sanity.
func TestLayersAreIndependent(t *testing.T) {
	now := time.Now()
	oneSided := domain.OrderbookSnapshot{
		Venue:     "Lighter",
		Symbol:    "BTC-PERP",
		Bids:      []domain.PriceLevel{{Price: 9999, Qty: 10}},
		FetchedAt: now,
	}
	assert.True(t, HasAnySideDepth(oneSided))

	ok, reason := Usable(oneSided, healthy("X10", now), now, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "Lighter missing or zero best ask")
}

func TestUsableZeroBidFailsRegardlessOfQuantity(t *testing.T) {
	now := time.Now()
	big := domain.OrderbookSnapshot{
		Venue:     "X10",
		Asks:      []domain.PriceLevel{{Price: 10001, Qty: 1_000_000}},
		FetchedAt: now,
	}
	ok, reason := Usable(healthy("Lighter", now), big, now, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "X10 missing or zero best bid")
}

func TestUsableCrossedBook(t *testing.T) {
	now := time.Now()
	crossed := domain.OrderbookSnapshot{
		Venue:     "X10",
		Bids:      []domain.PriceLevel{{Price: 10002, Qty: 1}},
		Asks:      []domain.PriceLevel{{Price: 10001, Qty: 1}},
		FetchedAt: now,
	}
	ok, reason := Usable(healthy("Lighter", now), crossed, now, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "X10 book is crossed")
}

func TestUsableStaleness(t *testing.T) {
	now := time.Now()

	stale := healthy("X10", now.Add(-10*time.Second))
	ok, reason := Usable(healthy("Lighter", now), stale, now, 5*time.Second)
	assert.False(t, ok)
	assert.Contains(t, reason, "X10 snapshot is stale")

	// Staleness disabled: old data is accepted.
	ok, _ = Usable(healthy("Lighter", now), stale, now, 0)
	assert.True(t, ok)

	// Missing timestamp fails when freshness is enforced.
	noTS := healthy("X10", time.Time{})
	ok, reason = Usable(healthy("Lighter", now), noTS, now, 5*time.Second)
	assert.False(t, ok)
	assert.Contains(t, reason, "X10 snapshot has no timestamp")
}

// Venue attribution follows argument order: the first failing venue names
// the reason.
func TestUsableFirstVenueAttributed(t *testing.T) {
	now := time.Now()
	emptyA := domain.OrderbookSnapshot{Venue: "Lighter", FetchedAt: now}
	emptyB := domain.OrderbookSnapshot{Venue: "X10", FetchedAt: now}

	ok, reason := Usable(emptyA, emptyB, now, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "Lighter orderbook has no depth on either side")
}
