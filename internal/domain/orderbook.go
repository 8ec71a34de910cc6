package domain

import "time"

// PriceLevel is a single price+quantity entry in an orderbook.
type PriceLevel struct {
	Price float64
	Qty   float64
}

// OrderbookSnapshot is depth data for one venue/symbol at one instant.
// Bids are ordered by descending price, asks by ascending price. Either side
// may be empty: a one-sided or empty book is valid data, not an error.
// Snapshots are immutable once constructed; a new snapshot replaces an old
// one.
type OrderbookSnapshot struct {
	Venue     string
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	FetchedAt time.Time
}

// BestBid returns the highest bid price, or 0 if the bid side is empty.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 if the ask side is empty.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// SideLevels returns the levels consumed by taking the given trade side:
// a BUY lifts asks, a SELL hits bids.
func (s OrderbookSnapshot) SideLevels(side Side) []PriceLevel {
	if side == SideBuy {
		return s.Asks
	}
	return s.Bids
}
