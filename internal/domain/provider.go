package domain

import "context"

// DepthProvider is the contract every venue adapter satisfies: fetch up to
// levels price levels of depth for a symbol. Implementations perform their
// own bounded retry and rate-limit compliance internally and must return
// within the caller's context deadline; callers never retry through this
// contract.
type DepthProvider interface {
	// Venue returns the stable venue name used in results and logs.
	Venue() string

	// FetchDepth returns a snapshot with up to levels entries per side.
	// levels is capped by the venue maximum. Failures are returned as
	// *VenueError so callers can inspect the classification.
	FetchDepth(ctx context.Context, symbol string, levels int) (OrderbookSnapshot, error)
}
