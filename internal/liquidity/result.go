package liquidity

import (
	"strconv"
	"strings"
)

// CheckResult is the outcome of one admission check. A fresh value is built
// on every call and never cached; only the underlying snapshots are.
type CheckResult struct {
	Passed bool
	// Reason names the first failing condition, attributed to a venue
	// where one is at fault. Empty on a pass; "disabled" when the gate is
	// switched off.
	Reason string

	RequiredQty float64

	// AvailableQty is the aggregated quantity per venue on the consumed
	// side, 0 for a venue whose fetch failed.
	AvailableQty map[string]float64

	// DepthLevelsUsed is how many levels were actually summed per venue
	// (<= the requested depth).
	DepthLevelsUsed map[string]int

	// SpreadBps is the quoted spread in basis points, informational.
	SpreadBps float64

	// LatencyMs is the wall-clock duration of the whole Check call.
	LatencyMs float64

	// VenueErrors carries per-venue fetch failure diagnostics.
	VenueErrors map[string]string
}

// fmtQty renders a quantity the way reasons are logged and alerted on:
// shortest exact decimal form, with a trailing .0 kept for integral values
// so "need 3.0" reads as a quantity rather than a count.
func fmtQty(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
