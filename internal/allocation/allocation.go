// Package allocation converts a desired equity split into an exact integer
// share allocation. Pure computation, no I/O: every caller of issuance
// depends on the result summing to the authorized total exactly.
package allocation

import (
	"math"
	"sort"

	dErrors "incorp/pkg/domain-errors"
)

// percentEpsilon is the tolerance when checking that splits sum to 100.
const percentEpsilon = 0.01

// Split is one participant's requested equity percentage.
type Split struct {
	ParticipantID string
	Percent       float64
}

// Allocation is one participant's computed integer share count.
type Allocation struct {
	ParticipantID string
	Shares        int64
}

// Compute turns percentage splits into integer share counts that sum to
// totalShares exactly, using largest-remainder (Hamilton) apportionment:
// floor every participant's exact share, then hand the leftover units one at
// a time to the largest fractional remainders, ties broken by input order.
// Percentage sums just off 100 (inside epsilon) can floor to a surplus
// instead of a shortfall; surplus units are reclaimed from the smallest
// fractional remainders so the result still sums to totalShares exactly.
//
// Fails with CodeInvalidAllocation when percentages do not sum to 100
// (within epsilon), when totalShares cannot give every participant at least
// one share, or when any participant would end up with zero shares.
func Compute(totalShares int64, splits []Split) ([]Allocation, error) {
	if len(splits) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAllocation, "at least one split is required")
	}
	if totalShares < int64(len(splits)) {
		return nil, dErrors.Newf(dErrors.CodeInvalidAllocation,
			"%d shares cannot cover %d participants", totalShares, len(splits))
	}

	var sum float64
	for _, s := range splits {
		if s.Percent <= 0 {
			return nil, dErrors.Newf(dErrors.CodeInvalidAllocation,
				"participant %s has non-positive percentage", s.ParticipantID)
		}
		sum += s.Percent
	}
	if math.Abs(sum-100) > percentEpsilon {
		return nil, dErrors.Newf(dErrors.CodeInvalidAllocation,
			"percentages sum to %.4f, expected 100", sum)
	}

	out := make([]Allocation, len(splits))
	remainders := make([]struct {
		index    int
		fraction float64
	}, len(splits))

	var allocated int64
	for i, s := range splits {
		exact := float64(totalShares) * s.Percent / 100
		floor := int64(math.Floor(exact))
		out[i] = Allocation{ParticipantID: s.ParticipantID, Shares: floor}
		remainders[i].index = i
		remainders[i].fraction = exact - float64(floor)
		allocated += floor
	}

	// SliceStable keeps input order for equal fractions, which makes the
	// remainder distribution deterministic.
	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].fraction > remainders[b].fraction
	})

	// The epsilon admits percentage sums slightly off 100, so the floors can
	// come up short or run over. A shortfall hands units to the largest
	// fractional remainders; a surplus takes them back from the smallest.
	n := int64(len(splits))
	switch remainder := totalShares - allocated; {
	case remainder > 0:
		for i := int64(0); i < remainder; i++ {
			out[remainders[i%n].index].Shares++
		}
	case remainder < 0:
		for i := int64(0); i < -remainder; i++ {
			out[remainders[n-1-i%n].index].Shares--
		}
	}

	for _, a := range out {
		if a.Shares < 1 {
			return nil, dErrors.Newf(dErrors.CodeInvalidAllocation,
				"participant %s resolves to zero shares", a.ParticipantID)
		}
	}
	return out, nil
}
