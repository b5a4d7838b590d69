package persona

import (
	"math"

	"github.com/dyluth/ideabid/pkg/bidding"
)

const (
	bidNoise         = 15.0
	previousBidShare = 0.6
	ambitionScale    = 200.0
	budgetShare      = 0.3
)

// Deriver turns an interest score into a bid the persona can afford.
type Deriver struct {
	rng *Random
}

// NewDeriver creates a deriver drawing noise from rng.
func NewDeriver(rng *Random) *Deriver {
	return &Deriver{rng: rng}
}

// Derive returns a bid in [0, min(MaxBid, remaining)]. The bid is zero only when the
// score is below MinScore or nothing remains. A positive bid is at least MinBid unless
// the remaining budget is itself smaller.
func (d *Deriver) Derive(score float64, remaining, roundOffset int, previousBids map[string]int) int {
	if score < MinScore || remaining <= 0 {
		return 0
	}

	highest := 0
	for _, bid := range previousBids {
		highest = max(highest, bid)
	}

	ambition := score / 100
	proposal := previousBidShare*float64(highest) +
		ambitionScale*ambition +
		float64(roundOffset) +
		d.rng.Uniform(-bidNoise, bidNoise)

	clamped := clamp(proposal, bidding.MinBid, bidding.MaxBid)
	capped := math.Min(clamped, budgetShare*float64(remaining))
	final := math.Min(math.Max(bidding.MinBid, capped), float64(remaining))

	return int(math.Round(final))
}
