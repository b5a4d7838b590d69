package orchestrator

import (
	"fmt"

	"github.com/dyluth/ideabid/internal/generation"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// fallbackContent is the deterministic message used when generation fails. It depends
// only on the persona and the turn so replays produce identical logs.
func fallbackContent(p bidding.Persona, gc generation.Context) string {
	switch gc.Phase {
	case bidding.PhaseWarmup:
		return fmt.Sprintf("%s here. I'm reading through this idea and will share my view shortly.", p.Name)
	case bidding.PhaseDiscussion:
		return fmt.Sprintf("%s: I need to see who the customer is and what they pay today before I go further.", p.Name)
	case bidding.PhaseBidding:
		if gc.Bid != nil && *gc.Bid > 0 {
			return fmt.Sprintf("%s bids %d. The fundamentals are worth a stake at this level.", p.Name, *gc.Bid)
		}
		return passText(p)
	case bidding.PhasePrediction:
		return fmt.Sprintf("%s: My prediction is that this lives or dies on its first ten paying customers.", p.Name)
	default:
		return fmt.Sprintf("%s has nothing further to add.", p.Name)
	}
}

// passText is used for a bid of 0, whether chosen or forced by the budget.
func passText(p bidding.Persona) string {
	return fmt.Sprintf("%s passes this round. I'll hold my budget until the case is clearer.", p.Name)
}
