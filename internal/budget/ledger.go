// Package budget tracks how much each persona may still bid.
//
// The ledger is process-wide state shared by every running session. Deductions are
// serialized per persona id; distinct personas never contend.
package budget

import (
	"context"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// DefaultTotal is the budget a persona starts with when neither the catalogue nor
// configuration names one.
const DefaultTotal = 2000

// Ledger is the budget store used by the orchestrator and the admin API.
type Ledger interface {
	// Get returns the persona's entry, initialising it on first use.
	Get(ctx context.Context, personaID string) (*bidding.BudgetEntry, error)

	// Deduct subtracts amount and returns what remains. It returns
	// bidding.ErrInsufficientBudget without mutation if amount exceeds remaining.
	Deduct(ctx context.Context, personaID string, amount int) (int, error)

	// Reset restores remaining to total.
	Reset(ctx context.Context, personaID string) error

	// Credit adds amount back to remaining, capped at total.
	Credit(ctx context.Context, personaID string, amount int) (int, error)
}

// Totals resolves the starting budget for a persona id.
type Totals map[string]int

// For returns the configured total for personaID, falling back to DefaultTotal.
func (t Totals) For(personaID string) int {
	if total, ok := t[personaID]; ok && total > 0 {
		return total
	}
	if total, ok := t["*"]; ok && total > 0 {
		return total
	}
	return DefaultTotal
}

// TotalsFromPersonas builds Totals from persona budgets, with fallback as the
// default for personas that do not set one.
func TotalsFromPersonas(personas []bidding.Persona, fallback int) Totals {
	totals := Totals{}
	if fallback > 0 {
		totals["*"] = fallback
	}
	for _, p := range personas {
		if p.Budget > 0 {
			totals[p.ID] = p.Budget
		}
	}
	return totals
}
