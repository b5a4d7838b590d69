package budget

import (
	"context"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// RedisLedger keeps budgets in Redis so several engine processes share one ledger.
// Each operation is a single Lua script, which serializes it inside Redis.
type RedisLedger struct {
	client *bidding.Client
	totals Totals
}

// NewRedisLedger creates a ledger backed by client.
func NewRedisLedger(client *bidding.Client, totals Totals) *RedisLedger {
	if totals == nil {
		totals = Totals{}
	}
	return &RedisLedger{client: client, totals: totals}
}

// Get implements Ledger.
func (l *RedisLedger) Get(ctx context.Context, personaID string) (*bidding.BudgetEntry, error) {
	return l.client.GetBudget(ctx, personaID, l.totals.For(personaID))
}

// Deduct implements Ledger.
func (l *RedisLedger) Deduct(ctx context.Context, personaID string, amount int) (int, error) {
	return l.client.DeductBudget(ctx, personaID, amount, l.totals.For(personaID))
}

// Reset implements Ledger.
func (l *RedisLedger) Reset(ctx context.Context, personaID string) error {
	return l.client.ResetBudget(ctx, personaID, l.totals.For(personaID))
}

// Credit implements Ledger.
func (l *RedisLedger) Credit(ctx context.Context, personaID string, amount int) (int, error) {
	return l.client.CreditBudget(ctx, personaID, amount, l.totals.For(personaID))
}
