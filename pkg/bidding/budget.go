package bidding

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Budget operations run as Lua scripts so each check-and-mutate is atomic inside Redis.
// Every script lazily initialises the hash with ARGV[1] as the default total.

const budgetInitLua = `
redis.call('HSETNX', KEYS[1], 'total', ARGV[1])
redis.call('HSETNX', KEYS[1], 'remaining', ARGV[1])
local total = tonumber(redis.call('HGET', KEYS[1], 'total'))
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
`

var (
	budgetGetScript = redis.NewScript(budgetInitLua + `
return {total, remaining}
`)

	budgetDeductScript = redis.NewScript(budgetInitLua + `
local amount = tonumber(ARGV[2])
if amount > remaining then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'remaining', -amount)
`)

	budgetResetScript = redis.NewScript(budgetInitLua + `
redis.call('HSET', KEYS[1], 'remaining', total)
return total
`)

	budgetCreditScript = redis.NewScript(budgetInitLua + `
local updated = remaining + tonumber(ARGV[2])
if updated > total then
	updated = total
end
redis.call('HSET', KEYS[1], 'remaining', updated)
return updated
`)
)

// GetBudget returns a persona's budget, initialising it with defaultTotal on first use.
func (c *Client) GetBudget(ctx context.Context, personaID string, defaultTotal int) (*BudgetEntry, error) {
	key := BudgetKey(c.instanceName, personaID)
	values, err := budgetGetScript.Run(ctx, c.rdb, []string{key}, defaultTotal).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to read budget for %s: %w", personaID, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected budget reply for %s: %v", personaID, values)
	}

	return &BudgetEntry{
		PersonaID: personaID,
		Total:     int(values[0]),
		Remaining: int(values[1]),
	}, nil
}

// DeductBudget atomically subtracts amount from a persona's remaining budget.
// Returns ErrInsufficientBudget without mutation if amount exceeds what remains.
func (c *Client) DeductBudget(ctx context.Context, personaID string, amount, defaultTotal int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("deduction must be >= 0, got %d", amount)
	}

	key := BudgetKey(c.instanceName, personaID)
	remaining, err := budgetDeductScript.Run(ctx, c.rdb, []string{key}, defaultTotal, amount).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to deduct budget for %s: %w", personaID, err)
	}
	if remaining < 0 {
		return 0, fmt.Errorf("persona %s deducting %d: %w", personaID, amount, ErrInsufficientBudget)
	}
	return int(remaining), nil
}

// ResetBudget restores remaining to total.
func (c *Client) ResetBudget(ctx context.Context, personaID string, defaultTotal int) error {
	key := BudgetKey(c.instanceName, personaID)
	if err := budgetResetScript.Run(ctx, c.rdb, []string{key}, defaultTotal).Err(); err != nil {
		return fmt.Errorf("failed to reset budget for %s: %w", personaID, err)
	}
	return nil
}

// CreditBudget adds amount back to remaining, never exceeding total.
func (c *Client) CreditBudget(ctx context.Context, personaID string, amount, defaultTotal int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit must be >= 0, got %d", amount)
	}

	key := BudgetKey(c.instanceName, personaID)
	remaining, err := budgetCreditScript.Run(ctx, c.rdb, []string{key}, defaultTotal, amount).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to credit budget for %s: %w", personaID, err)
	}
	return int(remaining), nil
}
