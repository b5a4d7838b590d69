package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// MemoryLedger is an in-process Ledger. Each persona has its own lock, so
// concurrent sessions only contend when they touch the same persona.
type MemoryLedger struct {
	totals Totals

	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	mu        sync.Mutex
	total     int
	remaining int
}

// NewMemoryLedger creates an empty ledger. Entries are created lazily.
func NewMemoryLedger(totals Totals) *MemoryLedger {
	if totals == nil {
		totals = Totals{}
	}
	return &MemoryLedger{
		totals:  totals,
		entries: make(map[string]*memoryEntry),
	}
}

func (l *MemoryLedger) entry(personaID string) *memoryEntry {
	l.mu.RLock()
	e, ok := l.entries[personaID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[personaID]; ok {
		return e
	}
	total := l.totals.For(personaID)
	e = &memoryEntry{total: total, remaining: total}
	l.entries[personaID] = e
	return e
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, personaID string) (*bidding.BudgetEntry, error) {
	e := l.entry(personaID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return &bidding.BudgetEntry{PersonaID: personaID, Total: e.total, Remaining: e.remaining}, nil
}

// Deduct implements Ledger.
func (l *MemoryLedger) Deduct(_ context.Context, personaID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("deduction must be >= 0, got %d", amount)
	}

	e := l.entry(personaID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount > e.remaining {
		return e.remaining, fmt.Errorf("persona %s deducting %d: %w", personaID, amount, bidding.ErrInsufficientBudget)
	}
	e.remaining -= amount
	return e.remaining, nil
}

// Reset implements Ledger.
func (l *MemoryLedger) Reset(_ context.Context, personaID string) error {
	e := l.entry(personaID)
	e.mu.Lock()
	e.remaining = e.total
	e.mu.Unlock()
	return nil
}

// Credit implements Ledger.
func (l *MemoryLedger) Credit(_ context.Context, personaID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit must be >= 0, got %d", amount)
	}

	e := l.entry(personaID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.remaining = min(e.total, e.remaining+amount)
	return e.remaining, nil
}
