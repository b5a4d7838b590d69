package budget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/ideabid/pkg/bidding"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLedger(t *testing.T, totals Totals) *RedisLedger {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := bidding.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewRedisLedger(client, totals)
}

// ledgers runs the same behavioural checks against both implementations.
func ledgers(t *testing.T, totals Totals) map[string]Ledger {
	return map[string]Ledger{
		"memory": NewMemoryLedger(totals),
		"redis":  setupRedisLedger(t, totals),
	}
}

func TestTotals(t *testing.T) {
	totals := TotalsFromPersonas([]bidding.Persona{
		{ID: "rich", Budget: 5000},
		{ID: "plain"},
	}, 1200)

	assert.Equal(t, 5000, totals.For("rich"))
	assert.Equal(t, 1200, totals.For("plain"))
	assert.Equal(t, 1200, totals.For("unknown"))
	assert.Equal(t, DefaultTotal, Totals{}.For("anyone"))
}

func TestLedgerBehaviour(t *testing.T) {
	ctx := context.Background()

	for name, ledger := range ledgers(t, Totals{"alex": 1000}) {
		t.Run(name, func(t *testing.T) {
			t.Run("lazy init", func(t *testing.T) {
				entry, err := ledger.Get(ctx, "alex")
				require.NoError(t, err)
				assert.Equal(t, 1000, entry.Total)
				assert.Equal(t, 1000, entry.Remaining)

				entry, err = ledger.Get(ctx, "stranger")
				require.NoError(t, err)
				assert.Equal(t, DefaultTotal, entry.Total)
			})

			t.Run("deduct", func(t *testing.T) {
				remaining, err := ledger.Deduct(ctx, "alex", 250)
				require.NoError(t, err)
				assert.Equal(t, 750, remaining)
			})

			t.Run("overdraw fails without mutation", func(t *testing.T) {
				_, err := ledger.Deduct(ctx, "alex", 751)
				require.Error(t, err)
				assert.True(t, errors.Is(err, bidding.ErrInsufficientBudget))

				entry, err := ledger.Get(ctx, "alex")
				require.NoError(t, err)
				assert.Equal(t, 750, entry.Remaining)
			})

			t.Run("credit is capped at total", func(t *testing.T) {
				remaining, err := ledger.Credit(ctx, "alex", 100)
				require.NoError(t, err)
				assert.Equal(t, 850, remaining)

				remaining, err = ledger.Credit(ctx, "alex", 10_000)
				require.NoError(t, err)
				assert.Equal(t, 1000, remaining)
			})

			t.Run("reset restores total", func(t *testing.T) {
				_, err := ledger.Deduct(ctx, "alex", 1000)
				require.NoError(t, err)
				require.NoError(t, ledger.Reset(ctx, "alex"))

				entry, err := ledger.Get(ctx, "alex")
				require.NoError(t, err)
				assert.Equal(t, 1000, entry.Remaining)
			})

			t.Run("negative amounts rejected", func(t *testing.T) {
				_, err := ledger.Deduct(ctx, "alex", -5)
				assert.Error(t, err)
				_, err = ledger.Credit(ctx, "alex", -5)
				assert.Error(t, err)
			})
		})
	}
}

func TestLedgerConcurrentDeductions(t *testing.T) {
	ctx := context.Background()

	for name, ledger := range ledgers(t, Totals{"shared": 1000}) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			var succeeded atomic.Int64

			// 50 concurrent deductions of 30 against 1000: exactly 33 fit.
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := ledger.Deduct(ctx, "shared", 30); err == nil {
						succeeded.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int64(33), succeeded.Load())
			entry, err := ledger.Get(ctx, "shared")
			require.NoError(t, err)
			assert.Equal(t, 10, entry.Remaining)
		})
	}
}

func TestMemoryLedgerPersonasAreIndependent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(Totals{"a": 100, "b": 100})

	_, err := ledger.Deduct(ctx, "a", 100)
	require.NoError(t, err)

	entry, err := ledger.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 100, entry.Remaining)
}
