package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/budget"
	"github.com/dyluth/ideabid/internal/config"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/pkg/bidding"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Inspect and administer persona budgets",
	Long: `Shows, resets and credits the budgets personas bid from.

Budgets are only shared across processes with the redis storage backend; with
the memory backend these commands act on a fresh in-process ledger.`,
}

var budgetShowCmd = &cobra.Command{
	Use:   "show [persona-id]",
	Short: "Show remaining budgets",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(ledger budget.Ledger, ids []string) error {
			if len(args) == 1 {
				ids = []string{args[0]}
			}
			entries := make([]*bidding.BudgetEntry, 0, len(ids))
			for _, id := range ids {
				entry, err := ledger.Get(cmd.Context(), id)
				if err != nil {
					return printer.Error("failed to read budget", err.Error(), nil)
				}
				entries = append(entries, entry)
			}
			printer.Budgets(entries)
			return nil
		})
	},
}

var budgetResetCmd = &cobra.Command{
	Use:   "reset [persona-id]",
	Short: "Restore budgets to their totals (all personas when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(ledger budget.Ledger, ids []string) error {
			if len(args) == 1 {
				ids = []string{args[0]}
			}
			for _, id := range ids {
				if err := ledger.Reset(cmd.Context(), id); err != nil {
					return printer.ErrorWithContext("failed to reset budget", err.Error(),
						map[string]string{"persona": id}, nil)
				}
			}
			printer.Success("Reset %d budget(s).\n", len(ids))
			return nil
		})
	},
}

var budgetCreditCmd = &cobra.Command{
	Use:   "credit <persona-id> <amount>",
	Short: "Return budget to a persona, capped at its total",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[1])
		if err != nil || amount <= 0 {
			return printer.Error("invalid amount",
				fmt.Sprintf("amount must be a positive integer, got %q", args[1]), nil)
		}
		return withLedger(cmd.Context(), func(ledger budget.Ledger, _ []string) error {
			remaining, err := ledger.Credit(cmd.Context(), args[0], amount)
			if err != nil {
				return printer.Error("failed to credit budget", err.Error(), nil)
			}
			printer.Success("%s now has %d remaining.\n", args[0], remaining)
			return nil
		})
	},
}

func init() {
	budgetCmd.AddCommand(budgetShowCmd, budgetResetCmd, budgetCreditCmd)
	rootCmd.AddCommand(budgetCmd)
}

// withLedger opens the configured ledger and calls fn with the roster's persona ids.
func withLedger(ctx context.Context, fn func(ledger budget.Ledger, ids []string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	roster, err := cfg.Roster()
	if err != nil {
		return printer.Error("invalid personas", err.Error(), nil)
	}
	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}

	ledger, closeFn, err := openLedger(ctx, cfg, cfg.BudgetTotals(roster))
	if err != nil {
		return printer.Error("failed to open budget ledger", err.Error(),
			[]string{"Check that Redis is running and storage.redis_url is correct"})
	}
	defer closeFn()

	if cfg.Storage.Backend != "redis" {
		printer.Warning("Using an in-process ledger; budgets are not shared with other processes.\n")
	}
	return fn(ledger, ids)
}

func openLedger(ctx context.Context, cfg *config.Config, totals budget.Totals) (budget.Ledger, func(), error) {
	if cfg.Storage.Backend != "redis" {
		return budget.NewMemoryLedger(totals), func() {}, nil
	}
	client, err := redisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return budget.NewRedisLedger(client, totals), func() { client.Close() }, nil
}
