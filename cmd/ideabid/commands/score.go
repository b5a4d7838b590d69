package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/printer"
)

var scoreJSON bool

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score the maturity of a recorded dialogue",
	Long: `Scores a dialogue for commercial maturity without running a session.

The input is a JSON document with "messages" (session messages) and "bids"
(persona id to final bid). It is read from the file argument, or stdin when
the argument is omitted or "-".

Examples:
  ideabid score dialogue.json
  ideabid evaluate --json "Idea" | jq '{messages, bids: .current_bids}' | ideabid score --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scorer, err := cfg.MaturityScorer()
	if err != nil {
		return printer.Error("invalid maturity configuration", err.Error(), nil)
	}

	var r io.Reader = cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return printer.Error("failed to open dialogue", err.Error(), nil)
		}
		defer f.Close()
		r, source = f, args[0]
	}

	var in maturity.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return printer.ErrorWithContext("invalid dialogue JSON", err.Error(),
			map[string]string{"source": source},
			[]string{`Expected {"messages": [...], "bids": {"persona-id": 120}}`})
	}

	result := scorer.Score(in)
	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	}

	printer.Maturity(result)
	return nil
}
