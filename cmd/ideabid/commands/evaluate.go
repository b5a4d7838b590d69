package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/orchestrator"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/store"
	"github.com/dyluth/ideabid/pkg/bidding"
)

var (
	evaluateTheme         string
	evaluatePhaseDuration time.Duration
	evaluateJSON          bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [idea text]",
	Short: "Run one session locally and print the dialogue and result",
	Long: `Runs a single session in process with compressed phase timings and streams
every persona message to the terminal. The idea is read from the arguments, or
from stdin when no arguments are given.

Storage is always in memory; budgets start fresh on every run.

Examples:
  ideabid evaluate "A subscription service that helps cafes reduce food waste"
  echo "Smart bike locks for campuses" | ideabid evaluate --phase-duration 5s
  ideabid evaluate --json "Peer-to-peer tool rental" > session.json`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateTheme, "theme", "", "optional theme passed to the personas")
	evaluateCmd.Flags().DurationVar(&evaluatePhaseDuration, "phase-duration", 2*time.Second, "duration of each timed phase")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the finished session as JSON instead of streaming")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	idea, err := readIdea(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if evaluatePhaseDuration <= 0 {
		return printer.Error("invalid phase duration",
			fmt.Sprintf("--phase-duration must be positive, got %s", evaluatePhaseDuration), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pacing := cfg.Orchestrator()
	pacing.PhaseDurations = make(map[bidding.Phase]time.Duration, len(bidding.PhaseOrder))
	for _, phase := range bidding.PhaseOrder {
		if phase != bidding.PhaseResult {
			pacing.PhaseDurations[phase] = evaluatePhaseDuration
		}
	}
	pacing.MessageDelays = map[bidding.Phase]orchestrator.DelayRange{}

	bus := store.NewBus()
	rt, err := newRuntime(ctx, cfg, runtimeOptions{forceMemory: true, templated: true, publisher: bus, pacing: &pacing})
	if err != nil {
		return printer.Error("failed to start engine", err.Error(), nil)
	}
	defer rt.Close()

	names := make(map[string]string, len(rt.roster))
	for _, p := range rt.roster {
		names[p.ID] = p.Name
	}

	sessionID := uuid.New().String()
	done := make(chan *bidding.Event, 1)
	bus.Subscribe(sessionID, func(_ string, ev *bidding.Event) {
		switch ev.Type {
		case bidding.EventPhaseChange:
			if !evaluateJSON {
				printer.Phase(ev.Phase)
			}
		case bidding.EventAIMessage, bidding.EventAIBid:
			if !evaluateJSON && ev.Message != nil {
				printer.Message(names[ev.Message.PersonaID], ev.Message)
			}
		case bidding.EventSessionComplete:
			select {
			case done <- ev:
			default:
			}
		}
	})

	if !evaluateJSON {
		printer.Step("Evaluating idea with %d personas (%s per phase)\n", len(rt.roster), evaluatePhaseDuration)
	}
	if _, err := rt.engine.Create(ctx, orchestrator.CreateRequest{
		SessionID: sessionID,
		IdeaText:  idea,
		Theme:     evaluateTheme,
	}); err != nil {
		return printer.Error("failed to create session", err.Error(), nil)
	}

	select {
	case <-done:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.engine.Shutdown(shutdownCtx); err != nil {
			return printer.Error("failed to stop session", err.Error(), nil)
		}
		printer.Warning("Evaluation interrupted.\n")
		return nil
	}

	session, err := rt.engine.Get(context.Background(), sessionID)
	if err != nil {
		return printer.Error("failed to read finished session", err.Error(), nil)
	}

	if evaluateJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	}

	if session.Report == nil {
		printer.Warning("Session finished without a report.\n")
		return nil
	}
	printer.Report(session.Report)
	if session.Report.MaturityPayload != "" {
		var result maturity.Result
		if err := json.Unmarshal([]byte(session.Report.MaturityPayload), &result); err != nil {
			return fmt.Errorf("failed to decode maturity result: %w", err)
		}
		printer.Maturity(&result)
	}
	return nil
}

// readIdea joins args, or reads stdin when there are none.
func readIdea(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", printer.Error("no idea given",
				"Pass the idea as an argument or pipe it on stdin.",
				[]string{`ideabid evaluate "Your idea here"`})
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read idea from stdin: %w", err)
	}
	idea := strings.TrimSpace(string(data))
	if idea == "" {
		return "", printer.Error("no idea given", "stdin was empty.", nil)
	}
	return idea, nil
}
