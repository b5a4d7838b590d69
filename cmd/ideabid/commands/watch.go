package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/filter"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/timespec"
	"github.com/dyluth/ideabid/internal/watch"
	"github.com/dyluth/ideabid/pkg/bidding"
)

var (
	watchOutputFormat string
	watchType         string
	watchPersona      string
	watchSince        string
	watchWait         time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Stream a running session's events",
	Long: `Streams phase changes, persona messages, bids and the final result of a
session run by 'ideabid serve' with the redis storage backend. Exits when the
session completes or is cancelled.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch everything
  ideabid watch 6f1c...

  # Only bids, as JSON
  ideabid watch 6f1c... --type ai_bid --output json > bids.jsonl

  # Wait up to a minute for a session that is about to be created
  ideabid watch 6f1c... --wait 1m`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchType, "type", "", "Only show event types matching this glob, e.g. 'ai_*'")
	watchCmd.Flags().StringVar(&watchPersona, "persona", "", "Only show messages from this persona id")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "Skip events older than this (duration like '5m' or RFC3339)")
	watchCmd.Flags().DurationVar(&watchWait, "wait", 0, "How long to wait for the session to be created")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	var format watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		format = watch.OutputFormatDefault
	case "json":
		format = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	criteria := &filter.Criteria{TypeGlob: watchType, PersonaID: watchPersona}
	if watchSince != "" {
		since, err := timespec.Parse(watchSince, time.Now())
		if err != nil {
			return printer.Error("invalid --since", err.Error(), nil)
		}
		criteria.Since = since
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != "redis" {
		return printer.Error(
			"watch needs the redis backend",
			"Events from the memory backend never leave the serving process.",
			[]string{"Run the server with --storage redis", "Use 'ideabid evaluate' to watch a local run"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := redisClient(ctx, cfg)
	if err != nil {
		return printer.ErrorWithContext("Redis connection failed", err.Error(),
			map[string]string{"redis_url": cfg.Storage.RedisURL}, nil)
	}
	defer client.Close()

	// Subscribe before reading the session so nothing published in between is missed
	sub, err := client.SubscribeEvents(ctx, sessionID)
	if err != nil {
		return printer.Error("failed to subscribe", err.Error(), nil)
	}
	defer sub.Close()

	session, err := client.GetSession(ctx, sessionID)
	if bidding.IsNotFound(err) && watchWait > 0 {
		session, err = watch.PollForSession(ctx, client, sessionID, watchWait)
	}
	if err != nil {
		return printer.ErrorWithContext("session not found", err.Error(),
			map[string]string{"session": sessionID, "instance": cfg.Storage.Instance},
			[]string{"Check the session id", "Pass --wait to wait for it to be created"})
	}
	if session.Status.Terminal() {
		printer.Info("Session %s already %s.\n", session.ID, session.Status)
		if session.Report != nil {
			printer.Report(session.Report)
		}
		return nil
	}

	roster, err := cfg.Roster()
	if err != nil {
		return err
	}
	names := make(map[string]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.Name
	}

	return watch.Stream(ctx, sub.Events(), criteria, format, names, cmd.OutOrStdout())
}
