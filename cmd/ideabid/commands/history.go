package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/internal/filter"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/timespec"
)

var (
	historyLimit int
	historySince string
	historyUntil string
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List finished sessions from the archive",
	Long: `Lists sessions recorded in the SQLite archive, most recent first, or prints
the report of one archived session. The archive is written by serve and evaluate
when storage.archive_path is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, until, err := timespec.ParseRange(historySince, historyUntil, time.Now())
		if err != nil {
			return printer.Error("invalid time range", err.Error(),
				[]string{"Use a duration like '24h' or an RFC3339 time like '2026-10-29T13:00:00Z'"})
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage.ArchivePath == "" {
			return printer.Error("archive disabled",
				"storage.archive_path is not configured, so no sessions were recorded.",
				[]string{"Set storage.archive_path in ideabid.yml", "Or export IDEABID_ARCHIVE_PATH"})
		}

		store, err := archive.Open(cfg.Storage.ArchivePath)
		if err != nil {
			return printer.ErrorWithContext("failed to open archive", err.Error(),
				map[string]string{"path": cfg.Storage.ArchivePath}, nil)
		}
		defer store.Close()

		if len(args) == 1 {
			session, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return printer.Error("session not in archive", err.Error(), []string{"Run 'ideabid history' to list archived sessions"})
			}
			printer.Info("%s (%s): %s\n", session.ID, session.Status, session.IdeaText)
			if session.Report != nil {
				printer.Report(session.Report)
			}
			return nil
		}

		entries, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return printer.Error("failed to read archive", err.Error(), nil)
		}
		criteria := &filter.Criteria{Since: since, Until: until}
		printer.History(criteria.Entries(entries))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum sessions to list")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only sessions that ended after this (duration like '24h' or RFC3339)")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "only sessions that ended before this")
	rootCmd.AddCommand(historyCmd)
}
