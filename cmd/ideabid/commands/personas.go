package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/printer"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the persona roster in speaking order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		roster, err := cfg.Roster()
		if err != nil {
			return printer.Error("invalid personas", err.Error(), []string{"Check the personas section of ideabid.yml"})
		}
		printer.Personas(roster)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(personasCmd)
}
