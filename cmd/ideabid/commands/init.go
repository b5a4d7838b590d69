package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/scaffold"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter ideabid.yml and .env",
	Long: `Writes a commented ideabid.yml with every default spelled out, and a .env
for secrets such as the generation API key, into dir (default: the current
directory).

Use --force to overwrite existing files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		paths, err := scaffold.Initialize(dir, forceInit)
		if err != nil {
			return printer.Error("initialization failed", err.Error(),
				[]string{"Use 'ideabid init --force' to overwrite existing files"})
		}

		printer.Success("Initialized ideabid project\n")
		for _, p := range paths {
			printer.Info("  ✓ %s\n", p)
		}
		printer.Info("\nNext steps:\n  1. Add .env to your .gitignore\n  2. Run 'ideabid evaluate \"your idea\"'\n  3. Run 'ideabid serve' to start the API\n")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing ideabid.yml and .env")
	rootCmd.AddCommand(initCmd)
}
