package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dyluth/ideabid/internal/config"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/telemetry"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ideabid",
	Short: "ideabid - simulated expert bidding and maturity scoring for ideas",
	Long: `ideabid runs a panel of simulated expert personas over a creative idea.
The personas discuss the idea, bid on it from a shared budget, and predict its
future; the resulting dialogue is scored for commercial maturity.

Run 'ideabid serve' for the HTTP API or 'ideabid evaluate' for a local run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(viper.GetString("env_file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return printer.Error(
				"failed to load environment file",
				err.Error(),
				[]string{"Fix the syntax of the .env file or point --env-file elsewhere"},
			)
		}
		return nil
	},
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
	telemetry.Version = v
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./"+config.DefaultPath+" when present)")
	flags.String("env-file", ".env", "environment file loaded before configuration")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")

	// Every setting is also read from IDEABID_* environment variables
	viper.SetEnvPrefix("IDEABID")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for key, flag := range map[string]string{
		"config":     "config",
		"env_file":   "env-file",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads the configuration file, falling back to defaults when none is
// given and ./ideabid.yml does not exist, then applies environment and flag overrides.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}

	var cfg *config.Config
	if _, err := os.Stat(path); err != nil && !explicit {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"invalid configuration",
				err.Error(),
				map[string]string{"path": path},
				[]string{"Fix the configuration file", "Remove --config to run with defaults"},
			)
		}
		cfg = loaded
	}

	overrides := map[string]*string{
		"log_level":      &cfg.Logging.Level,
		"log_format":     &cfg.Logging.Format,
		"server_addr":    &cfg.Server.Addr,
		"storage":        &cfg.Storage.Backend,
		"redis_url":      &cfg.Storage.RedisURL,
		"instance":       &cfg.Storage.Instance,
		"archive_path":   &cfg.Storage.ArchivePath,
		"otlp_endpoint":  &cfg.Telemetry.OTLPEndpoint,
		"generator":      &cfg.Generation.Provider,
		"generation_url": &cfg.Generation.Endpoint,
	}
	for key, target := range overrides {
		if v := viper.GetString(key); v != "" {
			*target = v
		}
	}
	if viper.IsSet("telemetry") {
		cfg.Telemetry.Enabled = viper.GetBool("telemetry")
	}

	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), []string{"Check IDEABID_* environment variables and flags"})
	}

	setupLogging(cfg.Logging)
	return cfg, nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
