package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/dyluth/ideabid/internal/api"
	"github.com/dyluth/ideabid/internal/printer"
	"github.com/dyluth/ideabid/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Runs the session engine behind the HTTP API until interrupted.

Sessions, budgets and events use Redis when storage.backend is "redis";
otherwise everything lives in process and is lost on exit.

Examples:
  ideabid serve
  ideabid serve --addr :9090 --storage redis --redis-url redis://localhost:6379/0`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", "", "listen address (default :8080)")
	flags.String("storage", "", "session storage backend: memory or redis")
	flags.String("redis-url", "", "Redis URL for the redis backend")
	flags.String("instance", "", "instance name used to namespace Redis keys")
	flags.String("archive", "", "SQLite archive path for finished sessions")
	flags.Bool("telemetry", false, "export OpenTelemetry traces over OTLP")

	for key, flag := range map[string]string{
		"server_addr":  "addr",
		"storage":      "storage",
		"redis_url":    "redis-url",
		"instance":     "instance",
		"archive_path": "archive",
		"telemetry":    "telemetry",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return printer.Error("failed to start telemetry", err.Error(),
			[]string{"Check telemetry.otlp_endpoint", "Run with --telemetry=false"})
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn().Err(err).Msg("failed to flush telemetry")
		}
	}()

	rt, err := newRuntime(ctx, cfg, runtimeOptions{})
	if err != nil {
		return printer.ErrorWithContext("failed to start engine", err.Error(),
			map[string]string{"storage": cfg.Storage.Backend, "redis_url": cfg.Storage.RedisURL},
			[]string{"Check that Redis is running", "Use --storage memory to run without Redis"})
	}
	defer rt.Close()

	srv, err := api.NewServer(api.Deps{
		Engine:         rt.engine,
		Ledger:         rt.ledger,
		Maturity:       rt.scorer,
		Store:          rt.store,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("storage", cfg.Storage.Backend).
			Str("generator", cfg.Generation.Provider).
			Int("personas", len(rt.roster)).
			Msg("ideabid API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop http server: %w", err))
		}
		if err := rt.engine.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return printer.Error("server stopped with an error", err.Error(), nil)
	}
	printer.Success("Server stopped cleanly.\n")
	return nil
}
