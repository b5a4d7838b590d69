package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/internal/budget"
	"github.com/dyluth/ideabid/internal/config"
	"github.com/dyluth/ideabid/internal/generation"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/orchestrator"
	"github.com/dyluth/ideabid/internal/store"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// runtime holds the collaborators shared by serve and evaluate.
type runtime struct {
	cfg       *config.Config
	roster    []bidding.Persona
	store     store.SessionStore
	publisher store.Publisher
	ledger    budget.Ledger
	archive   *archive.Store
	scorer    *maturity.Scorer
	engine    *orchestrator.Engine
	closers   []func() error
}

// runtimeOptions adjusts how a runtime is wired.
type runtimeOptions struct {
	forceMemory bool                 // Ignore storage.backend and keep everything in process
	templated   bool                 // Ignore generation.provider and use the template generator
	publisher   store.Publisher      // Overrides the configured publisher
	pacing      *orchestrator.Config // Overrides session pacing
}

// newRuntime wires stores, ledger, generator and engine from cfg.
func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	roster, err := cfg.Roster()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, roster: roster}
	totals := cfg.BudgetTotals(roster)

	if cfg.Storage.Backend == "redis" && !opts.forceMemory {
		client, err := redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.store = client
		rt.publisher = client
		rt.ledger = budget.NewRedisLedger(client, totals)
	} else {
		rt.store = store.NewMemorySessionStore()
		rt.publisher = store.NewBus()
		rt.ledger = budget.NewMemoryLedger(totals)
	}
	if opts.publisher != nil {
		rt.publisher = opts.publisher
	}

	if cfg.Storage.ArchivePath != "" {
		a, err := archive.Open(cfg.Storage.ArchivePath)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.archive = a
		rt.closers = append(rt.closers, a.Close)
	}

	generator, err := newGenerator(cfg, opts.templated)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.scorer, err = cfg.MaturityScorer()
	if err != nil {
		rt.Close()
		return nil, err
	}

	pacing := cfg.Orchestrator()
	if opts.pacing != nil {
		pacing = *opts.pacing
	}

	engineOpts := orchestrator.Options{
		Store:        rt.store,
		Publisher:    rt.publisher,
		Ledger:       rt.ledger,
		Generator:    generator,
		Personas:     roster,
		Maturity:     rt.scorer,
		Config:       pacing,
		InstanceName: cfg.Storage.Instance,
	}
	if rt.archive != nil {
		engineOpts.Archiver = rt.archive
	}

	rt.engine, err = orchestrator.NewEngine(engineOpts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases connections in reverse order of creation.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
	rt.closers = nil
}

func redisClient(ctx context.Context, cfg *config.Config) (*bidding.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}

	client, err := bidding.NewClient(redisOpts, cfg.Storage.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis not accessible at %s: %w", cfg.Storage.RedisURL, err)
	}
	return client, nil
}

func newGenerator(cfg *config.Config, templated bool) (generation.Generator, error) {
	if templated || cfg.Generation.Provider != "http" {
		return generation.NewTemplated(), nil
	}

	hc := cfg.HTTPGeneration()
	g, err := generation.NewHTTPGenerator(hc, &http.Client{Timeout: cfg.Session.GenerationTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP generator: %w", err)
	}
	if hc.APIKey == "" {
		log.Warn().Str("env", cfg.Generation.APIKeyEnv).Msg("no API key set for HTTP generation")
	}
	return g, nil
}
