package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/ideabid/internal/budget"
	"github.com/dyluth/ideabid/internal/generation"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/orchestrator"
	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// DefaultPath is where the CLI looks for configuration when no path is given.
const DefaultPath = "ideabid.yml"

// Config represents the top-level ideabid.yml configuration
type Config struct {
	Version    string            `yaml:"version"`
	Session    SessionConfig     `yaml:"session"`
	Budget     BudgetConfig      `yaml:"budget"`
	Personas   []bidding.Persona `yaml:"personas,omitempty"` // Overrides and additions to the built-in roster
	Maturity   MaturityConfig    `yaml:"maturity"`
	Generation GenerationConfig  `yaml:"generation"`
	Storage    StorageConfig     `yaml:"storage"`
	Server     ServerConfig      `yaml:"server"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// SessionConfig controls session pacing
type SessionConfig struct {
	MaxRounds         int                             `yaml:"max_rounds,omitempty"`
	PhaseDurations    map[bidding.Phase]time.Duration `yaml:"phase_durations,omitempty"`
	MessageDelays     map[bidding.Phase]DelayConfig   `yaml:"message_delays,omitempty"`
	GenerationTimeout time.Duration                   `yaml:"generation_timeout,omitempty"`
	MinContentLength  int                             `yaml:"min_content_length,omitempty"`
	HistoryWindow     int                             `yaml:"history_window,omitempty"`
}

// DelayConfig bounds the pause before a persona speaks
type DelayConfig struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// BudgetConfig sets starting budgets
type BudgetConfig struct {
	DefaultTotal int            `yaml:"default_total,omitempty"`
	Personas     map[string]int `yaml:"personas,omitempty"` // persona id -> total
}

// MaturityConfig overrides the maturity scorer's weights and level thresholds
type MaturityConfig struct {
	Weights    *maturity.Weights    `yaml:"weights,omitempty"`
	Thresholds *maturity.Thresholds `yaml:"thresholds,omitempty"`
}

// GenerationConfig selects how persona messages are written
type GenerationConfig struct {
	Provider     string            `yaml:"provider,omitempty"` // "template" (default) or "http"
	Endpoint     string            `yaml:"endpoint,omitempty"`
	APIKeyEnv    string            `yaml:"api_key_env,omitempty"` // Environment variable holding the API key
	DefaultModel string            `yaml:"default_model,omitempty"`
	Models       map[string]string `yaml:"models,omitempty"` // provider -> model
	MaxRetries   *int              `yaml:"max_retries,omitempty"`
	CostPerToken float64           `yaml:"cost_per_token,omitempty"`
}

// StorageConfig selects the session store
type StorageConfig struct {
	Backend     string `yaml:"backend,omitempty"` // "memory" (default) or "redis"
	RedisURL    string `yaml:"redis_url,omitempty"`
	Instance    string `yaml:"instance,omitempty"`
	ArchivePath string `yaml:"archive_path,omitempty"` // Empty disables the SQLite archive
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	ServiceName  string `yaml:"service_name,omitempty"`
}

// LoggingConfig configures zerolog output
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // console or json
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := &Config{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return c
}

// Validate performs strict validation on the configuration and applies defaults
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Session.validate(); err != nil {
		return err
	}

	if c.Budget.DefaultTotal == 0 {
		c.Budget.DefaultTotal = budget.DefaultTotal
	}
	if c.Budget.DefaultTotal < 0 {
		return fmt.Errorf("budget.default_total must be > 0, got %d", c.Budget.DefaultTotal)
	}
	for id, total := range c.Budget.Personas {
		if total <= 0 {
			return fmt.Errorf("budget.personas.%s must be > 0, got %d", id, total)
		}
	}

	if _, err := c.Roster(); err != nil {
		return err
	}

	if c.Maturity.Weights == nil {
		w := maturity.DefaultWeights()
		c.Maturity.Weights = &w
	}
	if err := c.Maturity.Weights.Validate(); err != nil {
		return fmt.Errorf("maturity.weights: %w", err)
	}
	if c.Maturity.Thresholds == nil {
		t := maturity.DefaultThresholds()
		c.Maturity.Thresholds = &t
	}
	if err := c.Maturity.Thresholds.Validate(); err != nil {
		return fmt.Errorf("maturity.thresholds: %w", err)
	}

	if err := c.Generation.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "ideabid"
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = "localhost:4317"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	return nil
}

func (s *SessionConfig) validate() error {
	d := orchestrator.DefaultConfig()

	if s.MaxRounds == 0 {
		s.MaxRounds = d.MaxRounds
	}
	if s.MaxRounds < 1 {
		return fmt.Errorf("session.max_rounds must be >= 1, got %d", s.MaxRounds)
	}

	if s.PhaseDurations == nil {
		s.PhaseDurations = map[bidding.Phase]time.Duration{}
	}
	for phase, duration := range s.PhaseDurations {
		if err := timedPhase(phase); err != nil {
			return fmt.Errorf("session.phase_durations: %w", err)
		}
		if duration <= 0 {
			return fmt.Errorf("session.phase_durations.%s must be > 0, got %s", phase, duration)
		}
	}
	for phase, duration := range d.PhaseDurations {
		if _, ok := s.PhaseDurations[phase]; !ok {
			s.PhaseDurations[phase] = duration
		}
	}

	if s.MessageDelays == nil {
		s.MessageDelays = map[bidding.Phase]DelayConfig{}
	}
	for phase, delay := range s.MessageDelays {
		if err := timedPhase(phase); err != nil {
			return fmt.Errorf("session.message_delays: %w", err)
		}
		if delay.Min < 0 || delay.Max < delay.Min {
			return fmt.Errorf("session.message_delays.%s must satisfy 0 <= min <= max, got %s..%s", phase, delay.Min, delay.Max)
		}
	}
	for phase, delay := range d.MessageDelays {
		if _, ok := s.MessageDelays[phase]; !ok {
			s.MessageDelays[phase] = DelayConfig{Min: delay.Min, Max: delay.Max}
		}
	}

	if s.GenerationTimeout == 0 {
		s.GenerationTimeout = d.GenerationTimeout
	}
	if s.GenerationTimeout < 0 {
		return fmt.Errorf("session.generation_timeout must be > 0, got %s", s.GenerationTimeout)
	}
	if s.MinContentLength == 0 {
		s.MinContentLength = d.MinContentLength
	}
	if s.HistoryWindow == 0 {
		s.HistoryWindow = d.HistoryWindow
	}
	return nil
}

func timedPhase(p bidding.Phase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p == bidding.PhaseResult {
		return fmt.Errorf("phase %q is not timed", p)
	}
	return nil
}

func (g *GenerationConfig) validate() error {
	if g.Provider == "" {
		g.Provider = "template"
	}
	switch g.Provider {
	case "template":
	case "http":
		if g.Endpoint == "" {
			return fmt.Errorf("generation.endpoint is required when provider is 'http'")
		}
	default:
		return fmt.Errorf("invalid generation.provider: %s (must be 'template' or 'http')", g.Provider)
	}

	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "IDEABID_API_KEY"
	}
	if g.MaxRetries == nil {
		defaultRetries := 2
		g.MaxRetries = &defaultRetries
	}
	if *g.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries must be >= 0, got %d", *g.MaxRetries)
	}
	return nil
}

func (s *StorageConfig) validate() error {
	if s.Backend == "" {
		s.Backend = "memory"
	}
	switch s.Backend {
	case "memory":
	case "redis":
		if s.RedisURL == "" {
			s.RedisURL = "redis://localhost:6379/0"
		}
	default:
		return fmt.Errorf("invalid storage.backend: %s (must be 'memory' or 'redis')", s.Backend)
	}
	if s.Instance == "" {
		s.Instance = "default"
	}
	return nil
}

// Roster returns the built-in personas with configured overrides applied.
func (c *Config) Roster() ([]bidding.Persona, error) {
	roster, err := persona.Merge(persona.Default(), c.Personas)
	if err != nil {
		return nil, fmt.Errorf("personas: %w", err)
	}
	return roster, nil
}

// BudgetTotals resolves each persona's starting budget. Explicit budget.personas
// entries win over a persona's own budget field.
func (c *Config) BudgetTotals(roster []bidding.Persona) budget.Totals {
	totals := budget.TotalsFromPersonas(roster, c.Budget.DefaultTotal)
	for id, total := range c.Budget.Personas {
		totals[id] = total
	}
	return totals
}

// Orchestrator converts session settings to engine configuration.
func (c *Config) Orchestrator() orchestrator.Config {
	delays := make(map[bidding.Phase]orchestrator.DelayRange, len(c.Session.MessageDelays))
	for phase, d := range c.Session.MessageDelays {
		delays[phase] = orchestrator.DelayRange{Min: d.Min, Max: d.Max}
	}
	durations := make(map[bidding.Phase]time.Duration, len(c.Session.PhaseDurations))
	for phase, d := range c.Session.PhaseDurations {
		durations[phase] = d
	}

	return orchestrator.Config{
		MaxRounds:         c.Session.MaxRounds,
		PhaseDurations:    durations,
		MessageDelays:     delays,
		GenerationTimeout: c.Session.GenerationTimeout,
		MinContentLength:  c.Session.MinContentLength,
		HistoryWindow:     c.Session.HistoryWindow,
	}
}

// MaturityScorer builds a scorer from the configured weights and thresholds.
func (c *Config) MaturityScorer() (*maturity.Scorer, error) {
	w, t := maturity.DefaultWeights(), maturity.DefaultThresholds()
	if c.Maturity.Weights != nil {
		w = *c.Maturity.Weights
	}
	if c.Maturity.Thresholds != nil {
		t = *c.Maturity.Thresholds
	}
	return maturity.NewScorer(w, t)
}

// HTTPGeneration returns the HTTP generator settings, reading the API key from the
// configured environment variable.
func (c *Config) HTTPGeneration() generation.HTTPConfig {
	retries := 0
	if c.Generation.MaxRetries != nil {
		retries = *c.Generation.MaxRetries
	}
	return generation.HTTPConfig{
		Endpoint:     c.Generation.Endpoint,
		APIKey:       os.Getenv(c.Generation.APIKeyEnv),
		DefaultModel: c.Generation.DefaultModel,
		Models:       c.Generation.Models,
		MaxRetries:   retries,
		CostPerToken: c.Generation.CostPerToken,
	}
}

// Load reads and validates ideabid.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
