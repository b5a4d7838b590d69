package orchestrator

import (
	"time"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// DelayRange bounds the randomized pause before each persona speaks.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Config controls session pacing and generation limits.
type Config struct {
	MaxRounds         int
	PhaseDurations    map[bidding.Phase]time.Duration
	MessageDelays     map[bidding.Phase]DelayRange
	GenerationTimeout time.Duration
	MinContentLength  int // Generated content shorter than this (in runes) is replaced
	HistoryWindow     int // Recent messages handed to the generator
}

// DefaultConfig returns production pacing: minutes per phase, seconds per message.
func DefaultConfig() Config {
	return Config{
		MaxRounds: 3,
		PhaseDurations: map[bidding.Phase]time.Duration{
			bidding.PhaseWarmup:     3 * time.Minute,
			bidding.PhaseDiscussion: 5 * time.Minute,
			bidding.PhaseBidding:    3 * time.Minute,
			bidding.PhasePrediction: 2 * time.Minute,
		},
		MessageDelays: map[bidding.Phase]DelayRange{
			bidding.PhaseWarmup:     {Min: 2 * time.Second, Max: 4 * time.Second},
			bidding.PhaseDiscussion: {Min: 3 * time.Second, Max: 5 * time.Second},
			bidding.PhaseBidding:    {Min: 4 * time.Second, Max: 6 * time.Second},
			bidding.PhasePrediction: {Min: 2 * time.Second, Max: 4 * time.Second},
		},
		GenerationTimeout: 20 * time.Second,
		MinContentLength:  10,
		HistoryWindow:     6,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.PhaseDurations == nil {
		c.PhaseDurations = d.PhaseDurations
	}
	if c.MessageDelays == nil {
		c.MessageDelays = d.MessageDelays
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = d.GenerationTimeout
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = d.MinContentLength
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	return c
}

// rounds returns how many rounds a phase runs.
func (c Config) rounds(phase bidding.Phase) int {
	switch phase {
	case bidding.PhaseDiscussion, bidding.PhaseBidding:
		return c.MaxRounds
	case bidding.PhaseWarmup, bidding.PhasePrediction:
		return 1
	default:
		return 0
	}
}
