// Package generation produces persona message text. Generators are collaborators of
// the orchestrator: they may be slow and may fail, and the caller always has a
// deterministic fallback.
package generation

import (
	"context"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Context is what a generator knows about the moment a persona speaks.
type Context struct {
	Persona bidding.Persona
	Phase   bidding.Phase
	Round   int
	Theme   string
	Score   float64
	Bid     *int              // Set for bid messages
	Recent  []bidding.Message // Latest messages in the session, oldest first
}

// Result is generated message content plus usage accounting.
type Result struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
}

// Generator writes one persona message about an idea.
type Generator interface {
	Generate(ctx context.Context, personaID, ideaText string, gc Context) (*Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, personaID, ideaText string, gc Context) (*Result, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, personaID, ideaText string, gc Context) (*Result, error) {
	return f(ctx, personaID, ideaText, gc)
}
