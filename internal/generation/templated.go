package generation

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// Templated builds messages from persona playbooks. It never fails and never calls
// out of process, so it backs local runs and tests.
type Templated struct{}

// NewTemplated returns a template generator.
func NewTemplated() *Templated {
	return &Templated{}
}

// Generate implements Generator.
func (g *Templated) Generate(ctx context.Context, personaID, ideaText string, gc Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	highlights := persona.Highlights(gc.Persona, ideaText, 2)
	body := persona.Compose(gc.Persona, gc.Score, highlights)

	var content string
	switch {
	case gc.Bid != nil && *gc.Bid > 0:
		content = fmt.Sprintf("%s bids %d. %s", name(gc.Persona, personaID), *gc.Bid, body)
	case gc.Bid != nil:
		content = fmt.Sprintf("%s passes this round. %s", name(gc.Persona, personaID), body)
	case gc.Phase == bidding.PhasePrediction:
		content = fmt.Sprintf("My prediction: %s", body)
	default:
		content = body
	}

	return &Result{
		Content:    content,
		Confidence: gc.Score / 100,
		TokensUsed: utf8.RuneCountInString(content) / 4,
	}, nil
}

func name(p bidding.Persona, fallbackID string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallbackID
}
