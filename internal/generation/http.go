package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// HTTPConfig configures an OpenAI-compatible chat completions endpoint.
type HTTPConfig struct {
	Endpoint       string            // Base URL, e.g. https://api.example.com/v1
	APIKey         string            // Sent as a bearer token when set
	DefaultModel   string            // Used when a persona's provider has no entry in Models
	Models         map[string]string // provider -> model
	MaxRetries     int               // Retries after the first attempt on 429/5xx/transport errors
	CostPerToken   float64
	InitialBackoff time.Duration
}

// HTTPGenerator calls a chat completions API. Rate limits, server errors and
// transport failures are retried with exponential backoff; other client errors are not.
type HTTPGenerator struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPGenerator creates a generator for cfg. A nil client uses http.DefaultClient.
func NewHTTPGenerator(cfg HTTPConfig, client *http.Client) (*HTTPGenerator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("generation endpoint is required")
	}
	if cfg.DefaultModel == "" && len(cfg.Models) == 0 {
		return nil, fmt.Errorf("at least one model must be configured")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGenerator{cfg: cfg, client: client}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Model returns the model used for a persona's provider.
func (g *HTTPGenerator) Model(provider string) string {
	if m, ok := g.cfg.Models[provider]; ok && m != "" {
		return m
	}
	return g.cfg.DefaultModel
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, personaID, ideaText string, gc Context) (*Result, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       g.Model(gc.Persona.PrimaryProvider),
		Messages:    buildPrompt(personaID, ideaText, gc),
		MaxTokens:   400,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var parsed chatResponse
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := g.post(ctx, payload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("generation endpoint returned HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("generation endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode chat response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.InitialBackoff
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(g.cfg.MaxRetries, 0))), ctx)

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).
			Str("persona_id", personaID).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("generation request failed, retrying")
	}

	if err := backoff.RetryNotify(operation, retry, notify); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, fmt.Errorf("failed to generate message for %s: %w", personaID, err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("generation response for %s had no choices", personaID)
	}

	tokens := parsed.Usage.TotalTokens
	return &Result{
		Content:    strings.TrimSpace(parsed.Choices[0].Message.Content),
		Confidence: gc.Score / 100,
		TokensUsed: tokens,
		Cost:       float64(tokens) * g.cfg.CostPerToken,
	}, nil
}

func (g *HTTPGenerator) post(ctx context.Context, payload []byte) (*http.Response, error) {
	url := strings.TrimRight(g.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}
	return g.client.Do(req)
}

func buildPrompt(personaID, ideaText string, gc Context) []chatMessage {
	p := gc.Persona
	system := fmt.Sprintf(
		"You are %s (%s), an expert judging startup ideas. Your interests: %s. Your bidding style is %s. "+
			"Speak in first person, in at most three short sentences, and match the language of the idea.",
		name(p, personaID), p.Title, strings.Join(p.PersonalityKeywords, ", "), p.BiddingStyle)

	var user strings.Builder
	fmt.Fprintf(&user, "Idea: %s\n", ideaText)
	if gc.Theme != "" {
		fmt.Fprintf(&user, "Theme: %s\n", gc.Theme)
	}
	fmt.Fprintf(&user, "Phase: %s, round %d. Your interest score is %.0f/100.\n", gc.Phase, gc.Round, gc.Score)
	if gc.Bid != nil {
		fmt.Fprintf(&user, "You are bidding %d. Explain your bid.\n", *gc.Bid)
	}
	if len(gc.Recent) > 0 {
		user.WriteString("Recent discussion:\n")
		for _, m := range gc.Recent {
			fmt.Fprintf(&user, "- %s: %s\n", m.PersonaID, m.Content)
		}
	}
	if gc.Phase == bidding.PhasePrediction {
		user.WriteString("Predict how this idea will do in the market over the next year.\n")
	}

	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}
