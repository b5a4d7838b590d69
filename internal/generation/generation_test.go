package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/pkg/bidding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdea = "A subscription service that helps small cafes cut food waste cost with recurring revenue"

func beta(t *testing.T) bidding.Persona {
	p, ok := persona.Find(persona.Default(), persona.BusinessGuruBeta)
	require.True(t, ok)
	return p
}

func TestTemplated(t *testing.T) {
	g := NewTemplated()
	ctx := context.Background()
	p := beta(t)

	t.Run("speech is deterministic", func(t *testing.T) {
		gc := Context{Persona: p, Phase: bidding.PhaseDiscussion, Round: 1, Score: 70}
		first, err := g.Generate(ctx, p.ID, testIdea, gc)
		require.NoError(t, err)
		second, err := g.Generate(ctx, p.ID, testIdea, gc)
		require.NoError(t, err)

		assert.Equal(t, first.Content, second.Content)
		assert.Contains(t, first.Content, "revenue")
		assert.InDelta(t, 0.7, first.Confidence, 1e-9)
	})

	t.Run("bid mentions amount", func(t *testing.T) {
		bid := 180
		res, err := g.Generate(ctx, p.ID, testIdea, Context{Persona: p, Phase: bidding.PhaseBidding, Score: 82, Bid: &bid})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Content, "Beta bids 180."))
	})

	t.Run("zero bid passes", func(t *testing.T) {
		bid := 0
		res, err := g.Generate(ctx, p.ID, testIdea, Context{Persona: p, Phase: bidding.PhaseBidding, Score: 30, Bid: &bid})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Content, "Beta passes this round."))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.Generate(cctx, p.ID, testIdea, Context{Persona: p})
		assert.Error(t, err)
	})
}

func completion(content string, tokens int) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"total_tokens": tokens},
	}
}

func TestHTTPGenerator(t *testing.T) {
	p := beta(t)

	t.Run("sends provider model and parses completion", func(t *testing.T) {
		var gotModel, gotAuth, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			var req chatRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotModel = req.Model
			json.NewEncoder(w).Encode(completion("  Recurring revenue is the key here.  ", 120))
		}))
		defer srv.Close()

		g, err := NewHTTPGenerator(HTTPConfig{
			Endpoint:     srv.URL + "/v1/",
			APIKey:       "secret",
			DefaultModel: "fallback-model",
			Models:       map[string]string{"qwen": "qwen-max"},
			CostPerToken: 0.001,
		}, srv.Client())
		require.NoError(t, err)

		res, err := g.Generate(context.Background(), p.ID, testIdea, Context{Persona: p, Phase: bidding.PhaseWarmup, Score: 60})
		require.NoError(t, err)

		assert.Equal(t, "/v1/chat/completions", gotPath)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "qwen-max", gotModel)
		assert.Equal(t, "Recurring revenue is the key here.", res.Content)
		assert.Equal(t, 120, res.TokensUsed)
		assert.InDelta(t, 0.12, res.Cost, 1e-9)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(completion("Third time lucky.", 10))
		}))
		defer srv.Close()

		g, err := NewHTTPGenerator(HTTPConfig{
			Endpoint:       srv.URL,
			DefaultModel:   "m",
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
		}, srv.Client())
		require.NoError(t, err)

		res, err := g.Generate(context.Background(), p.ID, testIdea, Context{Persona: p})
		require.NoError(t, err)
		assert.Equal(t, "Third time lucky.", res.Content)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad model", http.StatusBadRequest)
		}))
		defer srv.Close()

		g, err := NewHTTPGenerator(HTTPConfig{
			Endpoint:       srv.URL,
			DefaultModel:   "m",
			MaxRetries:     5,
			InitialBackoff: time.Millisecond,
		}, srv.Client())
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), p.ID, testIdea, Context{Persona: p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 400")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		g, err := NewHTTPGenerator(HTTPConfig{
			Endpoint:       srv.URL,
			DefaultModel:   "m",
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
		}, srv.Client())
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), p.ID, testIdea, Context{Persona: p})
		require.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		g, err := NewHTTPGenerator(HTTPConfig{Endpoint: srv.URL, DefaultModel: "m"}, srv.Client())
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), p.ID, testIdea, Context{Persona: p})
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("configuration is validated", func(t *testing.T) {
		_, err := NewHTTPGenerator(HTTPConfig{DefaultModel: "m"}, nil)
		assert.Error(t, err)
		_, err = NewHTTPGenerator(HTTPConfig{Endpoint: "http://x"}, nil)
		assert.Error(t, err)
	})
}

func TestBuildPrompt(t *testing.T) {
	p := beta(t)
	bid := 200
	msgs := buildPrompt(p.ID, testIdea, Context{
		Persona: p,
		Phase:   bidding.PhaseBidding,
		Round:   2,
		Theme:   "sustainability",
		Score:   77,
		Bid:     &bid,
		Recent:  []bidding.Message{{PersonaID: "tech-pioneer-alex", Content: "Data pipeline looks solid."}},
	})

	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "Beta (Business Guru)")
	assert.Contains(t, msgs[1].Content, "Theme: sustainability")
	assert.Contains(t, msgs[1].Content, "You are bidding 200")
	assert.Contains(t, msgs[1].Content, "- tech-pioneer-alex: Data pipeline looks solid.")
}
