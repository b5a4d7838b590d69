package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dyluth/ideabid/internal/generation"
	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/pkg/bidding"
)

var tracer = otel.Tracer("github.com/dyluth/ideabid/internal/orchestrator")

// roundOffsetPerRound is added to a bid proposal for every bidding round already run.
const roundOffsetPerRound = 25

// enterPhase moves r into phase, arms the phase timer and starts the round runner.
// Must be called with r.mu held.
func (e *Engine) enterPhase(r *run, phase bidding.Phase) {
	s := r.session
	from := s.Phase
	s.Phase = phase
	s.Round = 0
	s.Generation++
	gen := s.Generation
	e.stopPhase(r)

	data := map[string]any{"status": string(s.Status)}
	if from != phase {
		data["from"] = string(from)
	}

	if phase == bidding.PhaseResult {
		e.publish(r, &bidding.Event{Type: bidding.EventPhaseChange, Phase: phase, Data: data})
		e.finish(r)
		return
	}

	// The timer is armed before anything else can fail so the session always advances.
	id := s.ID
	r.timer = e.clock.AfterFunc(e.cfg.PhaseDurations[phase], func() {
		e.advance(id, gen, phase)
	})

	phaseCtx, cancel := context.WithCancel(r.ctx)
	r.phaseCancel = cancel

	e.persist(r)
	e.publish(r, &bidding.Event{Type: bidding.EventPhaseChange, Phase: phase, Data: data})
	if phase == bidding.PhasePrediction {
		e.publish(r, &bidding.Event{Type: bidding.EventPredictionStart, Phase: phase})
	}

	e.logEvent("phase_changed", map[string]interface{}{
		"session_id": id,
		"from":       string(from),
		"to":         string(phase),
		"generation": gen,
		"duration":   e.cfg.PhaseDurations[phase].String(),
	})

	e.wg.Add(1)
	go e.runPhase(phaseCtx, r, gen, phase)
}

// stopPhase disarms the phase timer and stops the round runner. Must be called with
// r.mu held.
func (e *Engine) stopPhase(r *run) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.phaseCancel != nil {
		r.phaseCancel()
		r.phaseCancel = nil
	}
}

// advance is the phase timer callback. It only moves the session forward when the
// timer still belongs to the live generation of an active session in phase from.
func (e *Engine) advance(sessionID string, gen uint64, from bidding.Phase) {
	r := e.lookup(sessionID)
	if r == nil {
		e.logEvent("stale_timer_ignored", map[string]interface{}{
			"session_id": sessionID,
			"generation": gen,
			"phase":      string(from),
			"reason":     "session not running",
		})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil || !r.current(gen) || r.session.Phase != from {
		e.logEvent("stale_timer_ignored", map[string]interface{}{
			"session_id": sessionID,
			"generation": gen,
			"phase":      string(from),
			"reason":     "generation superseded",
		})
		return
	}

	next, ok := from.Next()
	if !ok {
		return
	}
	e.enterPhase(r, next)
}

// runPhase speaks every persona once per round, in roster order, until the phase
// ends or its rounds are exhausted. Any remaining time is left for the timer.
func (e *Engine) runPhase(ctx context.Context, r *run, gen uint64, phase bidding.Phase) {
	defer e.wg.Done()

	delays := e.cfg.MessageDelays[phase]
	for round := 1; round <= e.cfg.rounds(phase); round++ {
		for _, p := range e.personas {
			if !e.pause(ctx, delays) {
				return
			}
			if !e.speak(ctx, r, gen, phase, round, p) {
				return
			}
		}
	}
}

// pause waits a random delay within d. Returns false if ctx ends first.
func (e *Engine) pause(ctx context.Context, d DelayRange) bool {
	delay := e.rng.Duration(d.Min, d.Max)
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := e.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// turn is the session state a persona sees when it starts speaking.
type turn struct {
	ideaText string
	theme    string
	bids     map[string]int
	recent   []bidding.Message
}

// speak produces one message for p. Returns false once the generation is stale, in
// which case nothing is written.
func (e *Engine) speak(ctx context.Context, r *run, gen uint64, phase bidding.Phase, round int, p bidding.Persona) bool {
	r.mu.Lock()
	if !r.current(gen) {
		r.mu.Unlock()
		return false
	}
	t := e.snapshot(r.session)
	sessionID := r.session.ID
	r.mu.Unlock()

	score := e.scorer.Score(p, t.ideaText, t.theme, t.bids)

	var bid *int
	remaining := 0
	if phase == bidding.PhaseBidding {
		entry, err := e.ledger.Get(ctx, p.ID)
		if err != nil {
			log.Warn().Err(err).Str("persona_id", p.ID).Msg("failed to read budget, passing this round")
		} else {
			remaining = entry.Remaining
		}
		b := e.deriver.Derive(score, remaining, roundOffsetPerRound*round, t.bids)
		bid = &b
	}

	gc := generation.Context{
		Persona: p,
		Phase:   phase,
		Round:   round,
		Theme:   t.theme,
		Score:   score,
		Bid:     bid,
		Recent:  t.recent,
	}
	content, confidence, fallback := e.generate(ctx, sessionID, p, t.ideaText, gc)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.current(gen) || r.session.Phase != phase {
		e.logEvent("stale_message_dropped", map[string]interface{}{
			"session_id": sessionID,
			"persona_id": p.ID,
			"phase":      string(phase),
			"generation": gen,
		})
		return false
	}

	msg := bidding.Message{
		ID:         uuid.New().String(),
		PersonaID:  p.ID,
		Phase:      phase,
		Round:      round,
		Type:       bidding.MessageTypeSpeech,
		Content:    content,
		Emotion:    persona.Emotion(score),
		Confidence: confidence,
		Timestamp:  e.clock.Now().UTC(),
		Fallback:   fallback,
	}

	eventType := bidding.EventAIMessage
	if bid != nil {
		placed := e.placeBid(ctx, sessionID, p, *bid, remaining)
		if placed != *bid {
			msg.Content = passText(p)
		}
		msg.Type = bidding.MessageTypeBid
		msg.BidValue = &placed
		eventType = bidding.EventAIBid
		if placed > 0 {
			r.session.CurrentBids[p.ID] = placed
		}
	}

	if err := e.store.AppendMessage(ctx, sessionID, &msg); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("persona_id", p.ID).Msg("failed to append message")
	}
	r.session.Messages = append(r.session.Messages, msg)
	r.session.Round = round
	e.persist(r)

	published := msg
	e.publish(r, &bidding.Event{Type: eventType, Phase: phase, Round: round, Message: &published})
	return true
}

// snapshot copies what a persona needs so scoring and generation run unlocked.
func (e *Engine) snapshot(s *bidding.Session) turn {
	bids := make(map[string]int, len(s.CurrentBids))
	for k, v := range s.CurrentBids {
		bids[k] = v
	}

	start := len(s.Messages) - e.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}
	recent := append([]bidding.Message(nil), s.Messages[start:]...)

	return turn{ideaText: s.IdeaText, theme: s.Theme, bids: bids, recent: recent}
}

// placeBid validates and deducts a derived bid. It returns the bid actually placed,
// which is 0 when the bid is illegal or the ledger no longer covers it.
func (e *Engine) placeBid(ctx context.Context, sessionID string, p bidding.Persona, bid, remaining int) int {
	if bid == 0 {
		return 0
	}
	if err := bidding.ValidateBid(bid, remaining); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID).
			Str("persona_id", p.ID).
			Int("bid", bid).
			Int("remaining", remaining).
			Msg("derived bid violates bid bounds")
		return 0
	}

	left, err := e.ledger.Deduct(ctx, p.ID, bid)
	if err != nil {
		e.logEvent("bid_rejected", map[string]interface{}{
			"session_id": sessionID,
			"persona_id": p.ID,
			"bid":        bid,
			"error":      err.Error(),
		})
		return 0
	}

	e.logEvent("bid_placed", map[string]interface{}{
		"session_id": sessionID,
		"persona_id": p.ID,
		"bid":        bid,
		"remaining":  left,
	})
	return bid
}

// generate asks the generator for content, bounded by the generation timeout.
// Errors and too-short content fall back to deterministic text.
func (e *Engine) generate(ctx context.Context, sessionID string, p bidding.Persona, ideaText string, gc generation.Context) (string, float64, bool) {
	ctx, span := tracer.Start(ctx, "orchestrator.generate")
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("persona.id", p.ID),
		attribute.String("phase", string(gc.Phase)),
		attribute.Int("round", gc.Round),
	)
	defer span.End()

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	started := time.Now()
	result, err := e.generator.Generate(genCtx, p.ID, ideaText, gc)

	reason := ""
	switch {
	case err != nil:
		reason = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
	case result == nil || len([]rune(result.Content)) < e.cfg.MinContentLength:
		reason = "content too short"
	}

	if reason != "" {
		log.Warn().
			Str("session_id", sessionID).
			Str("persona_id", p.ID).
			Str("phase", string(gc.Phase)).
			Str("reason", reason).
			Dur("elapsed", time.Since(started)).
			Msg("generation failed, using fallback message")
		return fallbackContent(p, gc), clampConfidence(gc.Score / 100), true
	}

	span.SetAttributes(attribute.Int("tokens", result.TokensUsed))
	return result.Content, clampConfidence(result.Confidence), false
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
