// Package orchestrator runs bidding sessions: it drives every persona through the
// timed phases, gates bids on the shared budget ledger and assembles the result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dyluth/ideabid/internal/budget"
	"github.com/dyluth/ideabid/internal/generation"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/internal/persona"
	"github.com/dyluth/ideabid/internal/store"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// ErrSessionTerminal is returned when cancelling a session that already finished.
var ErrSessionTerminal = errors.New("session already finished")

// Archiver records finished sessions. Failures are logged, never fatal.
type Archiver interface {
	Record(ctx context.Context, s *bidding.Session) error
}

// Options wires an Engine. Store, Publisher, Ledger and Generator are required.
type Options struct {
	Store        store.SessionStore
	Publisher    store.Publisher
	Ledger       budget.Ledger
	Generator    generation.Generator
	Personas     []bidding.Persona // Defaults to persona.Default()
	Maturity     *maturity.Scorer  // Defaults to maturity.DefaultScorer()
	Reports      ReportBuilder     // Defaults to DefaultReportBuilder
	Archiver     Archiver          // Optional
	Clock        clock.Clock       // Defaults to the wall clock
	Random       *persona.Random   // Defaults to a time-seeded source
	Config       Config
	InstanceName string
}

// Engine is the session orchestrator. Sessions run independently; the ledger is the
// only state they share.
type Engine struct {
	store     store.SessionStore
	publisher store.Publisher
	ledger    budget.Ledger
	generator generation.Generator
	personas  []bidding.Persona
	scorer    *persona.Scorer
	deriver   *persona.Deriver
	maturity  *maturity.Scorer
	reports   ReportBuilder
	archiver  Archiver
	clock     clock.Clock
	rng       *persona.Random
	cfg       Config
	instance  string

	mu   sync.Mutex
	runs map[string]*run // active sessions only
	wg   sync.WaitGroup
}

// run is the in-memory state of one active session. mu guards session and every
// transition; the generation counter inside session is the token that makes stale
// timers and in-flight messages no-ops.
type run struct {
	mu          sync.Mutex
	session     *bidding.Session
	ctx         context.Context
	cancel      context.CancelFunc
	phaseCancel context.CancelFunc
	timer       *clock.Timer
}

// current reports whether gen is still the live generation of an active session.
func (r *run) current(gen uint64) bool {
	return r.session.Status == bidding.SessionStatusActive && r.session.Generation == gen
}

// NewEngine validates opts and returns a ready engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("budget ledger is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	personas := opts.Personas
	if len(personas) == 0 {
		personas = persona.Default()
	}
	for i := range personas {
		if err := personas[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid persona: %w", err)
		}
	}

	rng := opts.Random
	if rng == nil {
		rng = persona.NewRandom(time.Now().UnixNano())
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	scorer := opts.Maturity
	if scorer == nil {
		scorer = maturity.DefaultScorer()
	}
	reports := opts.Reports
	if reports == nil {
		reports = DefaultReportBuilder{}
	}
	instance := opts.InstanceName
	if instance == "" {
		instance = "default"
	}

	return &Engine{
		store:     opts.Store,
		publisher: opts.Publisher,
		ledger:    opts.Ledger,
		generator: opts.Generator,
		personas:  personas,
		scorer:    persona.NewScorer(rng),
		deriver:   persona.NewDeriver(rng),
		maturity:  scorer,
		reports:   reports,
		archiver:  opts.Archiver,
		clock:     clk,
		rng:       rng,
		cfg:       opts.Config.withDefaults(),
		instance:  instance,
		runs:      make(map[string]*run),
	}, nil
}

// Personas returns the roster in speaking order.
func (e *Engine) Personas() []bidding.Persona {
	return append([]bidding.Persona(nil), e.personas...)
}

// CreateRequest starts a session. SessionID is generated when empty.
type CreateRequest struct {
	IdeaID    string `json:"idea_id"`
	IdeaText  string `json:"idea_text"`
	Theme     string `json:"theme,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Create starts a new session in the warmup phase and returns its snapshot.
// Returns bidding.ErrSessionExists if the id is already taken.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*bidding.Session, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.New().String()
	}
	ideaID := req.IdeaID
	if ideaID == "" {
		ideaID = uuid.New().String()
	}

	// Reserve the id before touching the store so concurrent creates cannot both win.
	// r is locked until it holds a session, so a racing Cancel waits for it.
	r := &run{}
	r.mu.Lock()
	defer r.mu.Unlock()

	e.mu.Lock()
	if _, exists := e.runs[id]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, bidding.ErrSessionExists)
	}
	e.runs[id] = r
	e.mu.Unlock()

	session := &bidding.Session{
		ID:          id,
		IdeaID:      ideaID,
		IdeaText:    req.IdeaText,
		Theme:       req.Theme,
		Phase:       bidding.PhaseWarmup,
		MaxRounds:   e.cfg.MaxRounds,
		CurrentBids: map[string]int{},
		Messages:    []bidding.Message{},
		Status:      bidding.SessionStatusActive,
		CreatedAt:   e.clock.Now().UTC(),
	}

	if err := e.store.CreateSession(ctx, session); err != nil {
		e.forget(id, r)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.session = session
	r.ctx = runCtx
	r.cancel = cancel

	e.logEvent("session_created", map[string]interface{}{
		"session_id": id,
		"idea_id":    ideaID,
		"personas":   len(e.personas),
	})

	e.enterPhase(r, bidding.PhaseWarmup)
	return r.session.Clone(), nil
}

// Get returns the stored snapshot of a session, active or finished.
func (e *Engine) Get(ctx context.Context, sessionID string) (*bidding.Session, error) {
	return e.store.GetSession(ctx, sessionID)
}

// ActiveIDs returns the ids of running sessions in lexical order.
func (e *Engine) ActiveIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns snapshots of every stored session, or only running ones.
func (e *Engine) List(ctx context.Context, activeOnly bool) ([]*bidding.Session, error) {
	var ids []string
	if activeOnly {
		ids = e.ActiveIDs()
	} else {
		stored, err := e.store.ListSessionIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		ids = stored
		sort.Strings(ids)
	}

	sessions := make([]*bidding.Session, 0, len(ids))
	for _, id := range ids {
		s, err := e.store.GetSession(ctx, id)
		if err != nil {
			if bidding.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Cancel stops a running session. Pending timers and in-flight messages for it
// become no-ops. Returns ErrSessionTerminal if it already finished.
func (e *Engine) Cancel(ctx context.Context, sessionID, reason string) (*bidding.Session, error) {
	r := e.lookup(sessionID)
	if r == nil {
		s, err := e.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if s.Status.Terminal() {
			return nil, fmt.Errorf("session %s is %s: %w", sessionID, s.Status, ErrSessionTerminal)
		}
		return nil, fmt.Errorf("session %s is not running on this engine: %w", sessionID, bidding.ErrSessionNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, bidding.ErrSessionNotFound)
	}
	if r.session.Status.Terminal() {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionTerminal)
	}
	if reason == "" {
		reason = "cancelled"
	}

	now := e.clock.Now().UTC()
	r.session.Status = bidding.SessionStatusCancelled
	r.session.CancelCause = reason
	r.session.Generation++
	r.session.EndedAt = &now
	e.stopPhase(r)
	r.cancel()

	e.persist(r)
	e.publish(r, &bidding.Event{
		Type:  bidding.EventPhaseChange,
		Phase: r.session.Phase,
		Round: r.session.Round,
		Data: map[string]any{
			"status": string(bidding.SessionStatusCancelled),
			"reason": reason,
		},
	})
	e.logEvent("session_cancelled", map[string]interface{}{
		"session_id": sessionID,
		"phase":      string(r.session.Phase),
		"reason":     reason,
	})

	e.forget(sessionID, r)
	return r.session.Clone(), nil
}

// Shutdown cancels every running session and waits for their runners to exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, id := range e.ActiveIDs() {
		if _, err := e.Cancel(ctx, id, "shutdown"); err != nil && !errors.Is(err, ErrSessionTerminal) {
			log.Warn().Err(err).Str("session_id", id).Msg("failed to cancel session during shutdown")
		}
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for sessions to stop: %w", ctx.Err())
	}
}

func (e *Engine) lookup(sessionID string) *run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs[sessionID]
}

// forget drops r from the active set if it is still registered under id.
func (e *Engine) forget(id string, r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runs[id] == r {
		delete(e.runs, id)
	}
}

// persist writes the scalar session state. Must be called with r.mu held.
func (e *Engine) persist(r *run) {
	if err := e.store.UpdateSession(context.Background(), r.session); err != nil {
		log.Error().Err(err).Str("session_id", r.session.ID).Msg("failed to persist session")
	}
}

// publish stamps and sends an event for r. Must be called with r.mu held so events
// for one session go out in order.
func (e *Engine) publish(r *run, event *bidding.Event) {
	event.SessionID = r.session.ID
	event.Timestamp = e.clock.Now().UTC()
	if err := e.publisher.Publish(context.Background(), r.session.ID, event); err != nil {
		log.Warn().Err(err).
			Str("session_id", r.session.ID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish event")
	}
}

// logEvent logs a structured state-change event.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	log.Info().
		Str("component", "orchestrator").
		Str("event_type", eventType).
		Str("instance", e.instance).
		Fields(data).
		Msg(eventType)
}
