package bidding

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Idea is the user-submitted text under evaluation. It is created outside the engine
// and never mutated while a session runs.
type Idea struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BiddingStyle shapes how strongly a persona converts interest into a score.
type BiddingStyle string

const (
	// StyleConservative damps interest (x0.9)
	StyleConservative BiddingStyle = "conservative"

	// StyleAggressive amplifies interest (x1.1)
	StyleAggressive BiddingStyle = "aggressive"

	// StyleStrategic slightly amplifies interest (x1.05)
	StyleStrategic BiddingStyle = "strategic"

	// StyleEmotional leaves interest untouched (x1.0)
	StyleEmotional BiddingStyle = "emotional"

	// StyleAnalytical slightly amplifies interest (x1.05)
	StyleAnalytical BiddingStyle = "analytical"
)

// Persona is a simulated expert agent with a fixed keyword profile and bidding style.
type Persona struct {
	ID                  string       `json:"id" yaml:"id"`
	Name                string       `json:"name" yaml:"name"`
	Title               string       `json:"title,omitempty" yaml:"title,omitempty"`
	PersonalityKeywords []string     `json:"personality_keywords" yaml:"personality_keywords"`
	TriggerKeywords     []string     `json:"trigger_keywords" yaml:"trigger_keywords"`
	BiddingStyle        BiddingStyle `json:"bidding_style" yaml:"bidding_style"`
	PrimaryProvider     string       `json:"primary_provider" yaml:"primary_provider"`
	Budget              int          `json:"budget,omitempty" yaml:"budget,omitempty"` // Default total budget; 0 = ledger default
}

// Phase is a stage of the bidding deliberation. Phases only ever move forward.
type Phase string

const (
	PhaseWarmup     Phase = "warmup"
	PhaseDiscussion Phase = "discussion"
	PhaseBidding    Phase = "bidding"
	PhasePrediction Phase = "prediction"
	PhaseResult     Phase = "result"
)

// PhaseOrder lists the phases in their only legal order.
var PhaseOrder = []Phase{PhaseWarmup, PhaseDiscussion, PhaseBidding, PhasePrediction, PhaseResult}

// SessionStatus is the lifecycle state of a bidding session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// MessageType distinguishes spoken commentary from bids.
type MessageType string

const (
	MessageTypeSpeech MessageType = "speech"
	MessageTypeBid    MessageType = "bid"
)

// Message is a single persona utterance in a session log.
type Message struct {
	ID         string      `json:"id"`
	PersonaID  string      `json:"persona_id"`
	Phase      Phase       `json:"phase"`
	Round      int         `json:"round"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	Emotion    string      `json:"emotion"`
	Confidence float64     `json:"confidence"`
	Timestamp  time.Time   `json:"timestamp"`
	BidValue   *int        `json:"bid_value,omitempty"`
	Fallback   bool        `json:"fallback,omitempty"` // Content was substituted after a generation failure
}

// Session is the full state of one bidding deliberation over an idea.
type Session struct {
	ID          string         `json:"id"`
	IdeaID      string         `json:"idea_id"`
	IdeaText    string         `json:"idea_text"`
	Theme       string         `json:"theme,omitempty"`
	Phase       Phase          `json:"phase"`
	Round       int            `json:"round"`
	MaxRounds   int            `json:"max_rounds"`
	CurrentBids map[string]int `json:"current_bids"` // persona_id -> current bid
	Messages    []Message      `json:"messages"`
	Report      *Report        `json:"report,omitempty"`
	Status      SessionStatus  `json:"status"`
	Generation  uint64         `json:"generation"` // Bumped on every phase change and on cancel
	CreatedAt   time.Time      `json:"created_at"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	CancelCause string         `json:"cancel_cause,omitempty"`
}

// Report is the result-phase summary handed to external report templates.
type Report struct {
	HighestBid      int            `json:"highest_bid"`
	WinningPersona  string         `json:"winning_persona,omitempty"`
	AverageBid      float64        `json:"average_bid"`
	FinalBids       map[string]int `json:"final_bids"`
	MessageCount    int            `json:"message_count"`
	FallbackCount   int            `json:"fallback_count"`
	Summary         string         `json:"summary"`
	MaturityTotal   float64        `json:"maturity_total"`
	MaturityLevel   string         `json:"maturity_level"`
	MaturityPayload string         `json:"maturity_payload,omitempty"` // JSON-encoded maturity result
}

// BudgetEntry is one persona's spending cap and what is left of it.
type BudgetEntry struct {
	PersonaID string `json:"persona_id"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

// EventType names the realtime events consumed by external transports.
type EventType string

const (
	EventAIMessage       EventType = "ai_message"
	EventAIBid           EventType = "ai_bid"
	EventPhaseChange     EventType = "phase_change"
	EventPredictionStart EventType = "prediction_start"
	EventSessionComplete EventType = "session_complete"
)

// Event is the payload published for every message, phase change and completion.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Phase     Phase          `json:"phase,omitempty"`
	Round     int            `json:"round,omitempty"`
	Message   *Message       `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Validate checks if the BiddingStyle is a valid enum value.
func (s BiddingStyle) Validate() error {
	switch s {
	case StyleConservative, StyleAggressive, StyleStrategic, StyleEmotional, StyleAnalytical:
		return nil
	default:
		return fmt.Errorf("unknown bidding style: %q", s)
	}
}

// Validate checks if the Phase is a valid enum value.
func (p Phase) Validate() error {
	if p.index() < 0 {
		return fmt.Errorf("unknown phase: %q", p)
	}
	return nil
}

// Next returns the phase that follows p. The result phase has no successor.
func (p Phase) Next() (Phase, bool) {
	i := p.index()
	if i < 0 || i == len(PhaseOrder)-1 {
		return "", false
	}
	return PhaseOrder[i+1], true
}

// Before reports whether p comes strictly before other in PhaseOrder.
func (p Phase) Before(other Phase) bool {
	return p.index() >= 0 && p.index() < other.index()
}

func (p Phase) index() int {
	for i, candidate := range PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Validate checks if the SessionStatus is a valid enum value.
func (s SessionStatus) Validate() error {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusCancelled:
		return nil
	default:
		return fmt.Errorf("unknown session status: %q", s)
	}
}

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// Validate checks if the MessageType is a valid enum value.
func (t MessageType) Validate() error {
	switch t {
	case MessageTypeSpeech, MessageTypeBid:
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", t)
	}
}

// Validate checks if the Persona has valid field values.
func (p *Persona) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("persona id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("persona '%s': name is required", p.ID)
	}
	if len(p.PersonalityKeywords) == 0 {
		return fmt.Errorf("persona '%s': at least one personality keyword is required", p.ID)
	}
	if err := p.BiddingStyle.Validate(); err != nil {
		return fmt.Errorf("persona '%s': %w", p.ID, err)
	}
	if p.Budget < 0 {
		return fmt.Errorf("persona '%s': budget must be >= 0, got %d", p.ID, p.Budget)
	}
	return nil
}

// Validate checks if the Message has valid field values.
// Bid messages must carry a bid value within [0, MaxBid].
func (m *Message) Validate() error {
	if !isValidUUID(m.ID) {
		return fmt.Errorf("invalid message ID: not a valid UUID")
	}
	if m.PersonaID == "" {
		return fmt.Errorf("message persona_id cannot be empty")
	}
	if err := m.Phase.Validate(); err != nil {
		return fmt.Errorf("invalid phase: %w", err)
	}
	if err := m.Type.Validate(); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}
	if m.Type == MessageTypeBid {
		if m.BidValue == nil {
			return fmt.Errorf("bid message missing bid_value")
		}
		if *m.BidValue < 0 || *m.BidValue > MaxBid {
			return fmt.Errorf("bid_value must be within [0,%d], got %d", MaxBid, *m.BidValue)
		}
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v", m.Confidence)
	}
	return nil
}

// Validate checks if the Session has valid field values.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if s.IdeaID == "" {
		return fmt.Errorf("idea id cannot be empty")
	}
	if err := s.Phase.Validate(); err != nil {
		return fmt.Errorf("invalid phase: %w", err)
	}
	if err := s.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}
	if s.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be >= 1, got %d", s.MaxRounds)
	}
	return nil
}

// Bid bounds shared by the deriver and every validator.
const (
	MinBid = 50
	MaxBid = 500
)

// ValidateBid enforces bid ∈ [0, remaining] and, when positive, bid ∈ [MinBid, MaxBid].
// A bid below MinBid is only legal when the remaining budget itself is below MinBid.
func ValidateBid(bid, remaining int) error {
	if bid < 0 {
		return fmt.Errorf("bid must be >= 0, got %d", bid)
	}
	if bid > remaining {
		return fmt.Errorf("bid %d exceeds remaining budget %d", bid, remaining)
	}
	if bid > MaxBid {
		return fmt.Errorf("bid %d exceeds maximum %d", bid, MaxBid)
	}
	if bid > 0 && bid < MinBid && remaining >= MinBid {
		return fmt.Errorf("bid %d below minimum %d", bid, MinBid)
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
