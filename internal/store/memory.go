package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// MemorySessionStore is a thread-safe in-memory SessionStore. Sessions are copied on
// the way in and out, so callers never share state with the store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*bidding.Session // key: session ID
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*bidding.Session),
	}
}

// CreateSession stores a new session.
func (s *MemorySessionStore) CreateSession(_ context.Context, session *bidding.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s: %w", session.ID, bidding.ErrSessionExists)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// GetSession retrieves a session by ID.
func (s *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*bidding.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, bidding.ErrSessionNotFound)
	}
	return session.Clone(), nil
}

// UpdateSession replaces the session state. The stored message log is kept.
func (s *MemorySessionStore) UpdateSession(_ context.Context, session *bidding.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, bidding.ErrSessionNotFound)
	}
	updated := session.Clone()
	updated.Messages = existing.Messages
	s.sessions[session.ID] = updated
	return nil
}

// AppendMessage adds a message to the session's log.
func (s *MemorySessionStore) AppendMessage(_ context.Context, sessionID string, msg *bidding.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, bidding.ErrSessionNotFound)
	}

	copied := *msg
	if msg.BidValue != nil {
		bid := *msg.BidValue
		copied.BidValue = &bid
	}
	session.Messages = append(session.Messages, copied)
	return nil
}

// ListSessionIDs returns all session ids in lexical order.
func (s *MemorySessionStore) ListSessionIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping always succeeds.
func (s *MemorySessionStore) Ping(_ context.Context) error {
	return nil
}
