// Package store defines where sessions live and how their events leave the engine.
//
// *bidding.Client satisfies both interfaces against Redis; MemorySessionStore and Bus
// are the in-process equivalents used when Redis is not configured.
package store

import (
	"context"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// SessionStore is the session repository injected into the orchestrator.
type SessionStore interface {
	// CreateSession stores a new session or returns bidding.ErrSessionExists.
	CreateSession(ctx context.Context, s *bidding.Session) error

	// GetSession returns a snapshot including the message log, or bidding.ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*bidding.Session, error)

	// UpdateSession replaces the scalar fields of an existing session.
	UpdateSession(ctx context.Context, s *bidding.Session) error

	// AppendMessage adds one message to the session's log.
	AppendMessage(ctx context.Context, sessionID string, msg *bidding.Message) error

	// ListSessionIDs returns every stored session id.
	ListSessionIDs(ctx context.Context) ([]string, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Publisher delivers session events to the realtime layer.
type Publisher interface {
	Publish(ctx context.Context, channelID string, event *bidding.Event) error
}

var (
	_ SessionStore = (*bidding.Client)(nil)
	_ Publisher    = (*bidding.Client)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
	_ Publisher    = (*Bus)(nil)
)
