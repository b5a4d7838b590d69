// Package archive keeps finished sessions in a local SQLite database so their
// reports outlive the in-memory or Redis session store.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is the summary row listed by the history command.
type Entry struct {
	SessionID      string    `json:"session_id"`
	IdeaID         string    `json:"idea_id"`
	IdeaText       string    `json:"idea_text"`
	Status         string    `json:"status"`
	HighestBid     int       `json:"highest_bid"`
	WinningPersona string    `json:"winning_persona,omitempty"`
	AverageBid     float64   `json:"average_bid"`
	MaturityTotal  float64   `json:"maturity_total"`
	MaturityLevel  string    `json:"maturity_level"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Store is a SQLite-backed session archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			idea_id TEXT NOT NULL,
			idea_text TEXT NOT NULL,
			status TEXT NOT NULL,
			highest_bid INTEGER NOT NULL DEFAULT 0,
			winning_persona TEXT,
			average_bid REAL NOT NULL DEFAULT 0,
			maturity_total REAL NOT NULL DEFAULT 0,
			maturity_level TEXT,
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished session, replacing any earlier record with the same id.
func (s *Store) Record(ctx context.Context, session *bidding.Session) error {
	if !session.Status.Terminal() {
		return fmt.Errorf("session %s is still %s", session.ID, session.Status)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ended := session.CreatedAt
	if session.EndedAt != nil {
		ended = *session.EndedAt
	}

	var report bidding.Report
	if session.Report != nil {
		report = *session.Report
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
			(id, idea_id, idea_text, status, highest_bid, winning_persona, average_bid,
			 maturity_total, maturity_level, message_count, created_at, ended_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.IdeaID, session.IdeaText, string(session.Status),
		report.HighestBid, report.WinningPersona, report.AverageBid,
		report.MaturityTotal, report.MaturityLevel, len(session.Messages),
		session.CreatedAt.UTC().Format(timeLayout), ended.UTC().Format(timeLayout),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", session.ID, err)
	}
	return nil
}

// List returns the most recently finished sessions first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, idea_id, idea_text, status, highest_bid, COALESCE(winning_persona, ''),
			average_bid, maturity_total, COALESCE(maturity_level, ''), message_count, created_at, ended_at
		FROM sessions ORDER BY ended_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created, ended string
		if err := rows.Scan(&e.SessionID, &e.IdeaID, &e.IdeaText, &e.Status, &e.HighestBid,
			&e.WinningPersona, &e.AverageBid, &e.MaturityTotal, &e.MaturityLevel,
			&e.MessageCount, &created, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		e.EndedAt, _ = time.Parse(timeLayout, ended)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive rows: %w", err)
	}
	return entries, nil
}

// Get returns the full archived session. Returns bidding.ErrSessionNotFound if it
// was never recorded.
func (s *Store) Get(ctx context.Context, sessionID string) (*bidding.Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, bidding.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archived session: %w", err)
	}

	var session bidding.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived session: %w", err)
	}
	return &session, nil
}
