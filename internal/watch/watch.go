// Package watch streams a running session's events to a terminal or a JSON log.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/ideabid/internal/filter"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// SessionGetter reads session snapshots.
type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (*bidding.Session, error)
}

// PollForSession polls until sessionID exists, for watching a session that is
// about to be created. Polls every 200ms for the specified timeout duration.
func PollForSession(ctx context.Context, store SessionGetter, sessionID string, timeout time.Duration) (*bidding.Session, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		session, err := store.GetSession(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !bidding.IsNotFound(err) {
			return nil, fmt.Errorf("failed to query session: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for session %s after %v", sessionID, timeout)
		case <-ticker.C:
		}
	}
}

// Stream writes every event that passes criteria until the session ends, ctx is
// cancelled or the channel closes. names maps persona ids to display names.
// Returns nil when the session ends or ctx is cancelled.
func Stream(ctx context.Context, events <-chan *bidding.Event, criteria *filter.Criteria, format OutputFormat, names map[string]string, w io.Writer) error {
	if criteria == nil {
		criteria = &filter.Criteria{}
	}
	enc := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event subscription closed")
			}

			if criteria.Matches(ev) {
				var err error
				if format == OutputFormatJSON {
					err = enc.Encode(ev)
				} else {
					err = writeEvent(w, ev, names)
				}
				if err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
			}

			if Final(ev) {
				return nil
			}
		}
	}
}

// Final reports whether ev is the last event a session publishes.
func Final(ev *bidding.Event) bool {
	if ev.Type == bidding.EventSessionComplete {
		return true
	}
	return ev.Type == bidding.EventPhaseChange && ev.Data["status"] == string(bidding.SessionStatusCancelled)
}

func writeEvent(w io.Writer, ev *bidding.Event, names map[string]string) error {
	ts := ev.Timestamp.Local().Format("15:04:05")

	var err error
	switch ev.Type {
	case bidding.EventPhaseChange:
		if ev.Data["status"] == string(bidding.SessionStatusCancelled) {
			_, err = fmt.Fprintf(w, "[%s] ⛔ session cancelled: %v\n", ts, ev.Data["reason"])
		} else {
			_, err = fmt.Fprintf(w, "[%s] ▶ phase %s\n", ts, ev.Phase)
		}

	case bidding.EventPredictionStart:
		_, err = fmt.Fprintf(w, "[%s] 🔮 predictions open\n", ts)

	case bidding.EventAIMessage, bidding.EventAIBid:
		if ev.Message == nil {
			return nil
		}
		name := names[ev.Message.PersonaID]
		if name == "" {
			name = ev.Message.PersonaID
		}
		if ev.Message.BidValue != nil {
			_, err = fmt.Fprintf(w, "[%s] 💰 %s bids %d: %s\n", ts, name, *ev.Message.BidValue, ev.Message.Content)
		} else {
			_, err = fmt.Fprintf(w, "[%s] 💬 %s: %s\n", ts, name, ev.Message.Content)
		}

	case bidding.EventSessionComplete:
		_, err = fmt.Fprintf(w, "[%s] 🏁 complete: highest bid %v by %v, maturity %v (%v)\n", ts,
			ev.Data["highest_bid"], ev.Data["winning_persona"], ev.Data["maturity_total"], ev.Data["maturity_level"])

	default:
		_, err = fmt.Fprintf(w, "[%s] %s\n", ts, ev.Type)
	}
	return err
}
