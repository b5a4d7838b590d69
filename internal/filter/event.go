// Package filter selects session events and archive entries for display.
package filter

import (
	"path/filepath"
	"time"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// Criteria defines filtering criteria. All filters are ANDed together; zero values
// match everything.
type Criteria struct {
	Since     time.Time
	Until     time.Time
	TypeGlob  string // Glob over the event type, e.g. "ai_*"
	PersonaID string // Exact match on the speaking persona
}

// Matches reports whether an event passes every criterion. Events without a
// message never match a persona filter.
func (c *Criteria) Matches(ev *bidding.Event) bool {
	if !c.inRange(ev.Timestamp) {
		return false
	}

	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, string(ev.Type))
		if err != nil || !matched {
			return false
		}
	}

	if c.PersonaID != "" && (ev.Message == nil || ev.Message.PersonaID != c.PersonaID) {
		return false
	}

	return true
}

// Entries returns the archive entries that ended inside the time range.
func (c *Criteria) Entries(entries []archive.Entry) []archive.Entry {
	if c.Since.IsZero() && c.Until.IsZero() {
		return entries
	}
	kept := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if c.inRange(e.EndedAt) {
			kept = append(kept, e)
		}
	}
	return kept
}

func (c *Criteria) inRange(t time.Time) bool {
	if !c.Since.IsZero() && t.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && t.After(c.Until) {
		return false
	}
	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() || !c.Until.IsZero() || c.TypeGlob != "" || c.PersonaID != ""
}
