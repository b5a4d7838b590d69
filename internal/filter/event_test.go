package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/pkg/bidding"
)

func TestCriteriaMatches(t *testing.T) {
	base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	bidEvent := &bidding.Event{
		Type:      bidding.EventAIBid,
		Timestamp: base,
		Message:   &bidding.Message{PersonaID: "business-guru-beta"},
	}
	phaseEvent := &bidding.Event{Type: bidding.EventPhaseChange, Timestamp: base}

	tests := []struct {
		name     string
		criteria Criteria
		event    *bidding.Event
		want     bool
	}{
		{"empty criteria match all", Criteria{}, phaseEvent, true},
		{"type glob", Criteria{TypeGlob: "ai_*"}, bidEvent, true},
		{"type glob miss", Criteria{TypeGlob: "ai_*"}, phaseEvent, false},
		{"persona match", Criteria{PersonaID: "business-guru-beta"}, bidEvent, true},
		{"persona filter skips events without message", Criteria{PersonaID: "business-guru-beta"}, phaseEvent, false},
		{"before since", Criteria{Since: base.Add(time.Minute)}, bidEvent, false},
		{"after until", Criteria{Until: base.Add(-time.Minute)}, bidEvent, false},
		{"inside range", Criteria{Since: base.Add(-time.Minute), Until: base.Add(time.Minute)}, bidEvent, true},
		{"malformed glob never matches", Criteria{TypeGlob: "["}, bidEvent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(tt.event))
		})
	}
}

func TestCriteriaEntries(t *testing.T) {
	base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	entries := []archive.Entry{
		{SessionID: "new", EndedAt: base},
		{SessionID: "old", EndedAt: base.Add(-48 * time.Hour)},
	}

	c := Criteria{Since: base.Add(-time.Hour)}
	kept := c.Entries(entries)
	assert.Len(t, kept, 1)
	assert.Equal(t, "new", kept[0].SessionID)

	assert.Len(t, (&Criteria{}).Entries(entries), 2)
}

func TestHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{TypeGlob: "ai_bid"}).HasFilters())
	assert.True(t, (&Criteria{Since: time.Now()}).HasFilters())
}
