package bidding

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseOrdering(t *testing.T) {
	t.Run("next follows the fixed order", func(t *testing.T) {
		expected := map[Phase]Phase{
			PhaseWarmup:     PhaseDiscussion,
			PhaseDiscussion: PhaseBidding,
			PhaseBidding:    PhasePrediction,
			PhasePrediction: PhaseResult,
		}
		for from, to := range expected {
			next, ok := from.Next()
			require.True(t, ok, "phase %s should have a successor", from)
			assert.Equal(t, to, next)
		}
	})

	t.Run("result is terminal", func(t *testing.T) {
		_, ok := PhaseResult.Next()
		assert.False(t, ok)
	})

	t.Run("before is strict and forward only", func(t *testing.T) {
		assert.True(t, PhaseWarmup.Before(PhaseResult))
		assert.False(t, PhaseBidding.Before(PhaseDiscussion))
		assert.False(t, PhaseBidding.Before(PhaseBidding))
		assert.False(t, Phase("bogus").Before(PhaseResult))
	})
}

func TestEnumValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"valid style", StyleAnalytical.Validate(), false},
		{"invalid style", BiddingStyle("reckless").Validate(), true},
		{"valid phase", PhasePrediction.Validate(), false},
		{"invalid phase", Phase("lobby").Validate(), true},
		{"valid status", SessionStatusCancelled.Validate(), false},
		{"invalid status", SessionStatus("paused").Validate(), true},
		{"valid message type", MessageTypeBid.Validate(), false},
		{"invalid message type", MessageType("vote").Validate(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.Error(t, tt.err)
			} else {
				assert.NoError(t, tt.err)
			}
		})
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, SessionStatusActive.Terminal())
	assert.True(t, SessionStatusCompleted.Terminal())
	assert.True(t, SessionStatusCancelled.Terminal())
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name      string
		bid       int
		remaining int
		wantErr   bool
	}{
		{"zero bid is always legal", 0, 0, false},
		{"minimum bid", 50, 1000, false},
		{"maximum bid", 500, 1000, false},
		{"small budget allows sub-minimum bid", 40, 40, false},
		{"negative bid", -1, 100, true},
		{"over remaining", 120, 100, true},
		{"over maximum", 501, 1000, true},
		{"below minimum with ample budget", 49, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBid(tt.bid, tt.remaining)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessageValidate(t *testing.T) {
	bid := 120
	valid := Message{
		ID:         uuid.New().String(),
		PersonaID:  "business-guru-beta",
		Phase:      PhaseBidding,
		Round:      1,
		Type:       MessageTypeBid,
		Content:    "I'll put 120 on this.",
		Confidence: 0.8,
		Timestamp:  time.Now(),
		BidValue:   &bid,
	}

	t.Run("valid bid message", func(t *testing.T) {
		m := valid
		assert.NoError(t, m.Validate())
	})

	t.Run("bid message without value", func(t *testing.T) {
		m := valid
		m.BidValue = nil
		assert.ErrorContains(t, m.Validate(), "missing bid_value")
	})

	t.Run("bid value out of range", func(t *testing.T) {
		m := valid
		tooHigh := 900
		m.BidValue = &tooHigh
		assert.Error(t, m.Validate())
	})

	t.Run("non-uuid id", func(t *testing.T) {
		m := valid
		m.ID = "msg-1"
		assert.ErrorContains(t, m.Validate(), "invalid message ID")
	})

	t.Run("confidence out of range", func(t *testing.T) {
		m := valid
		m.Confidence = 1.5
		assert.Error(t, m.Validate())
	})
}

func TestPersonaValidate(t *testing.T) {
	p := Persona{
		ID:                  "tech-pioneer-alex",
		Name:                "Alex",
		PersonalityKeywords: []string{"technology"},
		BiddingStyle:        StyleAnalytical,
	}
	require.NoError(t, p.Validate())

	p.BiddingStyle = "random"
	assert.Error(t, p.Validate())

	p.BiddingStyle = StyleAnalytical
	p.PersonalityKeywords = nil
	assert.Error(t, p.Validate())
}

func TestSessionClone(t *testing.T) {
	bid := 80
	ended := time.Now()
	original := &Session{
		ID:          "s1",
		CurrentBids: map[string]int{"a": 80},
		Messages:    []Message{{ID: "m1", BidValue: &bid}},
		Report:      &Report{FinalBids: map[string]int{"a": 80}},
		EndedAt:     &ended,
	}

	clone := original.Clone()
	clone.CurrentBids["a"] = 1
	*clone.Messages[0].BidValue = 2
	clone.Report.FinalBids["a"] = 3

	assert.Equal(t, 80, original.CurrentBids["a"])
	assert.Equal(t, 80, *original.Messages[0].BidValue)
	assert.Equal(t, 80, original.Report.FinalBids["a"])
}
