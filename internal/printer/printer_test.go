package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/ideabid/internal/archive"
	"github.com/dyluth/ideabid/internal/maturity"
	"github.com/dyluth/ideabid/pkg/bidding"
)

// capture redirects output into buffers with colors off for the test duration.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	previous, prevOut, prevErr := color.NoColor, out, errOut
	color.NoColor = true
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		color.NoColor = previous
		SetOutput(prevOut, prevErr)
	})
	return &stdout, &stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "This is a test error")
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Test Error", "Explanation", []string{"Try this fix"})
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Test Error", "Explanation", []string{"First", "Second"})
		assert.Contains(t, stderr.String(), "Either:\n  1. First\n  2. Second\n")
	})

	t.Run("context keys are sorted", func(t *testing.T) {
		_, stderr := capture(t)
		ErrorWithContext("Test Error", "", map[string]string{"zeta": "1", "alpha": "2"}, nil)
		text := stderr.String()
		assert.Less(t, bytes.Index([]byte(text), []byte("alpha")), bytes.Index([]byte(text), []byte("zeta")))
	})
}

func TestMessage(t *testing.T) {
	stdout, _ := capture(t)
	bid, pass := 150, 0

	Message("Beta", &bidding.Message{Round: 2, Content: "Solid unit economics.", BidValue: &bid})
	Message("Alex", &bidding.Message{Round: 2, Content: "Not yet.", BidValue: &pass, Fallback: true})

	text := stdout.String()
	assert.Contains(t, text, "[Beta r2] (bid 150) Solid unit economics.")
	assert.Contains(t, text, "[Alex r2] (pass) Not yet. [fallback]")
}

func TestMaturity(t *testing.T) {
	stdout, _ := capture(t)

	Maturity(&maturity.Result{
		TotalScore: 6.2,
		Level:      maturity.LevelMedium,
		Confidence: 0.8,
		Dimensions: map[maturity.Dimension]maturity.DimensionScore{
			maturity.CoreValue:     {Score: 7.5, Status: maturity.StatusClear, Evidence: []string{"saves two hours a day"}},
			maturity.BusinessModel: {Score: 3.0, Status: maturity.StatusNeedsFocus},
		},
		WeakDimensions: []maturity.Dimension{maturity.BusinessModel},
	})

	text := stdout.String()
	assert.Contains(t, text, "6.2 MEDIUM")
	assert.Contains(t, text, "\"saves two hours a day\"")
	assert.Contains(t, text, "! businessModel")
}

func TestHistory(t *testing.T) {
	t.Run("empty archive", func(t *testing.T) {
		stdout, _ := capture(t)
		History(nil)
		assert.Equal(t, "No archived sessions.\n", stdout.String())
	})

	t.Run("long ideas are truncated", func(t *testing.T) {
		stdout, _ := capture(t)
		History([]archive.Entry{{
			SessionID: "s1",
			Status:    "completed",
			IdeaText:  "A marketplace connecting retired engineers with hardware startups that need mentoring",
			EndedAt:   time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		}})
		assert.Contains(t, stdout.String(), "2026-05-01 09:30")
		assert.Contains(t, stdout.String(), "…")
	})
}
