package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/ideabid/internal/filter"
	"github.com/dyluth/ideabid/pkg/bidding"
)

func setupTestClient(t *testing.T) *bidding.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := bidding.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func newSession(id string) *bidding.Session {
	return &bidding.Session{
		ID:          id,
		IdeaID:      "idea-1",
		IdeaText:    "Shared cargo bikes for small shops",
		Phase:       bidding.PhaseWarmup,
		MaxRounds:   3,
		CurrentBids: map[string]int{},
		Status:      bidding.SessionStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPollForSession(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	t.Run("returns session when found immediately", func(t *testing.T) {
		require.NoError(t, client.CreateSession(ctx, newSession("present")))

		s, err := PollForSession(ctx, client, "present", 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "present", s.ID)
	})

	t.Run("returns session when created after delay", func(t *testing.T) {
		go func() {
			time.Sleep(300 * time.Millisecond)
			_ = client.CreateSession(context.Background(), newSession("late"))
		}()

		s, err := PollForSession(ctx, client, "late", 3*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "late", s.ID)
	})

	t.Run("times out", func(t *testing.T) {
		_, err := PollForSession(ctx, client, "never", 300*time.Millisecond)
		assert.ErrorContains(t, err, "timeout waiting for session never")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := PollForSession(cctx, client, "never", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func testEvents() []*bidding.Event {
	bid := 150
	ts := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	return []*bidding.Event{
		{Type: bidding.EventPhaseChange, Phase: bidding.PhaseBidding, Data: map[string]any{"status": "active"}, Timestamp: ts},
		{Type: bidding.EventAIMessage, Phase: bidding.PhaseBidding, Timestamp: ts,
			Message: &bidding.Message{PersonaID: "tech-pioneer-alex", Content: "The sensor stack is cheap now."}},
		{Type: bidding.EventAIBid, Phase: bidding.PhaseBidding, Timestamp: ts,
			Message: &bidding.Message{PersonaID: "business-guru-beta", Content: "I'm in.", BidValue: &bid}},
		{Type: bidding.EventSessionComplete, Phase: bidding.PhaseResult, Timestamp: ts,
			Data: map[string]any{"highest_bid": 150, "winning_persona": "business-guru-beta", "maturity_total": 6.2, "maturity_level": "MEDIUM"}},
	}
}

func feed(events []*bidding.Event) <-chan *bidding.Event {
	ch := make(chan *bidding.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return ch
}

func TestStream(t *testing.T) {
	names := map[string]string{"business-guru-beta": "Beta"}

	t.Run("default format stops at completion", func(t *testing.T) {
		var buf bytes.Buffer
		err := Stream(context.Background(), feed(testEvents()), nil, OutputFormatDefault, names, &buf)
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "phase bidding")
		assert.Contains(t, out, "tech-pioneer-alex: The sensor stack is cheap now.")
		assert.Contains(t, out, "Beta bids 150")
		assert.Contains(t, out, "complete: highest bid 150 by business-guru-beta")
	})

	t.Run("json lines honour filters", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{TypeGlob: "ai_*", PersonaID: "business-guru-beta"}
		require.NoError(t, Stream(context.Background(), feed(testEvents()), criteria, OutputFormatJSON, names, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var ev bidding.Event
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
		assert.Equal(t, bidding.EventAIBid, ev.Type)
	})

	t.Run("cancellation event ends the stream", func(t *testing.T) {
		var buf bytes.Buffer
		events := []*bidding.Event{
			{Type: bidding.EventPhaseChange, Data: map[string]any{"status": "cancelled", "reason": "operator"}},
			{Type: bidding.EventAIMessage},
		}
		require.NoError(t, Stream(context.Background(), feed(events), nil, OutputFormatDefault, nil, &buf))
		assert.Contains(t, buf.String(), "session cancelled: operator")
	})

	t.Run("closed channel is an error", func(t *testing.T) {
		ch := make(chan *bidding.Event)
		close(ch)
		err := Stream(context.Background(), ch, nil, OutputFormatDefault, nil, &bytes.Buffer{})
		assert.ErrorContains(t, err, "subscription closed")
	})

	t.Run("context cancellation returns cleanly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, Stream(ctx, make(chan *bidding.Event), nil, OutputFormatDefault, nil, &bytes.Buffer{}))
	})
}

func TestStreamFromRedis(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeEvents(ctx, "session-1")
	require.NoError(t, err)
	defer sub.Close()

	for _, ev := range testEvents() {
		ev.SessionID = "session-1"
		require.NoError(t, client.Publish(ctx, "session-1", ev))
	}

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, sub.Events(), nil, OutputFormatDefault, nil, &buf)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish at session_complete")
	}
	assert.Contains(t, buf.String(), "complete: highest bid 150")
}

func TestFinal(t *testing.T) {
	assert.True(t, Final(&bidding.Event{Type: bidding.EventSessionComplete}))
	assert.True(t, Final(&bidding.Event{Type: bidding.EventPhaseChange, Data: map[string]any{"status": "cancelled"}}))
	assert.False(t, Final(&bidding.Event{Type: bidding.EventPhaseChange, Data: map[string]any{"status": "active"}}))
	assert.False(t, Final(&bidding.Event{Type: bidding.EventAIBid}))
}
