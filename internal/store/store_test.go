package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/ideabid/pkg/bidding"
)

func newSession(id string) *bidding.Session {
	return &bidding.Session{
		ID:          id,
		IdeaID:      "idea-1",
		IdeaText:    "Shared cold storage for market stall owners",
		Phase:       bidding.PhaseWarmup,
		MaxRounds:   3,
		CurrentBids: map[string]int{},
		Status:      bidding.SessionStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func newMessage() *bidding.Message {
	bid := 120
	return &bidding.Message{
		ID:         uuid.New().String(),
		PersonaID:  "business-guru-beta",
		Phase:      bidding.PhaseBidding,
		Round:      1,
		Type:       bidding.MessageTypeBid,
		Content:    "Beta bids 120.",
		Confidence: 0.6,
		Timestamp:  time.Now().UTC(),
		BidValue:   &bid,
	}
}

func redisStore(t *testing.T) *bidding.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := bidding.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// Both stores must behave the same for the orchestrator.
func TestSessionStoreContract(t *testing.T) {
	stores := map[string]SessionStore{
		"memory": NewMemorySessionStore(),
		"redis":  redisStore(t),
	}

	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.Ping(ctx))

			s := newSession("s-1")
			require.NoError(t, st.CreateSession(ctx, s))

			err := st.CreateSession(ctx, newSession("s-1"))
			assert.True(t, bidding.IsConflict(err), "duplicate create must conflict, got %v", err)

			_, err = st.GetSession(ctx, "missing")
			assert.True(t, bidding.IsNotFound(err))

			require.NoError(t, st.AppendMessage(ctx, s.ID, newMessage()))

			s.Phase = bidding.PhaseBidding
			s.CurrentBids["business-guru-beta"] = 120
			require.NoError(t, st.UpdateSession(ctx, s))

			got, err := st.GetSession(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, bidding.PhaseBidding, got.Phase)
			assert.Equal(t, 120, got.CurrentBids["business-guru-beta"])
			require.Len(t, got.Messages, 1, "update must not drop the log")
			assert.Equal(t, 120, *got.Messages[0].BidValue)

			assert.True(t, bidding.IsNotFound(st.UpdateSession(ctx, newSession("ghost"))))
			assert.True(t, bidding.IsNotFound(st.AppendMessage(ctx, "ghost", newMessage())))

			ids, err := st.ListSessionIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s-1"}, ids)
		})
	}
}

func TestMemorySessionStoreIsolation(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore()

	s := newSession("iso")
	require.NoError(t, st.CreateSession(ctx, s))
	s.CurrentBids["x"] = 999

	got, err := st.GetSession(ctx, "iso")
	require.NoError(t, err)
	assert.Empty(t, got.CurrentBids)

	got.Phase = bidding.PhaseResult
	again, err := st.GetSession(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, bidding.PhaseWarmup, again.Phase)
}

func TestBus(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()

	var order []string
	bus.Subscribe("s-1", func(channelID string, e *bidding.Event) {
		order = append(order, "specific:"+string(e.Type))
	})
	all := bus.SubscribeAll(func(channelID string, e *bidding.Event) {
		order = append(order, "all:"+channelID)
	})
	bus.Subscribe("s-1", func(string, *bidding.Event) { panic("boom") })

	require.NoError(t, bus.Publish(ctx, "s-1", &bidding.Event{Type: bidding.EventPhaseChange}))
	require.NoError(t, bus.Publish(ctx, "s-2", &bidding.Event{Type: bidding.EventAIMessage}))

	assert.Equal(t, []string{"specific:phase_change", "all:s-1", "all:s-2"}, order)

	assert.True(t, bus.Unsubscribe(all))
	assert.False(t, bus.Unsubscribe(all))

	order = nil
	require.NoError(t, bus.Publish(ctx, "s-2", &bidding.Event{Type: bidding.EventAIMessage}))
	assert.Empty(t, order)
}
