package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func newTestSession(id string) *Session {
	return &Session{
		ID:          id,
		IdeaID:      "idea-1",
		IdeaText:    "A subscription service that helps small cafes reduce food waste",
		Phase:       PhaseWarmup,
		Round:       0,
		MaxRounds:   3,
		CurrentBids: map[string]int{},
		Status:      SessionStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

func newTestMessage(personaID string) *Message {
	return &Message{
		ID:         uuid.New().String(),
		PersonaID:  personaID,
		Phase:      PhaseWarmup,
		Round:      1,
		Type:       MessageTypeSpeech,
		Content:    "Cafes already pay for waste pickup, that is a real budget line.",
		Emotion:    "confident",
		Confidence: 0.7,
		Timestamp:  time.Now().UTC(),
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-instance", client.instanceName)
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestCreateSession(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("creates and reads back a session", func(t *testing.T) {
		s := newTestSession("session-create")
		s.CurrentBids["tech-pioneer-alex"] = 120
		require.NoError(t, client.CreateSession(ctx, s))

		assert.True(t, mr.Exists(SessionKey("test-instance", s.ID)))

		got, err := client.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.IdeaText, got.IdeaText)
		assert.Equal(t, PhaseWarmup, got.Phase)
		assert.Equal(t, 120, got.CurrentBids["tech-pioneer-alex"])
		assert.Empty(t, got.Messages)
		assert.Nil(t, got.EndedAt)
	})

	t.Run("rejects duplicate id with conflict", func(t *testing.T) {
		s := newTestSession("session-dup")
		require.NoError(t, client.CreateSession(ctx, s))

		err := client.CreateSession(ctx, newTestSession("session-dup"))
		require.Error(t, err)
		assert.True(t, IsConflict(err))
	})

	t.Run("concurrent creates admit exactly one winner", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := client.CreateSession(ctx, newTestSession("session-race")); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
	})

	t.Run("rejects invalid session", func(t *testing.T) {
		s := newTestSession("")
		err := client.CreateSession(ctx, s)
		assert.ErrorContains(t, err, "invalid session")
	})

	t.Run("failed create leaves nothing behind", func(t *testing.T) {
		s := newTestSession("session-partial")
		bad := newTestMessage("")
		s.Messages = []Message{*newTestMessage("tech-pioneer-alex"), *bad}

		err := client.CreateSession(ctx, s)
		assert.ErrorContains(t, err, "invalid message")

		assert.False(t, mr.Exists(SessionKey("test-instance", s.ID)))
		assert.False(t, mr.Exists(SessionMessagesKey("test-instance", s.ID)))
		ids, err := client.ListSessionIDs(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, s.ID)

		_, err = client.GetSession(ctx, s.ID)
		assert.True(t, IsNotFound(err))

		require.NoError(t, client.CreateSession(ctx, newTestSession("session-partial")))
	})
}

func TestGetSessionNotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestUpdateSessionAndMessages(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	s := newTestSession("session-update")
	require.NoError(t, client.CreateSession(ctx, s))

	require.NoError(t, client.AppendMessage(ctx, s.ID, newTestMessage("tech-pioneer-alex")))
	require.NoError(t, client.AppendMessage(ctx, s.ID, newTestMessage("business-guru-beta")))

	ended := time.Now().UTC()
	s.Phase = PhaseResult
	s.Status = SessionStatusCompleted
	s.EndedAt = &ended
	s.Generation = 5
	s.Report = &Report{HighestBid: 300, WinningPersona: "business-guru-beta", FinalBids: map[string]int{"business-guru-beta": 300}}
	require.NoError(t, client.UpdateSession(ctx, s))

	got, err := client.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, got.Status)
	assert.Equal(t, PhaseResult, got.Phase)
	assert.Equal(t, uint64(5), got.Generation)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, ended.UnixMilli(), got.EndedAt.UnixMilli())
	require.NotNil(t, got.Report)
	assert.Equal(t, 300, got.Report.HighestBid)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "tech-pioneer-alex", got.Messages[0].PersonaID)
	assert.Equal(t, "business-guru-beta", got.Messages[1].PersonaID)

	t.Run("update of unknown session is not found", func(t *testing.T) {
		err := client.UpdateSession(ctx, newTestSession("never-created"))
		assert.True(t, IsNotFound(err))
	})

	t.Run("invalid message is rejected", func(t *testing.T) {
		msg := newTestMessage("x")
		msg.ID = "not-a-uuid"
		assert.Error(t, client.AppendMessage(ctx, s.ID, msg))
	})

	t.Run("session index lists ids", func(t *testing.T) {
		ids, err := client.ListSessionIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, s.ID)
	})
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeEvents(ctx, "session-events")
	require.NoError(t, err)
	defer sub.Close()

	msg := newTestMessage("tech-pioneer-alex")
	err = client.Publish(ctx, "session-events", &Event{
		Type:      EventAIMessage,
		SessionID: "session-events",
		Phase:     PhaseWarmup,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.Equal(t, EventAIMessage, event.Type)
		require.NotNil(t, event.Message)
		assert.Equal(t, msg.ID, event.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBudgetScripts(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("lazy init with default", func(t *testing.T) {
		entry, err := client.GetBudget(ctx, "p1", 1000)
		require.NoError(t, err)
		assert.Equal(t, 1000, entry.Total)
		assert.Equal(t, 1000, entry.Remaining)

		// Later defaults do not overwrite an initialised entry
		entry, err = client.GetBudget(ctx, "p1", 5)
		require.NoError(t, err)
		assert.Equal(t, 1000, entry.Total)
	})

	t.Run("deduct and fail without mutation", func(t *testing.T) {
		remaining, err := client.DeductBudget(ctx, "p2", 300, 1000)
		require.NoError(t, err)
		assert.Equal(t, 700, remaining)

		_, err = client.DeductBudget(ctx, "p2", 701, 1000)
		require.ErrorIs(t, err, ErrInsufficientBudget)

		entry, err := client.GetBudget(ctx, "p2", 1000)
		require.NoError(t, err)
		assert.Equal(t, 700, entry.Remaining)
	})

	t.Run("credit caps at total and reset restores", func(t *testing.T) {
		_, err := client.DeductBudget(ctx, "p3", 400, 1000)
		require.NoError(t, err)

		remaining, err := client.CreditBudget(ctx, "p3", 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, 700, remaining)

		remaining, err = client.CreditBudget(ctx, "p3", 1000, 1000)
		require.NoError(t, err)
		assert.Equal(t, 1000, remaining)

		_, err = client.DeductBudget(ctx, "p3", 1000, 1000)
		require.NoError(t, err)
		require.NoError(t, client.ResetBudget(ctx, "p3", 1000))

		entry, err := client.GetBudget(ctx, "p3", 1000)
		require.NoError(t, err)
		assert.Equal(t, 1000, entry.Remaining)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := client.DeductBudget(ctx, "p4", -1, 1000)
		assert.Error(t, err)
		_, err = client.CreditBudget(ctx, "p4", -1, 1000)
		assert.Error(t, err)
	})
}
