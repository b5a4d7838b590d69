package bidding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for sessions, events and budgets.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: engine instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CreateSession writes a new session to Redis.
// The id field is claimed with HSETNX first so two concurrent creates with the same id
// cannot both succeed; the loser gets ErrSessionExists and nothing is overwritten.
func (c *Client) CreateSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	key := SessionKey(c.instanceName, s.ID)
	claimed, err := c.rdb.HSetNX(ctx, key, "id", s.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to claim session id: %w", err)
	}
	if !claimed {
		return fmt.Errorf("session %s: %w", s.ID, ErrSessionExists)
	}

	if err := c.populateSession(ctx, s); err != nil {
		if cleanupErr := c.discardSession(context.WithoutCancel(ctx), s.ID); cleanupErr != nil {
			return errors.Join(err, cleanupErr)
		}
		return err
	}

	return nil
}

// populateSession writes the fields, index entry and initial messages of a claimed session.
func (c *Client) populateSession(ctx context.Context, s *Session) error {
	if err := c.writeSession(ctx, s); err != nil {
		return err
	}

	if err := c.rdb.SAdd(ctx, SessionIndexKey(c.instanceName), s.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}

	for i := range s.Messages {
		if err := c.AppendMessage(ctx, s.ID, &s.Messages[i]); err != nil {
			return err
		}
	}

	return nil
}

// discardSession removes every key of a partially created session so its id can be reused.
func (c *Client) discardSession(ctx context.Context, sessionID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, SessionKey(c.instanceName, sessionID), SessionMessagesKey(c.instanceName, sessionID))
	pipe.SRem(ctx, SessionIndexKey(c.instanceName), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to discard partial session %s: %w", sessionID, err)
	}
	return nil
}

// GetSession retrieves a session and its full message log.
// Returns ErrSessionNotFound if the session doesn't exist.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	key := SessionKey(c.instanceName, sessionID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	session, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	rawMessages, err := c.rdb.LRange(ctx, SessionMessagesKey(c.instanceName, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session messages: %w", err)
	}

	session.Messages = make([]Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session message: %w", err)
		}
		session.Messages = append(session.Messages, msg)
	}

	return session, nil
}

// UpdateSession replaces the scalar fields of an existing session (full HSET replacement).
// The message log is append-only and is not touched; use AppendMessage.
func (c *Client) UpdateSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	exists, err := c.rdb.Exists(ctx, SessionKey(c.instanceName, s.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s: %w", s.ID, ErrSessionNotFound)
	}

	return c.writeSession(ctx, s)
}

// AppendMessage pushes one message onto the session's log.
// Returns ErrSessionNotFound if the session doesn't exist.
func (c *Client) AppendMessage(ctx context.Context, sessionID string, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	exists, err := c.rdb.Exists(ctx, SessionKey(c.instanceName, sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	if err := c.rdb.RPush(ctx, SessionMessagesKey(c.instanceName, sessionID), payload).Err(); err != nil {
		return fmt.Errorf("failed to append message to Redis: %w", err)
	}

	return nil
}

// ListSessionIDs returns the ids of every session written by this instance.
func (c *Client) ListSessionIDs(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, SessionIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func (c *Client) writeSession(ctx context.Context, s *Session) error {
	hash, err := SessionToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := c.rdb.HSet(ctx, SessionKey(c.instanceName, s.ID), hash).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil
}

// Publish sends an event to the realtime channel identified by channelID.
// Delivery is at-most-once (Redis Pub/Sub); subscribers that are not connected miss it.
func (c *Client) Publish(ctx context.Context, channelID string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, EventsChannel(c.instanceName, channelID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// EventSubscription represents an active Pub/Sub subscription to session events.
// Caller must call Close() when done to clean up resources.
type EventSubscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of decoded events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *EventSubscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of non-fatal subscription errors (undecodable payloads).
func (s *EventSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *EventSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to events published on channelID.
// The subscription is confirmed with Redis before returning so events published
// after this call are not missed.
func (c *Client) SubscribeEvents(ctx context.Context, channelID string) (*EventSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventsChannel(c.instanceName, channelID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	eventsChan := make(chan *Event, 32)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &EventSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
