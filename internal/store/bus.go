package store

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dyluth/ideabid/pkg/bidding"
)

// Handler receives events delivered by a Bus.
type Handler func(channelID string, event *bidding.Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous in-process Publisher. Handlers run on the publishing
// goroutine, in registration order.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // channelID -> subscriptions, "*" for all
	nextID        atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscriptions: make(map[string][]subscription)}
}

// Subscribe registers handler for events on channelID and returns an id for Unsubscribe.
func (b *Bus) Subscribe(channelID string, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscriptions[channelID] = append(b.subscriptions[channelID], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers handler for every channel.
func (b *Bus) SubscribeAll(handler Handler) uint64 {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription. Returns false if id is unknown.
func (b *Bus) Unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channelID, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[channelID] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish implements Publisher. Channel handlers run before wildcard handlers.
// A panicking handler is logged and skipped.
func (b *Bus) Publish(_ context.Context, channelID string, event *bidding.Event) error {
	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[channelID]...)
	wildcard := append([]subscription(nil), b.subscriptions["*"]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		safeCall(sub.handler, channelID, event)
	}
	for _, sub := range wildcard {
		safeCall(sub.handler, channelID, event)
	}
	return nil
}

func safeCall(handler Handler, channelID string, event *bidding.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("channel", channelID).
				Str("event_type", string(event.Type)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("event handler panicked")
		}
	}()
	handler(channelID, event)
}
