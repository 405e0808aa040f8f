// Package invalidation carries "credential rejected" announcements from the
// network layer to the session layer without either importing the other.
package invalidation

import (
	"context"
	"sync"
)

// EventKind names an invalidation event.
type EventKind string

// EventLogout asks subscribers to drop the current session.
const EventLogout EventKind = "logout"

// Event is a single announcement.
type Event struct {
	Kind EventKind
	// Reason is a short machine-readable cause, e.g. "http_401".
	Reason string
	// Source identifies the publisher, e.g. the request path.
	Source string
}

// Handler reacts to an event. Handlers must be idempotent.
type Handler func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe channel. Publish runs every handler
// synchronously, exactly once per call. There is no deduplication.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

// Publish delivers ev to every current subscriber and returns how many ran.
// Handlers run outside the bus lock so they may subscribe or publish themselves.
func (b *Bus) Publish(ctx context.Context, ev Event) int {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return len(handlers)
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publisher is the narrow interface the network layer depends on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) int
}

var _ Publisher = (*Bus)(nil)
