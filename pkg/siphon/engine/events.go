package engine

import (
	"sync"

	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// Event is the record published to subscribers for each completed (or
// aborted) exchange, matching spec §6's event-channel shape.
type Event struct {
	Exchange wire.Exchange
	Kind     Kind // zero value (KindParseError) is meaningless unless Failed is set
	Failed   bool
}

// eventBus fans a single exchange stream out to zero or more subscribers
// without ever blocking the exchange that publishes it: delivery uses a
// bounded channel per subscriber with drop-oldest semantics under
// pressure, and publishing with no subscribers installed is a no-op. There
// is no teacher equivalent for this — a pub/sub fan-out has no role in a
// library HTTP engine — so it is new code, kept deliberately small.
type eventBus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of future events and an unsubscribe func.
// capacity bounds how many undelivered events queue before the oldest is
// dropped to make room for the newest.
func (b *eventBus) Subscribe(capacity int) (<-chan Event, func()) {
	if capacity <= 0 {
		capacity = 64
	}
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Event, capacity)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish delivers ev to every subscriber, dropping the oldest queued
// event on any subscriber whose channel is full rather than blocking.
func (b *eventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
