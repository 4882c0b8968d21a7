// Package events carries "resolution changed" notifications from the
// pipeline to whoever renders its output. The pipeline publishes;
// it does not know or care who listens.
package events

import (
	"sync"
	"time"
)

// Type identifies what changed.
type Type string

const (
	// AliasChanged fires after a merchant alias is set, removed or a
	// whole display group is renamed.
	AliasChanged Type = "alias_changed"
	// InclusionChanged fires after a merchant's include-in-totals flag
	// is toggled.
	InclusionChanged Type = "inclusion_changed"
	// SyncCompleted fires after a message sync pass finishes.
	SyncCompleted Type = "sync_completed"
)

// Event describes one resolution change.
type Event struct {
	Type               Type
	NormalizedMerchant string
	DisplayName        string
	At                 time.Time
}

// Broker fans events out to subscribers. Publishing never blocks: a
// subscriber that stops draining its channel loses events rather than
// stalling a pipeline write.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func removes the
// subscription and closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room to take it.
func (b *Broker) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
