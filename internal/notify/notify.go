// Package notify fans out change events to in-process subscribers.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeGroupsUpdated = "groups_updated"
	TypeOpenTabs      = "open_tabs"
)

// Event describes a committed change or a request to the tab host.
type Event struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	At        int64    `json:"at"`
	GroupIDs  []string `json:"groupIds,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	NewWindow bool     `json:"newWindow,omitempty"`
}

// NewEvent returns an event with a fresh id stamped at the current time.
func NewEvent(typ string) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: typ,
		At:   time.Now().UnixMilli(),
	}
}

// Notifier receives events. Publish must not block.
type Notifier interface {
	Publish(Event)
}

// Broadcaster delivers each event to every current subscriber.
// Delivery is best effort: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
}

// NewBroadcaster returns a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[*Subscription]struct{}{}}
}

// Subscription is one listener. Read events from C.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	b      *Broadcaster
	closed bool
}

// Subscribe registers a listener with the given channel buffer size.
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, b: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.b.subs, s)
	close(s.ch)
}

// Publish sends ev to every subscriber without blocking.
func (b *Broadcaster) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At == 0 {
		ev.At = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of registered subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
