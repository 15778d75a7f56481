package notify

import (
	"sync"
	"testing"
	"time"
)

func TestBroadcaster_DeliversToAll(t *testing.T) {
	b := NewBroadcaster()
	s1 := b.Subscribe(4)
	s2 := b.Subscribe(4)
	defer s1.Close()
	defer s2.Close()

	b.Publish(Event{Type: TypeGroupsUpdated, GroupIDs: []string{"g1"}})

	for i, s := range []*Subscription{s1, s2} {
		select {
		case ev := <-s.C:
			if ev.Type != TypeGroupsUpdated {
				t.Errorf("sub %d: Type = %q", i, ev.Type)
			}
			if ev.ID == "" || ev.At == 0 {
				t.Errorf("sub %d: id/at not stamped: %+v", i, ev)
			}
			if len(ev.GroupIDs) != 1 || ev.GroupIDs[0] != "g1" {
				t.Errorf("sub %d: GroupIDs = %v", i, ev.GroupIDs)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub %d: no event", i)
		}
	}
}

func TestBroadcaster_FullSubscriberDrops(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe(1)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		b.Publish(NewEvent(TypeGroupsUpdated))
		b.Publish(NewEvent(TypeGroupsUpdated))
		b.Publish(NewEvent(TypeGroupsUpdated))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if len(s.C) != 1 {
		t.Errorf("buffered events = %d, want 1", len(s.C))
	}
}

func TestSubscription_Close(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe(1)
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", b.Subscribers())
	}

	s.Close()
	s.Close()

	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() after close = %d, want 0", b.Subscribers())
	}
	if _, ok := <-s.C; ok {
		t.Error("channel should be closed")
	}

	// Publishing after close must not panic.
	b.Publish(NewEvent(TypeOpenTabs))
}

func TestBroadcaster_ConcurrentPublishAndClose(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		s := b.Subscribe(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(NewEvent(TypeGroupsUpdated))
			}
		}()
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TypeOpenTabs)
	c := NewEvent(TypeOpenTabs)
	if a.ID == c.ID {
		t.Error("event ids should be unique")
	}
	if a.Type != TypeOpenTabs {
		t.Errorf("Type = %q", a.Type)
	}
}
