package events

import "testing"

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker()
	ch1, cancel1 := b.Subscribe(1)
	ch2, cancel2 := b.Subscribe(1)
	defer cancel1()
	defer cancel2()

	b.Publish(Event{Type: AliasChanged, NormalizedMerchant: "swiggy"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != AliasChanged {
				t.Errorf("subscriber %d: Type = %v", i, ev.Type)
			}
			if ev.At.IsZero() {
				t.Errorf("subscriber %d: At not stamped", i)
			}
		default:
			t.Errorf("subscriber %d: no event", i)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe(1)
	defer cancel()

	// The second publish overflows the unread buffer and is dropped.
	b.Publish(Event{Type: SyncCompleted})
	b.Publish(Event{Type: SyncCompleted})
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe(1)
	cancel()

	b.Publish(Event{Type: SyncCompleted})

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}
}
