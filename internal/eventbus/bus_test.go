package eventbus

import (
	"testing"
	"time"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(1)
	defer unsubA()
	c, unsubC := b.Subscribe(1)
	defer unsubC()

	b.Publish(Event{Type: TypeRegistryAdded, Data: RegistryChange{ID: 7, Total: 1}})

	for i, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != TypeRegistryAdded {
				t.Fatalf("sub %d: type = %q", i, e.Type)
			}
			if e.Time.IsZero() {
				t.Fatalf("sub %d: expected publish time to be stamped", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub %d: event not delivered", i)
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"}) // buffer full, dropped

	if e := <-ch; e.Type != "a" {
		t.Fatalf("got %q, want first event", e.Type)
	}
	if b.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", b.Dropped())
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %q", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannelAndPublishSurvives(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
	b.Publish(Event{Type: "after"})
	Publish(nil, "nil-bus", nil)
}

func TestSubscribeFiltersByType(t *testing.T) {
	b := New()
	orders, unsub := b.Subscribe(4, TypeOrderSubmitted, TypeOrderCancelled)
	defer unsub()

	Publish(b, TypeRegistryAdded, RegistryChange{ID: 1, Total: 1})
	Publish(b, TypeOrderCancelled, int64(10))
	Publish(b, TypeSessionEvicted, int64(11))

	select {
	case e := <-orders:
		if e.Type != TypeOrderCancelled {
			t.Fatalf("got %q", e.Type)
		}
	default:
		t.Fatal("order event not delivered")
	}
	select {
	case e := <-orders:
		t.Fatalf("unexpected %q on filtered subscription", e.Type)
	default:
	}
	if b.Dropped() != 0 {
		t.Fatalf("filtered events counted as dropped: %d", b.Dropped())
	}
}
