package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("appointments.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindAppointmentsChanged, Timestamp: time.Now(), Payload: "u1"})

	select {
	case evt := <-ch:
		if evt.Kind != KindAppointmentsChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, KindAppointmentsChanged)
		}
		if evt.UserID() != "u1" {
			t.Errorf("UserID() = %q, want u1", evt.UserID())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindPresenceChanged})
	b.Publish(Event{Kind: KindMessagesChanged})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessagesChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, KindMessagesChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the presence event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("presence.", 10)
	unsub()
	unsub() // idempotent

	b.Publish(Event{Kind: KindPresenceChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("typing.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindTypingChanged, Payload: "c1"})
	// This one should be dropped (non-blocking).
	b.Publish(Event{Kind: KindTypingChanged, Payload: "c2"})

	evt := <-ch
	if evt.UserID() != "c1" {
		t.Errorf("got payload %q, want c1", evt.UserID())
	}
}
