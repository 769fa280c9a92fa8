package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.C:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventBus_DeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer sub.Close()

	bus.Publish(Event{
		Kind:      EventRunStart,
		SessionID: "s1",
		Agent:     "helper",
		Timestamp: time.Now(),
	})

	got := recvEvent(t, sub)
	assert.Equal(t, EventRunStart, got.Kind)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "helper", got.Agent)
}

func TestEventBus_EverySubscriberSeesEveryEvent(t *testing.T) {
	bus := NewEventBus()

	subs := make([]*Subscription, 3)
	for i := range subs {
		subs[i] = bus.Subscribe(4)
		defer subs[i].Close()
	}

	bus.Publish(Event{Kind: EventMessageAdded})
	bus.Publish(Event{Kind: EventRunEnd})

	for _, sub := range subs {
		assert.Equal(t, EventMessageAdded, recvEvent(t, sub).Kind)
		assert.Equal(t, EventRunEnd, recvEvent(t, sub).Kind)
	}
}

func TestEventBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus()
	slow := bus.Subscribe(1)
	defer slow.Close()
	fast := bus.Subscribe(4)
	defer fast.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Publish(Event{Kind: EventToolCallStart})
		bus.Publish(Event{Kind: EventToolCallEnd}) // overflows slow's buffer
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// The slow subscriber keeps only the first event.
	assert.Equal(t, EventToolCallStart, recvEvent(t, slow).Kind)
	select {
	case e := <-slow.C:
		t.Fatalf("unexpected buffered event %q", e.Kind)
	default:
	}

	// The fast subscriber misses nothing.
	assert.Equal(t, EventToolCallStart, recvEvent(t, fast).Kind)
	assert.Equal(t, EventToolCallEnd, recvEvent(t, fast).Kind)
}

func TestSubscription_Close(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)

	sub.Close()

	_, open := <-sub.C
	require.False(t, open, "C should be closed after Close")

	sub.Close() // second close is a no-op

	bus.Publish(Event{Kind: EventError}) // no live subscribers, must not panic
}
