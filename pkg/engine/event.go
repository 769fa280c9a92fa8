package engine

import (
	"sync"
	"time"

	"github.com/reedham/tether/pkg/chats/content"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	// EventRunStart fires when a Send begins, before the loop runs.
	EventRunStart EventKind = "run_start"
	// EventRunEnd fires when a Send finishes. On success Data holds the
	// final assistant message; on failure Data is nil and an EventError
	// precedes it.
	EventRunEnd EventKind = "run_end"
	// EventMessageAdded fires once per message a run appended to the chat,
	// in conversation order. Data holds the message.Message.
	EventMessageAdded EventKind = "message_added"
	// EventToolCallStart fires when a tool call is dispatched. Data holds
	// the content.ToolCall.
	EventToolCallStart EventKind = "tool_call_start"
	// EventToolCallEnd fires when a tool call resolves. Data holds a
	// ToolCallEnded.
	EventToolCallEnd EventKind = "tool_call_end"
	// EventForcedStop fires when a run ended with a synthetic answer forced
	// by the step ceiling. Data holds the forced message.Message.
	EventForcedStop EventKind = "forced_stop"
	// EventError fires when a run fails. Data holds the error.
	EventError EventKind = "error"
)

// Event is an immutable notification of engine activity.
type Event struct {
	Kind      EventKind
	SessionID string
	Agent     string
	Timestamp time.Time
	Data      any
}

// ToolCallEnded is the Data payload of EventToolCallEnd.
type ToolCallEnded struct {
	Call    content.ToolCall
	Result  content.ToolResult
	Elapsed time.Duration
}

// Subscription receives events on C. Call Close when done reading; Close
// detaches it from the bus and closes C.
type Subscription struct {
	C <-chan Event

	bus *EventBus
	id  int
}

// Close detaches the subscription from its bus and closes C. Closing twice
// is a no-op.
func (s *Subscription) Close() {
	s.bus.drop(s.id)
}

// EventBus fans out events to all active subscriptions. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscription whose channel holds up to bufSize
// events. Size the buffer for bursts: a full buffer drops events rather than
// blocking the publisher.
func (b *EventBus) Subscribe(bufSize int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, bufSize)
	b.subs[id] = ch

	return &Subscription{C: ch, bus: b, id: id}
}

func (b *EventBus) drop(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends an event to every subscription. A subscription whose buffer
// is full misses the event, so a slow consumer can never stall a run.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
