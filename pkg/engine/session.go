package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/logger"
	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/reedham/tether/pkg/runloop"
)

// Session is one conversation bound to an agent's loop. It owns the chat and
// survives across runs; each Send resolves one user message into one final
// answer. Only one Send may be active at a time.
type Session struct {
	id      string
	bp      agentBlueprint
	loop    *runloop.Loop
	chat    *chat.Chat
	events  *EventBus
	store   *Store
	created time.Time

	mu     sync.Mutex
	active bool
}

func newSession(id string, bp agentBlueprint, loop *runloop.Loop, c *chat.Chat, events *EventBus, store *Store) *Session {
	return &Session{
		id:      id,
		bp:      bp,
		loop:    loop,
		chat:    c,
		events:  events,
		store:   store,
		created: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Agent returns the name of the agent this session runs.
func (s *Session) Agent() string { return s.bp.cfg.Name }

// Chat returns the underlying conversation for direct observation.
func (s *Session) Chat() *chat.Chat { return s.chat }

// Usage returns the usage reporter of the session's provider, or false when
// the provider does not report token usage.
func (s *Session) Usage() (modeladapter.UsageReporter, bool) {
	ur, ok := s.bp.reasoner.(modeladapter.UsageReporter)
	return ur, ok
}

// Send resolves a text message from the user into a final assistant answer.
// Every turn the run produces is appended to the chat and published on the
// event bus. Only one Send may be active per session.
func (s *Session) Send(ctx context.Context, text string) (message.Message, error) {
	return s.SendParts(ctx, content.Text{Text: text})
}

// SendParts is Send for callers that build their own content parts.
func (s *Session) SendParts(ctx context.Context, parts ...content.Part) (message.Message, error) {
	if err := s.acquire(); err != nil {
		return message.Message{}, err
	}
	defer s.release()

	s.publish(EventRunStart, nil)

	before := s.chat.Len()
	reply, err := s.loop.Run(ctx, s.chat, message.New("user", role.User, parts...))
	s.publishAppended(before)
	s.persist(ctx)

	if err != nil {
		s.publish(EventError, err)
		s.publish(EventRunEnd, nil)
		return message.Message{}, err
	}

	if runloop.IsForcedFinal(reply) {
		s.publish(EventForcedStop, reply)
	}
	s.publish(EventRunEnd, reply)

	return reply, nil
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("engine: session %s: another Send is already active", s.id)
	}
	s.active = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}

func (s *Session) publish(kind EventKind, data any) {
	s.events.Publish(Event{
		Kind:      kind,
		SessionID: s.id,
		Agent:     s.bp.cfg.Name,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// publishAppended emits one EventMessageAdded per message the run appended,
// in conversation order.
func (s *Session) publishAppended(from int) {
	for i := from; i < s.chat.Len(); i++ {
		s.publish(EventMessageAdded, s.chat.At(i))
	}
}

// persist saves the session when a store is configured. Failures are logged
// rather than returned: the conversation already advanced and the reply is
// still worth delivering.
func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	rec := SessionRecord{
		ID:      s.id,
		Agent:   s.bp.cfg.Name,
		Created: s.created,
		Updated: time.Now(),
		Chat:    s.chat,
	}
	if err := s.store.Save(rec); err != nil {
		logger.FromContext(ctx).Error("session save failed", "session", s.id, "error", err)
	}
}

// eventingExecutor decorates an Executor with tool lifecycle events so
// frontends can show calls as they run. Each session gets its own so events
// carry the right session ID.
type eventingExecutor struct {
	inner   runloop.Executor
	events  *EventBus
	session string
	agent   string
}

func (x *eventingExecutor) Execute(ctx context.Context, call content.ToolCall) content.ToolResult {
	x.events.Publish(Event{
		Kind:      EventToolCallStart,
		SessionID: x.session,
		Agent:     x.agent,
		Timestamp: time.Now(),
		Data:      call,
	})

	start := time.Now()
	result := x.inner.Execute(ctx, call)

	x.events.Publish(Event{
		Kind:      EventToolCallEnd,
		SessionID: x.session,
		Agent:     x.agent,
		Timestamp: time.Now(),
		Data:      ToolCallEnded{Call: call, Result: result, Elapsed: time.Since(start)},
	})

	return result
}
