// Package chat provides an append-only conversation container.
package chat

import (
	"encoding/json"
	"iter"
	"slices"

	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
)

// Chat holds an ordered conversation. Messages are never removed or rewritten
// once appended; history grows monotonically. The zero value is ready to use.
// Callers synchronize externally; Chat itself is not safe for concurrent use.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with the given messages.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return len(c.messages)
}

// At returns the message at index i, panicking when i is out of range.
func (c *Chat) At(i int) message.Message {
	return c.messages[i]
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	if n := len(c.messages); n > 0 {
		return c.messages[n-1], true
	}
	return message.Message{}, false
}

// Messages returns a copy of the conversation.
func (c *Chat) Messages() []message.Message {
	return slices.Clone(c.messages)
}

// All returns an index/message iterator over the conversation in order.
func (c *Chat) All() iter.Seq2[int, message.Message] {
	return slices.All(c.messages)
}

// SystemPrompt returns the text content of the first system message, or an
// empty string if there is none.
func (c *Chat) SystemPrompt() string {
	i := slices.IndexFunc(c.messages, func(m message.Message) bool { return m.Role == role.System })
	if i < 0 {
		return ""
	}
	return c.messages[i].TextContent()
}

// MarshalJSON encodes the conversation as a JSON array of messages. An empty
// conversation encodes as [] rather than null so persisted sessions stay
// round-trippable.
func (c *Chat) MarshalJSON() ([]byte, error) {
	if c.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.messages)
}

// UnmarshalJSON replaces the conversation with messages decoded from data.
func (c *Chat) UnmarshalJSON(data []byte) error {
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	c.messages = msgs
	return nil
}
