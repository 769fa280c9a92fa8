// Package message defines the Message type exchanged in conversations.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/role"
)

// Message is a single conversation turn. It is a value type that copies
// cheaply, and it is treated as immutable once appended to a conversation.
type Message struct {
	Sender   string
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message with the given sender, role, and content parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{
		Sender: sender,
		Role:   r,
		Parts:  parts,
	}
}

// NewText creates a message with a single Text content part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts in the message.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns all ToolCall parts in the message, in declaration order.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns all ToolResult parts in the message, in declaration order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// SetMeta sets a metadata key-value pair on the message.
// It initializes the Metadata map if nil.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta retrieves a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	v, ok := m.Metadata[key]
	return v, ok
}

type messageJSON struct {
	Sender   string          `json:"sender,omitempty"`
	Role     string          `json:"role"`
	Parts    json.RawMessage `json:"parts"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// MarshalJSON encodes the message with kind-tagged content parts.
func (m Message) MarshalJSON() ([]byte, error) {
	parts, err := content.MarshalParts(m.Parts)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	return json.Marshal(messageJSON{
		Sender:   m.Sender,
		Role:     m.Role.String(),
		Parts:    parts,
		Metadata: m.Metadata,
	})
}

// UnmarshalJSON decodes a message produced by MarshalJSON, validating the role.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("message: decode: %w", err)
	}
	r, err := role.Parse(raw.Role)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}
	parts, err := content.UnmarshalParts(raw.Parts)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}
	m.Sender = raw.Sender
	m.Role = r
	m.Parts = parts
	m.Metadata = raw.Metadata
	return nil
}
