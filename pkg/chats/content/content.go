// Package content defines the content parts that make up conversation messages.
package content

// Kind values returned by PartKind. They double as the type tags in the
// persisted JSON form of a conversation.
const (
	KindText       = "text"
	KindToolCall   = "tool_call"
	KindToolResult = "tool_result"
)

// Part is one piece of a message's content. External packages may implement
// it to add custom content types, but only the kinds declared in this package
// survive persistence.
type Part interface {
	PartKind() string
}

// Text holds plain text.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return KindText }

// ToolCall is a model's request to invoke a named tool. Arguments stays an
// unparsed JSON string until a handler needs it. Metadata carries
// provider-specific opaque data that must survive round-trips through the
// conversation history.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Metadata  map[string]string
}

func (tc ToolCall) PartKind() string { return KindToolCall }

// ToolResult holds the outcome of a tool invocation. ToolCallID links the
// result back to the ToolCall that requested it. IsError marks failures that
// were converted into results so the conversation can continue; the loop
// never surfaces them as Go errors.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return KindToolResult }
