package modeladapter

import (
	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

const (
	// perMessageOverhead approximates what each message costs beyond its
	// text: role marker and structure delimiters.
	perMessageOverhead = 4
	// perToolOverhead approximates what each tool definition costs beyond
	// its text: JSON wrapping and the function object structure.
	perToolOverhead = 10
)

// TokenEstimator estimates input token counts for conversations and tool
// definitions using the rough 1-token-per-4-characters heuristic for English
// text. The zero value is ready to use.
type TokenEstimator struct{}

// charsToTokens converts a character count to tokens, rounding up.
func charsToTokens(chars int) int {
	return (chars + 3) / 4
}

// partChars counts the characters a content part contributes to the request.
func partChars(p content.Part) int {
	switch v := p.(type) {
	case content.Text:
		return len(v.Text)
	case content.ToolCall:
		return len(v.ID) + len(v.Name) + len(v.Arguments)
	case content.ToolResult:
		return len(v.ToolCallID) + len(v.Content)
	default:
		return 0
	}
}

// EstimateChat estimates the input tokens a conversation will cost. The
// system prompt is counted once regardless of where the system message sits.
func (e *TokenEstimator) EstimateChat(c *chat.Chat) int {
	tokens := 0

	if sp := c.SystemPrompt(); sp != "" {
		tokens += charsToTokens(len(sp)) + perMessageOverhead
	}

	for _, m := range c.All() {
		if m.Role == role.System {
			continue
		}

		tokens += perMessageOverhead
		for _, p := range m.Parts {
			tokens += charsToTokens(partChars(p))
		}
	}

	return tokens
}

// EstimateTools estimates the token cost of declaring the given tools: name,
// description, and serialized input schema per tool, plus per-tool overhead.
func (e *TokenEstimator) EstimateTools(tools []toolbox.Tool) int {
	tokens := 0
	for _, t := range tools {
		chars := len(t.Name) + len(t.Description) + len(t.InputSchema)
		tokens += charsToTokens(chars) + perToolOverhead
	}
	return tokens
}

// EstimateTotal estimates the input tokens for a conversation combined with
// tool definitions. This is the usual entry point for pre-call estimation.
func (e *TokenEstimator) EstimateTotal(c *chat.Chat, tools []toolbox.Tool) int {
	return e.EstimateChat(c) + e.EstimateTools(tools)
}
