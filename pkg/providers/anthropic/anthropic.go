// Package anthropic provides a Reasoner backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/reedham/tether/pkg/modeladapter/usage"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

const (
	messagesPath     = "/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

var _ reasoner.Reasoner = (*Adapter)(nil)

// Adapter implements reasoner.Reasoner over the Anthropic Messages API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for the given endpoint. baseURL carries no trailing
// slash; "https://api.anthropic.com" for Anthropic itself.
func New(baseURL, apiKey, model string) *Adapter {
	return &Adapter{ModelAdapter: modeladapter.ModelAdapter{
		BaseURL:      baseURL,
		Auth:         modeladapter.Auth{Key: apiKey, Header: "x-api-key"},
		Name:         model,
		MaxTokens:    defaultMaxTokens,
		Headers:      map[string]string{"anthropic-version": apiVersion},
		HeaderParser: modeladapter.ParseAnthropicRateLimitHeaders,
	}}
}

// Decide sends the conversation to the Messages endpoint and maps the reply
// onto a Decision: tool_use blocks become an ActionRequest, otherwise the
// text blocks form a Final answer.
func (a *Adapter) Decide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (reasoner.Decision, error) {
	req := a.buildRequest(c, tools)

	var resp wireResponse
	if err := a.PostJSON(ctx, messagesPath, req, &resp); err != nil {
		return reasoner.Decision{}, fmt.Errorf("anthropic: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	return parseResponse(resp)
}

// Messages API wire format. wireBlock is the union of every content block
// shape the loop sends or reads; unused fields stay empty and omitempty keeps
// them off the wire.

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []wireToolDef `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type wireToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireResponse struct {
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      wireUsage   `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) wireRequest {
	req := wireRequest{
		Model:     a.Name,
		MaxTokens: a.MaxTokens,
		System:    c.SystemPrompt(),
		Tools:     toolDefs(tools),
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	for _, m := range c.All() {
		if m.Role != role.System {
			appendBlocks(&req.Messages, m)
		}
	}

	return req
}

func toolDefs(tools []toolbox.Tool) []wireToolDef {
	if len(tools) == 0 {
		return nil
	}

	defs := make([]wireToolDef, len(tools))
	for i, t := range tools {
		defs[i] = wireToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
		if defs[i].InputSchema == nil {
			defs[i].InputSchema = json.RawMessage(`{"type":"object"}`)
		}
	}
	return defs
}

// appendBlocks converts one conversation message into wire blocks. The API
// wants alternating user/assistant turns, so consecutive blocks that land on
// the same wire role merge into the previous message instead of opening a new
// one. Tool results always travel under the "user" role.
func appendBlocks(msgs *[]wireMessage, m message.Message) {
	for _, p := range m.Parts {
		block, ok := blockFor(p)
		if !ok {
			continue
		}

		r := "user"
		if m.Role == role.Assistant && block.Type != "tool_result" {
			r = "assistant"
		}

		if n := len(*msgs); n > 0 && (*msgs)[n-1].Role == r {
			(*msgs)[n-1].Content = append((*msgs)[n-1].Content, block)
			continue
		}

		*msgs = append(*msgs, wireMessage{Role: r, Content: []wireBlock{block}})
	}
}

func blockFor(p content.Part) (wireBlock, bool) {
	switch v := p.(type) {
	case content.Text:
		return wireBlock{Type: "text", Text: v.Text}, true
	case content.ToolCall:
		input := json.RawMessage(v.Arguments)
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		return wireBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input}, true
	case content.ToolResult:
		return wireBlock{Type: "tool_result", ToolUseID: v.ToolCallID, Content: v.Content}, true
	default:
		return wireBlock{}, false
	}
}

// parseResponse maps the reply blocks onto a Decision and validates it, so a
// malformed reply (no text and no tool_use blocks, or an unnamed tool_use)
// surfaces as an error rather than a bogus decision.
func parseResponse(resp wireResponse) (reasoner.Decision, error) {
	var text strings.Builder
	var calls []content.ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			calls = append(calls, content.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	var d reasoner.Decision
	if len(calls) == 0 {
		d = reasoner.Answer(text.String())
	} else {
		d = reasoner.Act(text.String(), calls...)
	}

	if err := d.Validate(); err != nil {
		return reasoner.Decision{}, fmt.Errorf("anthropic: %w", err)
	}

	return d, nil
}
