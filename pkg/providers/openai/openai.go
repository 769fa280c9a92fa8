// Package openai provides a Reasoner backed by the OpenAI Chat Completions
// API. Any OpenAI-compatible endpoint works through the baseURL, which several
// hosted model gateways expose.
package openai

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
	completionsPath  = "/v1/chat/completions"
	defaultMaxTokens = 4096
)

var _ reasoner.Reasoner = (*Adapter)(nil)

// Adapter implements reasoner.Reasoner over the OpenAI Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter for the given endpoint. baseURL carries no trailing
// slash; "https://api.openai.com" for OpenAI itself.
func New(baseURL, apiKey, model string) *Adapter {
	return &Adapter{ModelAdapter: modeladapter.ModelAdapter{
		BaseURL:      baseURL,
		Auth:         modeladapter.Auth{Key: apiKey},
		Name:         model,
		MaxTokens:    defaultMaxTokens,
		HeaderParser: modeladapter.ParseOpenAIRateLimitHeaders,
	}}
}

// Decide sends the conversation to the Chat Completions endpoint and maps the
// assistant turn onto a Decision: tool calls become an ActionRequest,
// otherwise the text is a Final answer.
func (a *Adapter) Decide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (reasoner.Decision, error) {
	req := a.buildRequest(c, tools)

	var resp wireResponse
	if err := a.PostJSON(ctx, completionsPath, req, &resp); err != nil {
		return reasoner.Decision{}, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return reasoner.Decision{}, fmt.Errorf("openai: empty choices in response")
	}

	return parseChoice(resp.Choices[0])
}

// Request wire format, per the Chat Completions reference.

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []wireToolDef `json:"tools,omitempty"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolDef struct {
	Type     string          `json:"type"`
	Function wireFunctionDef `json:"function"`
}

type wireFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Response wire format. Only the fields the loop consumes are mapped.

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Message      wireReplyMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type wireReplyMessage struct {
	Role      string         `json:"role"`
	Content   *string        `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) wireRequest {
	req := wireRequest{
		Model:     a.Name,
		MaxTokens: a.MaxTokens,
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	if len(tools) > 0 {
		req.Tools = make([]wireToolDef, len(tools))
		for i, t := range tools {
			schema := t.InputSchema
			if schema == nil {
				schema = json.RawMessage(`{"type":"object"}`)
			}
			req.Tools[i] = wireToolDef{
				Type: "function",
				Function: wireFunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  schema,
				},
			}
		}
	}

	for _, m := range c.All() {
		appendMessages(&req.Messages, m)
	}

	return req
}

// appendMessages converts one conversation message into its wire form. Roles
// map one to one except role.Tool, which fans out into a separate tool message
// per result because the API correlates results to calls individually.
func appendMessages(msgs *[]wireMessage, m message.Message) {
	switch m.Role {
	case role.System, role.User:
		text := m.TextContent()
		*msgs = append(*msgs, wireMessage{Role: m.Role.String(), Content: &text})

	case role.Assistant:
		msg := wireMessage{Role: "assistant"}
		var text strings.Builder

		for _, p := range m.Parts {
			switch v := p.(type) {
			case content.Text:
				text.WriteString(v.Text)
			case content.ToolCall:
				msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
					ID:       v.ID,
					Type:     "function",
					Function: wireFunctionCall{Name: v.Name, Arguments: v.Arguments},
				})
			}
		}

		if text.Len() > 0 {
			joined := text.String()
			msg.Content = &joined
		}

		*msgs = append(*msgs, msg)

	case role.Tool:
		for _, p := range m.Parts {
			if tr, ok := p.(content.ToolResult); ok {
				*msgs = append(*msgs, wireMessage{
					Role:       "tool",
					Content:    &tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
		}
	}
}

// parseChoice maps the assistant turn onto a Decision and validates it, so a
// malformed reply (no text and no calls, or a call without a name) surfaces
// as an error rather than a bogus decision.
func parseChoice(choice wireChoice) (reasoner.Decision, error) {
	text := ""
	if choice.Message.Content != nil {
		text = *choice.Message.Content
	}

	var d reasoner.Decision
	if len(choice.Message.ToolCalls) == 0 {
		d = reasoner.Answer(text)
	} else {
		calls := make([]content.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			args := tc.Function.Arguments
			if args == "" {
				args = "{}"
			}
			calls[i] = content.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			}
		}
		d = reasoner.Act(text, calls...)
	}

	if err := d.Validate(); err != nil {
		return reasoner.Decision{}, fmt.Errorf("openai: %w", err)
	}

	return d, nil
}
