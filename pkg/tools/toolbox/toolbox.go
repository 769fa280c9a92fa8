package toolbox

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/reedham/tether/pkg/chats/content"
)

// ToolBox holds the tools available to an agent and executes tool calls
// against them. The run loop resolves every requested call through a ToolBox.
type ToolBox struct {
	tools map[string]Tool
}

// New creates an empty ToolBox.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]Tool),
	}
}

// Register adds tools, replacing any existing tool with the same name.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get looks up a tool by name.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Merge registers every tool from other, replacing same-named tools here.
func (tb *ToolBox) Merge(other *ToolBox) {
	maps.Copy(tb.tools, other.tools)
}

// Tools returns all registered tools sorted by name, so tool declarations
// sent to a model are stable across runs.
func (tb *ToolBox) Tools() []Tool {
	return slices.SortedFunc(maps.Values(tb.tools), func(a, b Tool) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

// Filter returns a ToolBox containing only the named tools. Names that are
// not registered are skipped. An empty names list means "no filtering" and
// returns the receiver unchanged.
func (tb *ToolBox) Filter(names []string) *ToolBox {
	if len(names) == 0 {
		return tb
	}
	filtered := New()
	for _, name := range names {
		if t, ok := tb.tools[name]; ok {
			filtered.Register(t)
		}
	}
	return filtered
}

// Execute runs a tool call and returns its ToolResult. Failures are encoded
// into the result with IsError set rather than returned as errors: an unknown
// tool name, a nil handler, and a handler error all produce an error result
// linked to the originating call ID.
func (tb *ToolBox) Execute(ctx context.Context, tc content.ToolCall) content.ToolResult {
	t, ok := tb.tools[tc.Name]
	if !ok {
		return errResult(tc.ID, fmt.Sprintf("tool not found: %s", tc.Name))
	}
	if t.Handler == nil {
		return errResult(tc.ID, fmt.Sprintf("tool has no handler: %s", tc.Name))
	}

	out, err := t.Handler(ctx, json.RawMessage(tc.Arguments))
	if err != nil {
		return errResult(tc.ID, err.Error())
	}

	return content.ToolResult{ToolCallID: tc.ID, Content: out}
}

func errResult(callID, text string) content.ToolResult {
	return content.ToolResult{ToolCallID: callID, Content: text, IsError: true}
}
