package toolbox

import (
	"context"
	"encoding/json"
)

// Handler executes a tool with the given JSON input and returns a text result.
// Handlers must honor ctx cancellation and deadlines; the run loop bounds each
// invocation with a per-call timeout.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool pairs a model-facing declaration with the handler that executes it.
type Tool struct {
	Name        string          // Wire name the model calls the tool by.
	Description string          // Shown to the model when it picks tools.
	InputSchema json.RawMessage // JSON Schema for the handler's input.
	Handler     Handler
}
