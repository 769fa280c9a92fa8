// Package reasoner defines the decision contract between the run loop and a
// language model.
//
// A Reasoner reads the conversation so far and commits to exactly one of two
// outcomes: a final answer, or a request to invoke tools. The outcome is an
// explicit Decision value rather than a message to be inspected for tool
// calls, so the loop never has to guess what the model meant.
package reasoner

import (
	"context"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

// Reasoner produces the next Decision for a conversation. tools lists the
// tool declarations the model may request; implementations must not execute
// them. Decide must leave the chat unmodified — appending the decision to the
// conversation is the caller's job.
type Reasoner interface {
	Decide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Decision, error)
}

// Func adapts a plain function to the Reasoner interface.
type Func func(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Decision, error)

// Decide calls f.
func (f Func) Decide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Decision, error) {
	return f(ctx, c, tools)
}
