package reasoner

import (
	"errors"
	"fmt"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
)

// Kind discriminates the two decision variants. The zero value is invalid so
// a forgotten assignment is caught by Validate instead of being mistaken for
// an answer.
type Kind int

const (
	// Final means the model produced a complete answer and the turn is over.
	Final Kind = iota + 1
	// ActionRequest means the model wants one or more tools invoked before
	// it can answer.
	ActionRequest
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Final:
		return "final"
	case ActionRequest:
		return "action_request"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Decision is the outcome of one reasoning step. Exactly one variant applies:
// a Final decision carries answer text and no calls, an ActionRequest carries
// at least one call and optional commentary text.
type Decision struct {
	Kind  Kind
	Text  string
	Calls []content.ToolCall
}

// Answer builds a Final decision with the given answer text.
func Answer(text string) Decision {
	return Decision{Kind: Final, Text: text}
}

// Act builds an ActionRequest decision. text is optional commentary shown
// alongside the calls; calls are kept in the order given.
func Act(text string, calls ...content.ToolCall) Decision {
	return Decision{Kind: ActionRequest, Text: text, Calls: calls}
}

// Validate checks that the decision is one well-formed variant. A Reasoner
// that returns an invalid decision is treated as malformed output by the
// run loop.
func (d Decision) Validate() error {
	switch d.Kind {
	case Final:
		if len(d.Calls) > 0 {
			return errors.New("reasoner: final decision carries tool calls")
		}
		if d.Text == "" {
			return errors.New("reasoner: final decision has no answer text")
		}
	case ActionRequest:
		if len(d.Calls) == 0 {
			return errors.New("reasoner: action request has no tool calls")
		}
		for i, tc := range d.Calls {
			if tc.Name == "" {
				return fmt.Errorf("reasoner: tool call %d has no name", i)
			}
		}
	default:
		return fmt.Errorf("reasoner: decision has invalid kind %s", d.Kind)
	}
	return nil
}

// Message renders the decision as the assistant turn to append to the
// conversation, attributed to sender.
func (d Decision) Message(sender string) message.Message {
	parts := make([]content.Part, 0, 1+len(d.Calls))
	if d.Text != "" {
		parts = append(parts, content.Text{Text: d.Text})
	}
	for _, tc := range d.Calls {
		parts = append(parts, tc)
	}
	return message.New(sender, role.Assistant, parts...)
}
