// Package runloop drives the bounded think/act cycle that resolves one user
// message into one final assistant answer.
//
// Each Run appends the user message to the conversation, then alternates
// between asking the Reasoner for a decision (thinking) and executing the
// tool calls it requested (acting) until the Reasoner produces a final
// answer. Two independent bounds keep every run finite: a per-run tool
// budget refuses invocations past the limit with a synthetic error result,
// and a step ceiling forces a synthetic final answer when the cycle goes on
// too long. All bounds are per run; concurrent runs never share counters.
package runloop

import (
	"context"
	"fmt"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/logger"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

// Defaults applied by Options.withDefaults.
const (
	DefaultToolBudget         = 3
	DefaultMaxSteps           = 10
	DefaultToolTimeout        = 30 * time.Second
	DefaultMaxConcurrentTools = 4
)

// MetaForcedStop is the metadata key marking a final answer that was forced
// by the step ceiling rather than produced by the Reasoner.
const MetaForcedStop = "forced_stop"

const forcedStopText = "I reached the step limit for this request before arriving at a conclusive answer. Everything gathered so far is in the conversation above; ask again to continue from there."

// Executor resolves a single tool call into a result. Implementations encode
// failures into the result with IsError set instead of returning Go errors,
// so one failed tool never aborts a run. *toolbox.ToolBox satisfies Executor.
type Executor interface {
	Execute(ctx context.Context, call content.ToolCall) content.ToolResult
}

// Compile-time check that *toolbox.ToolBox implements Executor.
var _ Executor = (*toolbox.ToolBox)(nil)

// Options configures a Loop. The zero value is usable; every field falls
// back to its package default.
type Options struct {
	// ToolBudget caps how many tool invocations one run may spend. Calls
	// past the budget are refused with a synthetic error result instead of
	// being executed.
	ToolBudget int

	// MaxSteps caps reasoning steps per run. When the ceiling is reached
	// the run ends with a forced final answer marked with MetaForcedStop.
	MaxSteps int

	// ToolTimeout bounds each tool invocation individually. A timed-out
	// call produces an error result; sibling calls are unaffected.
	ToolTimeout time.Duration

	// MaxConcurrentTools bounds how many admitted tool calls execute at
	// once within a single acting phase. 1 means sequential execution.
	MaxConcurrentTools int

	// Middleware wraps Run, outermost first.
	Middleware []Middleware
}

func (o Options) withDefaults() Options {
	if o.ToolBudget <= 0 {
		o.ToolBudget = DefaultToolBudget
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.ToolTimeout <= 0 {
		o.ToolTimeout = DefaultToolTimeout
	}
	if o.MaxConcurrentTools <= 0 {
		o.MaxConcurrentTools = DefaultMaxConcurrentTools
	}
	return o
}

// Loop executes runs for one configured agent. The Reasoner decides, the
// Executor acts; the Loop owns the cycle between them. A Loop carries no
// per-run state, so a single Loop may serve concurrent runs as long as each
// Run gets its own Chat.
type Loop struct {
	name     string
	reasoner reasoner.Reasoner
	executor Executor
	tools    []toolbox.Tool
	opts     Options
}

// New creates a Loop. name is recorded as the Sender on assistant and tool
// turns produced by the loop.
func New(name string, r reasoner.Reasoner, exec Executor, opts Options) *Loop {
	return &Loop{
		name:     name,
		reasoner: r,
		executor: exec,
		opts:     opts.withDefaults(),
	}
}

// Name returns the sender name recorded on messages produced by the loop.
func (l *Loop) Name() string { return l.name }

// AddTools appends tool declarations offered to the Reasoner on every step.
// Not safe to call concurrently with Run.
func (l *Loop) AddTools(tools ...toolbox.Tool) {
	l.tools = append(l.tools, tools...)
}

// Run resolves userMsg into a final assistant answer, appending every
// intermediate turn to c. It returns the final message, which is also the
// last assistant message appended.
//
// Run returns an error in exactly three cases: userMsg does not have the
// user role, the Reasoner fails or produces a malformed decision (wrapped
// in *ReasonerError), or ctx is cancelled. Cancellation is observed at
// phase boundaries, never mid-dispatch, and the context error is returned
// verbatim so callers can match it with errors.Is. Tool failures never
// abort a run; they come back to the Reasoner as error results.
func (l *Loop) Run(ctx context.Context, c *chat.Chat, userMsg message.Message) (message.Message, error) {
	var runner Runner = RunnerFunc(func(ctx context.Context) (message.Message, error) {
		return l.run(ctx, c, userMsg)
	})
	for i := len(l.opts.Middleware) - 1; i >= 0; i-- {
		runner = l.opts.Middleware[i](runner)
	}
	return runner.Run(ctx)
}

func (l *Loop) run(ctx context.Context, c *chat.Chat, userMsg message.Message) (message.Message, error) {
	if userMsg.Role != role.User {
		return message.Message{}, ErrNotUserMessage
	}

	log := logger.FromContext(ctx).With("loop", l.name)
	guard := NewGuard(l.opts.ToolBudget)
	machine := newLoopFSM()
	steps := 0

	c.Append(userMsg)
	log.Debug("run started",
		"messages", c.Len(),
		"tool_budget", guard.Ceiling(),
		"max_steps", l.opts.MaxSteps,
	)

	var pending []content.ToolCall

	for {
		if err := ctx.Err(); err != nil {
			log.Debug("run cancelled", "state", machine.Current(), "steps", steps)
			return message.Message{}, err
		}

		switch machine.Current() {
		case StateThinking:
			if steps >= l.opts.MaxSteps {
				final := forcedFinal(l.name)
				c.Append(final)
				if err := machine.Event(ctx, EventForcedStop); err != nil {
					return message.Message{}, fmt.Errorf("runloop: %w", err)
				}
				log.Warn("step ceiling reached, forcing final answer", "steps", steps)
				return final, nil
			}
			steps++

			d, err := l.reasoner.Decide(ctx, c, l.tools)
			if err != nil {
				return message.Message{}, &ReasonerError{Step: steps, Err: err}
			}
			if err := d.Validate(); err != nil {
				return message.Message{}, &ReasonerError{Step: steps, Err: err}
			}

			turn := d.Message(l.name)
			c.Append(turn)

			if d.Kind == reasoner.Final {
				if err := machine.Event(ctx, EventAnswered); err != nil {
					return message.Message{}, fmt.Errorf("runloop: %w", err)
				}
				log.Debug("final answer", "steps", steps, "tools_spent", guard.Count())
				return turn, nil
			}

			pending = d.Calls
			if err := machine.Event(ctx, EventActionsRequested); err != nil {
				return message.Message{}, fmt.Errorf("runloop: %w", err)
			}

		case StateActing:
			results := l.resolveActions(ctx, guard, pending)
			for _, r := range results {
				c.Append(message.New(l.name, role.Tool, r))
			}
			pending = nil
			if err := machine.Event(ctx, EventActionsResolved); err != nil {
				return message.Message{}, fmt.Errorf("runloop: %w", err)
			}

		default:
			return message.Message{}, fmt.Errorf("runloop: unexpected state %q", machine.Current())
		}
	}
}

// forcedFinal synthesizes the answer appended when a run hits its step
// ceiling. The MetaForcedStop marker makes the condition detectable without
// string matching.
func forcedFinal(sender string) message.Message {
	m := message.NewText(sender, role.Assistant, forcedStopText)
	m.SetMeta(MetaForcedStop, true)
	return m
}

// IsForcedFinal reports whether msg is a synthetic final answer emitted when
// a run hit its step ceiling.
func IsForcedFinal(msg message.Message) bool {
	v, ok := msg.GetMeta(MetaForcedStop)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
