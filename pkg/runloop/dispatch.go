package runloop

import (
	"context"
	"fmt"
	"time"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// resolveActions turns requested tool calls into results, one per call,
// index-aligned with calls. Budget admission happens sequentially in request
// order, so which calls get refused is deterministic regardless of how the
// admitted ones are scheduled. Admitted calls then execute concurrently,
// bounded by MaxConcurrentTools, each under its own timeout.
func (l *Loop) resolveActions(ctx context.Context, guard *Guard, calls []content.ToolCall) []content.ToolResult {
	log := logger.FromContext(ctx).With("loop", l.name)
	results := make([]content.ToolResult, len(calls))
	admitted := make([]bool, len(calls))

	for i, call := range calls {
		if guard.ShouldAllow() {
			guard.RecordInvocation()
			admitted[i] = true
			continue
		}
		results[i] = refusalResult(call, guard.Ceiling())
		log.Debug("tool call refused, budget exhausted", "tool", call.Name, "call_id", call.ID)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, l.opts.MaxConcurrentTools)

	for i, call := range calls {
		if !admitted[i] {
			continue
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-groupCtx.Done():
				results[i] = content.ToolResult{
					ToolCallID: call.ID,
					Content:    fmt.Sprintf("%s was not executed: %v", call.Name, groupCtx.Err()),
					IsError:    true,
				}
				return nil
			}

			callCtx, cancel := context.WithTimeout(groupCtx, l.opts.ToolTimeout)
			defer cancel()

			start := time.Now()
			results[i] = l.executor.Execute(callCtx, call)
			log.Debug("tool call resolved",
				"tool", call.Name,
				"call_id", call.ID,
				"duration", time.Since(start),
				"is_error", results[i].IsError,
			)
			return nil
		})
	}

	// Workers encode failures into their result slot; Wait is only for
	// completion.
	_ = g.Wait()

	return results
}

// refusalResult synthesizes the refusal recorded for a call that did not fit
// in the budget. It reads as a failed tool result so the model treats the
// missing output as final rather than retrying.
func refusalResult(tc content.ToolCall, ceiling int) content.ToolResult {
	return content.ToolResult{
		ToolCallID: tc.ID,
		Content: fmt.Sprintf(
			"tool budget exhausted: %s was not executed. This request already spent its %d allowed tool invocations. Do not request further tool calls; answer with the information available.",
			tc.Name, ceiling,
		),
		IsError: true,
	}
}
