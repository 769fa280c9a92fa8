package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/engine"
)

// chainStep is one tool call within a run, from dispatch to result.
type chainStep struct {
	callID    string
	toolName  string
	args      string
	result    string
	isError   bool
	completed bool
	elapsed   time.Duration
	spinMsg   string // random message assigned once at creation
}

// runChain accumulates the tool calls of one run while the agent is working.
// Steps are keyed by call ID so results land on the right step even when
// calls execute concurrently.
type runChain struct {
	agent     string
	steps     []*chainStep
	index     map[string]*chainStep
	startTime time.Time
	frameIdx  int
}

func newRunChain(agent string) *runChain {
	return &runChain{
		agent:     agent,
		index:     make(map[string]*chainStep),
		startTime: time.Now(),
	}
}

// addCall records a dispatched tool call as a pending step.
func (rc *runChain) addCall(call content.ToolCall) {
	step := &chainStep{
		callID:   call.ID,
		toolName: call.Name,
		args:     call.Arguments,
		spinMsg:  randomThinkingMessage(),
	}
	rc.steps = append(rc.steps, step)
	rc.index[call.ID] = step
}

// complete marks the matching step as done with its result and timing.
// Results for unknown call IDs are dropped.
func (rc *runChain) complete(ended engine.ToolCallEnded) {
	step, ok := rc.index[ended.Result.ToolCallID]
	if !ok {
		return
	}
	step.completed = true
	step.result = ended.Result.Content
	step.isError = ended.Result.IsError
	step.elapsed = ended.Elapsed
}

// renderLive renders the chain as it appears while the agent is working.
// Verbose mode includes truncated tool results under each completed call.
func (rc *runChain) renderLive(verbose bool) string {
	var sb strings.Builder
	frame := spinnerFrames[rc.frameIdx%len(spinnerFrames)]

	for _, step := range rc.steps {
		label := formatToolCall(step.toolName, step.args)
		if step.completed {
			fmt.Fprintf(&sb, "  %s %s\n",
				toolNameStyle.Render("🔧 "+label),
				dimStyle.Render(fmt.Sprintf("(%s)", fmtDuration(step.elapsed))),
			)
			if verbose && step.result != "" {
				resultTxt := truncate(step.result, 200)
				if step.isError {
					fmt.Fprintf(&sb, "  %s\n", toolErrorStyle.Render(treeCorner+resultTxt))
				} else {
					fmt.Fprintf(&sb, "  %s\n", toolResultStyle.Render(treeCorner+resultTxt))
				}
			}
		} else {
			fmt.Fprintf(&sb, "  %s %s\n",
				toolNameStyle.Render("🔧 "+label),
				spinnerStyle.Render(fmt.Sprintf("%s %s", frame, step.spinMsg)),
			)
		}
	}

	// Elapsed time footer.
	fmt.Fprintf(&sb, "  %s\n", dimStyle.Render(
		fmt.Sprintf("🤖 %s > %s", rc.agent, fmtDuration(time.Since(rc.startTime))),
	))

	return sb.String()
}

// collapsedSummary returns a dim one-line summary after the run completes:
// which tools ran, how often, and for how long. Empty when no tools ran.
func (rc *runChain) collapsedSummary() string {
	toolCounts := make(map[string]int)
	for _, step := range rc.steps {
		toolCounts[step.toolName]++
	}
	if len(toolCounts) == 0 {
		return ""
	}

	toolNames := make([]string, 0, len(toolCounts))
	for name := range toolCounts {
		toolNames = append(toolNames, name)
	}
	slices.Sort(toolNames)

	var parts []string
	for _, name := range toolNames {
		if count := toolCounts[name]; count > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", name, count))
		} else {
			parts = append(parts, name)
		}
	}

	elapsed := time.Since(rc.startTime)
	return dimStyle.Render(fmt.Sprintf("  %s%s: %s. Ran for %s",
		treeCorner, rc.agent, strings.Join(parts, ", "), fmtDuration(elapsed)))
}

// advanceSpinners moves the spinner to its next frame.
func (rc *runChain) advanceSpinners() {
	rc.frameIdx++
}

// hasPending reports whether any step is still waiting for its result.
func (rc *runChain) hasPending() bool {
	for _, step := range rc.steps {
		if !step.completed {
			return true
		}
	}
	return false
}
