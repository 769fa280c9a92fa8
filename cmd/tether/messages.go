package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/engine"
)

// chatMessageMsg delivers a chat message appended by the finished run.
type chatMessageMsg struct {
	msg message.Message
}

// toolStartMsg signals that the agent started executing a tool call.
type toolStartMsg struct {
	call content.ToolCall
}

// toolEndMsg signals that a tool call finished, with its result and timing.
type toolEndMsg struct {
	ended engine.ToolCallEnded
}

// runEndMsg signals that the agent's run finished (answer or error).
type runEndMsg struct{}

// forcedStopMsg signals that the run was cut off by its step or budget bound.
type forcedStopMsg struct{}

// inputSubmitMsg carries the text the user submitted from the input box.
type inputSubmitMsg struct {
	text string
}

// sendCompleteMsg is returned by the tea.Cmd that calls sess.Send.
type sendCompleteMsg struct {
	err      error
	duration time.Duration
}

// programReadyMsg passes the *tea.Program to the model so it can start the
// event bridge goroutine.
type programReadyMsg struct {
	program *tea.Program
}

// initDrainMsg fires after a short delay so that stale terminal responses
// (e.g. OSC 11 background-color replies) are discarded before focusing input.
type initDrainMsg struct{}

// tickMsg drives spinner animation while a run is active.
type tickMsg time.Time
