package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/engine"
)

// logoArt is displayed before the first message.
const logoArt = `
  __       __  __
 / /____  / /_/ /  ___ ____
/ __/ -_) __/ _ \/ -_) __/
\__/\__/\__/_//_/\__/_/
`

// chatViewModel owns the transcript: committed content accumulates in a
// builder, the live run chain renders on top, and a viewport pins the
// combined output to the bottom of its window.
type chatViewModel struct {
	viewport  viewport.Model
	committed *strings.Builder // pointer so value copies share the transcript
	chain     *runChain        // nil when no run is active
	agent     string
	verbose   bool

	hasMessages   bool
	processing    bool
	spinnerIdx    int
	processingMsg string

	width, height int
}

func newChatView(agent string, verbose bool) chatViewModel {
	return chatViewModel{
		viewport:  viewport.New(0, 0),
		committed: &strings.Builder{},
		agent:     agent,
		verbose:   verbose,
	}
}

// View renders committed content plus the live chain, pinned to the bottom.
// Viewport state is ephemeral (bubbletea copies the model per render), so the
// content is set and scrolled on every call.
func (m chatViewModel) View() string {
	if !m.hasMessages && !m.processing && m.chain == nil {
		return dimStyle.Render(logoArt)
	}

	var live strings.Builder

	if m.chain != nil {
		live.WriteString(m.chain.renderLive(m.verbose))
	}

	// Standalone spinner while waiting for the first model response.
	if m.processing && m.chain == nil {
		frame := spinnerFrames[m.spinnerIdx%len(spinnerFrames)]
		fmt.Fprintf(&live, "  %s %s\n",
			spinnerStyle.Render(frame),
			spinnerStyle.Render(m.processingMsg),
		)
	}

	m.viewport.SetContent(m.committed.String() + live.String())
	m.viewport.GotoBottom()

	return m.viewport.View()
}

// setSize sets the viewport dimensions.
func (m *chatViewModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
}

// commitUser appends a user message to the committed transcript.
func (m *chatViewModel) commitUser(text string) {
	m.committed.WriteString("\n" + renderUserMessage(text) + "\n")
	m.hasMessages = true
}

// commitNotice appends a pre-styled line to the committed transcript.
func (m *chatViewModel) commitNotice(line string) {
	m.committed.WriteString("\n" + line + "\n")
	m.hasMessages = true
}

// addMessage processes one chat message from a finished run. Final answers
// are committed; in verbose mode the reasoning text alongside tool calls is
// committed too. User and tool messages are skipped: the user line was
// committed on submit and tool results were shown live by the chain.
func (m *chatViewModel) addMessage(msg message.Message) {
	if msg.Role != role.Assistant {
		return
	}

	text := msg.TextContent()
	if len(msg.ToolCalls()) > 0 {
		if m.verbose && text != "" {
			m.commitThinking(text)
		}
		return
	}

	if text != "" {
		m.commitAnswer(text)
	}
}

// seedHistory replays a resumed conversation into the transcript: user lines
// and assistant answers, without the live tool activity in between.
func (m *chatViewModel) seedHistory(msgs []message.Message) {
	for _, msg := range msgs {
		switch msg.Role {
		case role.User:
			m.commitUser(msg.TextContent())
		case role.Assistant:
			m.addMessage(msg)
		}
	}
}

// toolStart records a dispatched tool call on the live chain.
func (m *chatViewModel) toolStart(call content.ToolCall) {
	if m.chain == nil {
		m.chain = newRunChain(m.agent)
	}
	m.chain.addCall(call)
}

// toolEnd completes the matching call on the live chain.
func (m *chatViewModel) toolEnd(ended engine.ToolCallEnded) {
	if m.chain == nil {
		return
	}
	m.chain.complete(ended)
}

// endRun collapses the live chain into a one-line summary and commits it.
func (m *chatViewModel) endRun() {
	if m.chain == nil {
		return
	}
	if summary := m.chain.collapsedSummary(); summary != "" {
		m.committed.WriteString("\n" + summary + "\n")
	}
	m.chain = nil
}

// setProcessing sets the processing state and picks a random spinner message.
func (m *chatViewModel) setProcessing(on bool) {
	m.processing = on
	if on {
		m.processingMsg = randomThinkingMessage()
	}
}

// advanceSpinners increments the spinner frames.
func (m *chatViewModel) advanceSpinners() {
	m.spinnerIdx++
	if m.chain != nil {
		m.chain.advanceSpinners()
	}
}

// hasActiveChain reports whether a run chain is still on screen.
func (m *chatViewModel) hasActiveChain() bool {
	return m.chain != nil
}

// commitAnswer renders the answer as markdown and commits it under the agent
// header, indented with a tree corner.
func (m *chatViewModel) commitAnswer(text string) {
	rendered := renderMarkdown(text)
	header := answerPrefixStyle.Render("🤖 " + m.agent)

	var sb strings.Builder
	sb.WriteString(header)
	for i, line := range strings.Split(rendered, "\n") {
		if i == 0 {
			fmt.Fprintf(&sb, "\n %s%s", treeCorner, line)
		} else {
			fmt.Fprintf(&sb, "\n   %s", line)
		}
	}

	m.committed.WriteString("\n" + sb.String() + "\n")
	m.hasMessages = true
}

// commitThinking commits the reasoning text an assistant turn carried
// alongside its tool calls.
func (m *chatViewModel) commitThinking(text string) {
	header := thinkingTextStyle.Render(fmt.Sprintf("🤖 %s >", m.agent))

	var sb strings.Builder
	first := true
	for line := range strings.SplitSeq(strings.TrimRight(text, "\n"), "\n") {
		if first {
			fmt.Fprintf(&sb, "  %s %s", header, thinkingTextStyle.Render(line))
			first = false
		} else {
			fmt.Fprintf(&sb, "\n  %s", thinkingTextStyle.Render("  "+line))
		}
	}

	m.committed.WriteString("\n" + sb.String() + "\n")
	m.hasMessages = true
}
