package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reedham/tether/pkg/engine"
)

// appState represents the application state machine.
type appState int

const (
	stateIdle appState = iota
	stateProcessing
)

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	sess         *engine.Session
	events       *engine.EventBus
	verbose      bool
	chatView     chatViewModel
	inputBox     inputModel
	statusBar    statusBarModel
	state        appState
	cancelBridge context.CancelFunc
	width        int
	height       int
	sendStart    time.Time
	seeded       bool
}

func newAppModel(ctx context.Context, sess *engine.Session, events *engine.EventBus, verbose bool) appModel {
	return appModel{
		ctx:       ctx,
		sess:      sess,
		events:    events,
		verbose:   verbose,
		chatView:  newChatView(sess.Agent(), verbose),
		inputBox:  newInput(),
		statusBar: newStatusBar(sess),
		state:     stateIdle,
	}
}

func (m appModel) Init() tea.Cmd {
	// Delay focusing the input so that stale terminal escape-sequence
	// responses (e.g. OSC 11 background-color) are drained first.
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return initDrainMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case initDrainMsg:
		cmd := m.inputBox.enable()
		return m, cmd

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.events)
		return m, nil

	case inputSubmitMsg:
		return m.handleSubmit(msg)

	case chatMessageMsg:
		m.chatView.addMessage(msg.msg)
		return m, nil

	case toolStartMsg:
		m.chatView.toolStart(msg.call)
		return m, nil

	case toolEndMsg:
		m.chatView.toolEnd(msg.ended)
		return m, nil

	case forcedStopMsg:
		m.chatView.commitNotice(dimStyle.Render("  (run stopped at its tool budget; answer composed from what was gathered)"))
		return m, nil

	case runEndMsg:
		m.chatView.endRun()
		return m, nil

	case sendCompleteMsg:
		m.statusBar.duration = msg.duration
		m.state = stateIdle
		focusCmd := m.inputBox.enable()
		m.chatView.setProcessing(false)
		m.chatView.endRun()
		if msg.err != nil && m.ctx.Err() == nil {
			m.chatView.commitNotice(errorStyle.Render("error: " + msg.err.Error()))
		}
		return m, focusCmd

	case tickMsg:
		if m.state == stateProcessing || m.chatView.hasActiveChain() {
			m.chatView.advanceSpinners()
			return m, tickCmd()
		}
		return m, nil
	}

	// Delegate to the input box when idle.
	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.chatView.View(),
		m.inputBox.View(),
		m.statusBar.View(),
	)
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	initMarkdownRenderer(m.width - 4)
	m.inputBox.setWidth(m.width)

	// Replay a resumed conversation once the renderer knows its width.
	if !m.seeded {
		m.seeded = true
		m.chatView.seedHistory(m.sess.Chat().Messages())
	}

	m.recalcLayout()
	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit
	}

	// Forward to input box when idle.
	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *appModel) handleSubmit(msg inputSubmitMsg) (tea.Model, tea.Cmd) {
	text := msg.text

	switch text {
	case "/quit", "/exit":
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit

	case "/help":
		m.chatView.commitNotice(helpText())
		m.recalcLayout()
		return m, nil

	case "/session":
		m.chatView.commitNotice(dimStyle.Render(fmt.Sprintf(
			"  session %s · agent %s · %d messages",
			m.sess.ID(), m.sess.Agent(), m.sess.Chat().Len(),
		)))
		m.recalcLayout()
		return m, nil
	}

	m.chatView.commitUser(text)

	m.state = stateProcessing
	m.inputBox.disable()
	m.chatView.setProcessing(true)
	m.sendStart = time.Now()

	// Run the send in a background goroutine via tea.Cmd.
	sess := m.sess
	ctx := m.ctx
	start := m.sendStart
	sendCmd := func() tea.Msg {
		_, err := sess.Send(ctx, text)
		return sendCompleteMsg{err: err, duration: time.Since(start)}
	}

	m.recalcLayout()
	return m, tea.Batch(sendCmd, tickCmd())
}

func (m *appModel) recalcLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	// Status bar = 1 line, input box = border (2) + content lines.
	statusHeight := 1
	inputHeight := lipgloss.Height(m.inputBox.View())
	chatHeight := max(m.height-inputHeight-statusHeight, 1)
	m.chatView.setSize(m.width, chatHeight)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func helpText() string {
	return dimStyle.Render(
		"Commands:\n" +
			"  /help          Show this help message\n" +
			"  /session       Show the session id (use with --resume)\n" +
			"  /quit          Exit the chat\n\n" +
			"Shortcuts:\n" +
			"  Enter          Submit message\n" +
			"  Alt+Enter      New line\n" +
			"  Ctrl+C         Exit",
	)
}
