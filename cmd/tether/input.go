package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	inputMinHeight = 1
	inputMaxHeight = 5
)

// inputModel is the bordered text entry box at the bottom of the screen.
// When disabled (while a run is in flight) it swallows no keys and greys its
// border.
type inputModel struct {
	textarea textarea.Model
	enabled  bool
	width    int
}

func newInput() inputModel {
	ta := textarea.New()
	ta.Placeholder = "Type a message (alt+enter for a new line)..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputMinHeight)
	ta.CharLimit = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = lipgloss.NewStyle()
	ta.BlurredStyle.Prompt = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	// Focus comes later, from appModel.Init's drain delay, so startup OSC
	// responses from the terminal are not typed into the box.

	return inputModel{textarea: ta}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if !m.enabled {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && !keyMsg.Alt {
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" {
			return m, nil
		}
		m.textarea.Reset()
		m.textarea.SetHeight(inputMinHeight)
		return m, func() tea.Msg { return inputSubmitMsg{text: text} }
	}

	// Give the textarea its max height before the update so it never
	// scrolls internally, then shrink back around the content.
	m.textarea.SetHeight(inputMaxHeight)

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)

	lines := wrappedLineCount(m.textarea.Value(), max(m.textarea.Width(), 1))
	m.textarea.SetHeight(min(max(lines, inputMinHeight), inputMaxHeight))

	return m, cmd
}

func (m inputModel) View() string {
	border := inputBorderStyle
	if !m.enabled {
		border = inputIdleBorderStyle
	}

	inner := m.innerWidth()
	m.textarea.SetWidth(inner)

	return border.Width(inner).Render(m.textarea.View())
}

func (m *inputModel) setWidth(w int) {
	m.width = w
	m.textarea.SetWidth(m.innerWidth())
}

// innerWidth is the textarea's content width: the window width minus the
// border box, floored so a tiny terminal still leaves room to type.
func (m inputModel) innerWidth() int {
	return max(m.width-4, 10)
}

func (m *inputModel) enable() tea.Cmd {
	m.enabled = true
	return m.textarea.Focus()
}

func (m *inputModel) disable() {
	m.enabled = false
	m.textarea.Blur()
}

// wrappedLineCount reports how many terminal rows text occupies at the given
// wrap width, counting hard newlines and soft wraps. Empty text still takes
// one row.
func wrappedLineCount(text string, width int) int {
	if text == "" {
		return 1
	}

	rows := 0
	for line := range strings.SplitSeq(text, "\n") {
		w := runewidth.StringWidth(line)
		rows += max((w+width-1)/width, 1)
	}

	return rows
}
