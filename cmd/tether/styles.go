package main

import "github.com/charmbracelet/lipgloss"

// All TUI styles live here so the palette is adjustable in one place.
var (
	// Conversation rendering.
	userPrefixStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	userBlockStyle    = lipgloss.NewStyle().PaddingLeft(1)
	answerPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan

	// Thinking text shown between tool calls in verbose mode.
	thinkingTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	// Tool call rendering.
	toolNameStyle   = lipgloss.NewStyle().Bold(true)
	toolResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim gray
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red

	// Input box borders: green while accepting input, gray while a run is
	// in flight.
	inputBorderStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("2"))
	inputIdleBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))

	// Spinner shown while waiting on the model.
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta

	// General utility styles.
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray/dim
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray
)

// Tree-drawing characters for hierarchical display.
const (
	treeCorner = "└ "
)
