package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"
)

// thinkingMessages are displayed while the agent is working.
var thinkingMessages = []string{
	"Thinking...",
	"Chewing on that...",
	"Consulting the archives...",
	"Following a lead...",
	"Connecting the dots...",
	"Reading between the lines...",
	"Weighing the evidence...",
	"Sifting results...",
	"Crunching tokens...",
	"Chasing a hunch...",
	"Cross-checking sources...",
	"Drafting an answer...",
	"Warming up neurons...",
	"Untangling the thread...",
}

// spinnerFrames are braille characters for smooth animation.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate returns s shortened to at most n display cells, with "..." appended
// if truncated. Width is measured with runewidth so CJK and emoji count as two
// cells. Newlines are replaced with spaces for single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "...")
}

// fmtTokens formats a token count for display, using k/M suffixes.
func fmtTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// fmtDuration formats a duration for display.
func fmtDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	min := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", min, sec)
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// renderUserMessage formats a user message for the transcript, indenting
// continuation lines to align with the first line.
func renderUserMessage(text string) string {
	prefix := userPrefixStyle.Render("🧑 You > ")
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return userBlockStyle.Render(prefix + text)
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(lines[0])
	for _, line := range lines[1:] {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}
	return userBlockStyle.Render(sb.String())
}

// randomThinkingMessage returns a random thinking message.
func randomThinkingMessage() string {
	return thinkingMessages[rand.IntN(len(thinkingMessages))] //nolint:gosec // cosmetic randomness
}

// resolveConfigPath returns the config file to use. Priority:
// 1. Explicit --config flag (non-empty)
// 2. .tether/config.yaml (if it exists)
// 3. tether.yaml (fallback for repos that keep the config at the root)
func resolveConfigPath(explicit, tetherDirPath string) string {
	if explicit != "" {
		return explicit
	}

	dirConfig := filepath.Join(tetherDirPath, "config.yaml")
	if _, err := os.Stat(dirConfig); err == nil {
		return dirConfig
	}

	return "tether.yaml"
}
