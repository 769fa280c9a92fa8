package main

import (
	"fmt"
	"time"

	"github.com/reedham/tether/pkg/engine"
)

// statusBarModel shows the active agent, token usage, and timing information.
type statusBarModel struct {
	sess     *engine.Session
	duration time.Duration
}

func newStatusBar(sess *engine.Session) statusBarModel {
	return statusBarModel{sess: sess}
}

func (m statusBarModel) View() string {
	line := " " + m.sess.Agent()

	ur, ok := m.sess.Usage()
	if !ok {
		if m.duration > 0 {
			line += fmt.Sprintf(" · %s", fmtDuration(m.duration))
		}
		return statusStyle.Render(line)
	}

	total := ur.UsageTracker().Total()
	last, hasLast := ur.UsageTracker().Last()
	maxTok := ur.ModelMaxTokens()

	switch {
	case hasLast && m.duration > 0:
		line += fmt.Sprintf(" · last: ↑%s ↓%s · total: ↑%s ↓%s · limit: %s · %s",
			fmtTokens(last.InputTokens),
			fmtTokens(last.OutputTokens),
			fmtTokens(total.InputTokens),
			fmtTokens(total.OutputTokens),
			fmtTokens(maxTok),
			fmtDuration(m.duration),
		)
	case total.InputTokens+total.OutputTokens > 0:
		line += fmt.Sprintf(" · tokens: ↑%s ↓%s · limit: %s",
			fmtTokens(total.InputTokens),
			fmtTokens(total.OutputTokens),
			fmtTokens(maxTok),
		)
	}

	return statusStyle.Render(line)
}
