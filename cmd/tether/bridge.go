package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/engine"
)

// startBridge launches the goroutine that converts engine events into
// bubbletea messages. It only calls p.Send() and never touches model state.
// Returns a cancel function that stops the bridge and waits for the goroutine
// to exit, ensuring no stale messages are sent after return.
func startBridge(ctx context.Context, p *tea.Program, events *engine.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64)

	wg.Go(func() {
		defer sub.Close()
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				forward(p, ev)
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

// forward maps one engine event onto the bubbletea message the model handles.
// Tool start/end events arrive live while the run executes; message events
// arrive as a batch once the run finishes.
func forward(p *tea.Program, ev engine.Event) {
	switch ev.Kind {
	case engine.EventMessageAdded:
		msg, ok := ev.Data.(message.Message)
		if !ok {
			return
		}
		p.Send(chatMessageMsg{msg: msg})

	case engine.EventToolCallStart:
		call, ok := ev.Data.(content.ToolCall)
		if !ok {
			return
		}
		p.Send(toolStartMsg{call: call})

	case engine.EventToolCallEnd:
		ended, ok := ev.Data.(engine.ToolCallEnded)
		if !ok {
			return
		}
		p.Send(toolEndMsg{ended: ended})

	case engine.EventForcedStop:
		p.Send(forcedStopMsg{})

	case engine.EventRunEnd:
		p.Send(runEndMsg{})
	}
}
