package runloop

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/reedham/tether/pkg/logger"
)

// Loop phases. A run starts in StateThinking and ends in StateDone.
const (
	StateThinking = "thinking"
	StateActing   = "acting"
	StateDone     = "done"
)

// Events that move a run between phases.
const (
	EventActionsRequested = "actions_requested"
	EventActionsResolved  = "actions_resolved"
	EventAnswered         = "answered"
	EventForcedStop       = "forced_stop"
)

// newLoopFSM builds the three-state machine that governs a single run. The
// machine is the authority on which phase the loop is in; an illegal
// transition surfaces as an error instead of silently corrupting the cycle.
func newLoopFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateThinking,
		fsm.Events{
			{Name: EventActionsRequested, Src: []string{StateThinking}, Dst: StateActing},
			{Name: EventAnswered, Src: []string{StateThinking}, Dst: StateDone},
			{Name: EventActionsResolved, Src: []string{StateActing}, Dst: StateThinking},
			{Name: EventForcedStop, Src: []string{StateThinking, StateActing}, Dst: StateDone},
		},
		fsm.Callbacks{
			"after_event": func(cbCtx context.Context, e *fsm.Event) {
				logger.FromContext(cbCtx).Debug("loop transition",
					"event", e.Event,
					"from", e.Src,
					"to", e.Dst,
				)
			},
		},
	)
}
