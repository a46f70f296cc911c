// file: internal/endpoint/lifecycle.go
package endpoint

import (
	"github.com/dkoosis/mcpcore/internal/fsm"
	"github.com/dkoosis/mcpcore/internal/logging"
)

// The five endpoint lifecycle states (spec.md §3 "Lifecycles").
const (
	StateCreated      fsm.State = "created"
	StateInitializing fsm.State = "initializing"
	StateReady        fsm.State = "ready"
	StateClosing      fsm.State = "closing"
	StateClosed       fsm.State = "closed"
)

const (
	eventStartInit  fsm.Event = "start_init"
	eventBecomeReady fsm.Event = "become_ready"
	eventStartClose fsm.Event = "start_close"
	eventFinishClose fsm.Event = "finish_close"
)

// newLifecycle builds the looplab/fsm-backed state machine guarding endpoint
// transitions. It generalizes internal/fsm/fsm.go's wrapper from
// connection-specific triggers to the five endpoint states.
func newLifecycle(logger logging.Logger) fsm.FSM {
	machine := fsm.NewFSM(StateCreated, logger)
	machine.
		AddTransition(fsm.Transition{From: []fsm.State{StateCreated}, To: StateInitializing, Event: eventStartInit}).
		AddTransition(fsm.Transition{From: []fsm.State{StateInitializing}, To: StateReady, Event: eventBecomeReady}).
		AddTransition(fsm.Transition{From: []fsm.State{StateCreated, StateInitializing, StateReady}, To: StateClosing, Event: eventStartClose}).
		AddTransition(fsm.Transition{From: []fsm.State{StateClosing}, To: StateClosed, Event: eventFinishClose})
	return machine
}
