// Package turn provides the turn/phase state machine of a game session.
// It tracks which actor holds the turn and what stage that turn is in, and
// validates every transition against a fixed table. It holds no timers and
// performs no I/O.
package turn

import (
	"fmt"
	"slices"
	"time"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/game"
)

// Phase is a stage of the current turn.
type Phase string

const (
	// PhaseAwaitingAction is the initial phase: the holder may act.
	PhaseAwaitingAction Phase = "awaiting_action"

	// PhaseSubmitting means a remote resolution call is outstanding.
	PhaseSubmitting Phase = "submitting"

	// PhaseResolved means the new snapshot is committed and shown; control
	// has not yet passed to the next actor.
	PhaseResolved Phase = "resolved"

	// PhaseSessionEnded is terminal.
	PhaseSessionEnded Phase = "session_ended"
)

// AllPhases returns all defined phases in lifecycle order.
func AllPhases() []Phase {
	return []Phase{
		PhaseAwaitingAction,
		PhaseSubmitting,
		PhaseResolved,
		PhaseSessionEnded,
	}
}

// IsTerminal returns true if no transition leaves the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseSessionEnded
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ValidTransitions defines which phase transitions are allowed.
// This is the canonical source of truth for the turn state machine.
var ValidTransitions = map[Phase][]Phase{
	PhaseAwaitingAction: {
		PhaseSubmitting,   // holder began an action
		PhaseSessionEnded, // fatal inconsistency detected before submit
	},

	PhaseSubmitting: {
		PhaseResolved,       // remote call succeeded and the result is committed
		PhaseAwaitingAction, // remote call failed or timed out
		PhaseSessionEnded,   // remote returned an unusable snapshot
	},

	PhaseResolved: {
		PhaseAwaitingAction, // control passes to the next actor
		PhaseSessionEnded,   // last round played or a side dominates
	},

	PhaseSessionEnded: {},
}

// CanTransition reports whether moving from one phase to another is allowed.
func CanTransition(from, to Phase) bool {
	validTargets, exists := ValidTransitions[from]
	if !exists {
		return false
	}
	return slices.Contains(validTargets, to)
}

// Transition captures one phase change.
type Transition struct {
	From      Phase
	To        Phase
	Holder    game.Actor // turn holder after the transition
	Timestamp time.Time
	Reason    string
}

// ChangeCallback is called after every transition, outside the machine's lock.
type ChangeCallback func(Transition)

// TransitionError reports a rejected transition. It always matches
// errors.ErrInvalidTransition, and additionally its cause.
type TransitionError struct {
	From  Phase
	To    Phase
	Actor game.Actor
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("turn transition %s -> %s (actor=%s): %v", e.From, e.To, e.Actor, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Is matches errors.ErrInvalidTransition regardless of the cause.
func (e *TransitionError) Is(target error) bool {
	return target == errors.ErrInvalidTransition
}
