package turn

import (
	"slices"
	"sync"
	"time"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/game"
)

// State is a consistent read of the machine.
type State struct {
	Phase  Phase
	Holder game.Actor
}

// Machine is the turn/phase state machine. It is safe for concurrent use.
//
// BeginAction is the only mutator meant for callers outside the session.
// Resolve, Revert, PassTo and End are driven by the submission pipeline and
// the round coordinator.
type Machine struct {
	mu        sync.Mutex
	phase     Phase
	holder    game.Actor
	history   []Transition
	callbacks []ChangeCallback
	now       func() time.Time
}

// NewMachine creates a machine in PhaseAwaitingAction with holder to act.
func NewMachine(holder game.Actor) *Machine {
	m := &Machine{
		phase:  PhaseAwaitingAction,
		holder: holder,
		now:    time.Now,
	}
	m.history = append(m.history, Transition{
		To:        PhaseAwaitingAction,
		Holder:    holder,
		Timestamp: m.now(),
		Reason:    "session started",
	})
	return m
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Holder returns the actor holding the turn.
func (m *Machine) Holder() game.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder
}

// State returns phase and holder read together.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Phase: m.phase, Holder: m.holder}
}

// History returns every transition so far, oldest first.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// OnChange registers a callback invoked after each transition, in
// registration order.
func (m *Machine) OnChange(cb ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// BeginAction moves the machine to PhaseSubmitting on behalf of actor.
//
// It is valid only in PhaseAwaitingAction and only for the turn holder. Any
// other call leaves the machine untouched and returns a *TransitionError
// wrapping ErrSubmissionInFlight, ErrSessionEnded or ErrNotYourTurn. Callers
// that only want best-effort behavior may ignore the error; the machine is
// unchanged either way.
func (m *Machine) BeginAction(actor game.Actor) error {
	return m.transition(PhaseSubmitting, actor, func(s State) error {
		switch {
		case s.Phase == PhaseSubmitting:
			return errors.ErrSubmissionInFlight
		case s.Phase.IsTerminal():
			return errors.ErrSessionEnded
		case s.Phase != PhaseAwaitingAction || s.Holder != actor:
			return errors.ErrNotYourTurn
		}
		return nil
	}, actorRef(actor), "action begun")
}

// Resolve marks the outstanding submission as committed.
func (m *Machine) Resolve() error {
	return m.transition(PhaseResolved, "", nil, nil, "resolution committed")
}

// Revert returns a failed submission to PhaseAwaitingAction with the same holder.
func (m *Machine) Revert(reason string) error {
	return m.transition(PhaseAwaitingAction, "", nil, nil, reason)
}

// PassTo hands the turn to actor after a resolved round.
func (m *Machine) PassTo(actor game.Actor) error {
	return m.transition(PhaseAwaitingAction, "", func(s State) error {
		if s.Phase != PhaseResolved {
			return errors.ErrInvalidTransition
		}
		return nil
	}, actorRef(actor), "turn passed to "+string(actor))
}

// End moves the machine to PhaseSessionEnded. Ending an ended session is a no-op.
func (m *Machine) End(reason string) error {
	err := m.transition(PhaseSessionEnded, "", func(s State) error {
		if s.Phase.IsTerminal() {
			return errAlreadyEnded
		}
		return nil
	}, nil, reason)
	if errors.Is(err, errAlreadyEnded) {
		return nil
	}
	return err
}

var errAlreadyEnded = errors.New("already ended")

func actorRef(a game.Actor) *game.Actor { return &a }

// transition validates and applies one phase change, then notifies callbacks.
func (m *Machine) transition(to Phase, actor game.Actor, check func(State) error, holder *game.Actor, reason string) error {
	m.mu.Lock()
	from := m.phase
	if check != nil {
		if err := check(State{Phase: from, Holder: m.holder}); err != nil {
			m.mu.Unlock()
			return &TransitionError{From: from, To: to, Actor: actor, Err: err}
		}
	}
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return &TransitionError{From: from, To: to, Actor: actor, Err: errors.ErrInvalidTransition}
	}

	m.phase = to
	if holder != nil {
		m.holder = *holder
	}
	t := Transition{
		From:      from,
		To:        to,
		Holder:    m.holder,
		Timestamp: m.now(),
		Reason:    reason,
	}
	m.history = append(m.history, t)
	callbacks := slices.Clone(m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(t)
	}
	return nil
}
