package turn

import (
	"testing"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/game"
)

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseAwaitingAction, PhaseSubmitting, true},
		{PhaseAwaitingAction, PhaseResolved, false},
		{PhaseSubmitting, PhaseResolved, true},
		{PhaseSubmitting, PhaseAwaitingAction, true},
		{PhaseResolved, PhaseAwaitingAction, true},
		{PhaseResolved, PhaseSubmitting, false},
		{PhaseSessionEnded, PhaseAwaitingAction, false},
		{Phase("bogus"), PhaseSubmitting, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}

	// Every non-terminal phase can end the session
	for _, p := range AllPhases() {
		if p.IsTerminal() {
			continue
		}
		if !CanTransition(p, PhaseSessionEnded) {
			t.Errorf("%s cannot reach %s", p, PhaseSessionEnded)
		}
	}
}

func TestMachine_FullCycle(t *testing.T) {
	m := NewMachine(game.ActorPlayer)

	if s := m.State(); s.Phase != PhaseAwaitingAction || s.Holder != game.ActorPlayer {
		t.Fatalf("initial state = %+v", s)
	}

	steps := []struct {
		name string
		do   func() error
		want State
	}{
		{"begin", func() error { return m.BeginAction(game.ActorPlayer) }, State{PhaseSubmitting, game.ActorPlayer}},
		{"resolve", m.Resolve, State{PhaseResolved, game.ActorPlayer}},
		{"pass", func() error { return m.PassTo(game.ActorAI) }, State{PhaseAwaitingAction, game.ActorAI}},
		{"ai begin", func() error { return m.BeginAction(game.ActorAI) }, State{PhaseSubmitting, game.ActorAI}},
		{"ai resolve", m.Resolve, State{PhaseResolved, game.ActorAI}},
		{"back to player", func() error { return m.PassTo(game.ActorPlayer) }, State{PhaseAwaitingAction, game.ActorPlayer}},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: unexpected error %v", step.name, err)
		}
		if got := m.State(); got != step.want {
			t.Fatalf("%s: state = %+v, want %+v", step.name, got, step.want)
		}
	}

	if got := len(m.History()); got != len(steps)+1 {
		t.Errorf("len(History()) = %d, want %d", got, len(steps)+1)
	}
}

func TestMachine_BeginActionRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Machine)
		actor game.Actor
		want  error
	}{
		{"wrong holder", func(m *Machine) {}, game.ActorAI, errors.ErrNotYourTurn},
		{"while submitting", func(m *Machine) { _ = m.BeginAction(game.ActorPlayer) }, game.ActorPlayer, errors.ErrSubmissionInFlight},
		{"while resolved", func(m *Machine) {
			_ = m.BeginAction(game.ActorPlayer)
			_ = m.Resolve()
		}, game.ActorPlayer, errors.ErrNotYourTurn},
		{"after end", func(m *Machine) { _ = m.End("done") }, game.ActorPlayer, errors.ErrSessionEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(game.ActorPlayer)
			tt.setup(m)
			before := m.State()
			historyBefore := len(m.History())

			err := m.BeginAction(tt.actor)
			if err == nil {
				t.Fatal("BeginAction() error = nil, want rejection")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("BeginAction() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, errors.ErrInvalidTransition) {
				t.Errorf("BeginAction() error should match ErrInvalidTransition")
			}
			if m.State() != before || len(m.History()) != historyBefore {
				t.Error("rejected BeginAction() mutated the machine")
			}
		})
	}
}

func TestMachine_RevertKeepsHolder(t *testing.T) {
	m := NewMachine(game.ActorAI)
	if err := m.BeginAction(game.ActorAI); err != nil {
		t.Fatal(err)
	}
	if err := m.Revert("timeout"); err != nil {
		t.Fatal(err)
	}
	if s := m.State(); s.Phase != PhaseAwaitingAction || s.Holder != game.ActorAI {
		t.Errorf("state after Revert() = %+v", s)
	}
	if h := m.History(); h[len(h)-1].Reason != "timeout" {
		t.Errorf("last transition reason = %q", h[len(h)-1].Reason)
	}
}

func TestMachine_PipelineMutatorsRequireProperPhase(t *testing.T) {
	m := NewMachine(game.ActorPlayer)

	if err := m.Resolve(); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("Resolve() from awaiting = %v, want ErrInvalidTransition", err)
	}
	if err := m.PassTo(game.ActorAI); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("PassTo() from awaiting = %v, want ErrInvalidTransition", err)
	}
	if err := m.Revert("x"); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("Revert() from awaiting = %v, want ErrInvalidTransition", err)
	}
	if m.Holder() != game.ActorPlayer {
		t.Error("failed PassTo() changed the holder")
	}
}

func TestMachine_End(t *testing.T) {
	m := NewMachine(game.ActorPlayer)
	_ = m.BeginAction(game.ActorPlayer)

	if err := m.End("inconsistent"); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if m.Phase() != PhaseSessionEnded {
		t.Errorf("Phase() = %s, want session_ended", m.Phase())
	}

	n := len(m.History())
	if err := m.End("again"); err != nil {
		t.Errorf("second End() error = %v, want nil", err)
	}
	if len(m.History()) != n {
		t.Error("second End() recorded a transition")
	}
	if err := m.Resolve(); err == nil {
		t.Error("Resolve() after End() should fail")
	}
}

func TestMachine_OnChange(t *testing.T) {
	m := NewMachine(game.ActorPlayer)

	var got []Transition
	m.OnChange(func(tr Transition) {
		// Callbacks run outside the lock, so reading state is safe
		_ = m.Phase()
		got = append(got, tr)
	})

	_ = m.BeginAction(game.ActorPlayer)
	_ = m.Resolve()
	_ = m.BeginAction(game.ActorPlayer) // rejected, no callback

	if len(got) != 2 {
		t.Fatalf("callback count = %d, want 2", len(got))
	}
	if got[0].From != PhaseAwaitingAction || got[0].To != PhaseSubmitting {
		t.Errorf("first transition = %+v", got[0])
	}
	if got[1].To != PhaseResolved || got[1].Holder != game.ActorPlayer {
		t.Errorf("second transition = %+v", got[1])
	}
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{From: PhaseResolved, To: PhaseSubmitting, Actor: game.ActorPlayer, Err: errors.ErrNotYourTurn}

	if want := "turn transition resolved -> submitting (actor=player): not this actor's turn"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, errors.ErrNotYourTurn) || !errors.Is(err, errors.ErrInvalidTransition) {
		t.Error("TransitionError should match its cause and ErrInvalidTransition")
	}
}
