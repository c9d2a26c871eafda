// Package session runs one game session: it owns the current snapshot, the
// round ledger and the turn machine, submits actions to the remote turn
// resolver, and sequences player and opponent turns.
//
// # Thread Safety
//
// Session is safe for concurrent use. At most one remote resolution is
// outstanding at a time; a second submission fails fast with a
// *errors.ConcurrentSubmissionError. The session lock is never held across a
// remote call.
//
// # Events
//
// Every state change is published on the event bus after the session lock is
// released. Handlers may call the session's read accessors.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/ledger"
	"github.com/sustainet/sustainet/internal/logging"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/turn"
)

// Config holds required dependencies for creating a Session.
type Config struct {
	Resolver resolver.Resolver
	Bus      *event.Bus
}

// Outcome is the final standing of an ended session.
type Outcome struct {
	Reason       trust.Reason
	Winner       trust.Winner
	PlayerTotal  int
	AITotal      int
	Round        int
	RemoteReason string // reason text reported by the resolver, if any
	EndedAt      time.Time
}

// Result is what a committed turn produced.
type Result struct {
	Snapshot game.Snapshot
	Deltas   []trust.Delta
	Entry    ledger.Entry
	Outcome  *Outcome // set when this turn ended the session
}

// Session is a single game session.
type Session struct {
	cfg      sessionConfig
	resolver resolver.Resolver
	bus      *event.Bus
	logger   *logging.Logger
	coord    *coordinator

	mu       sync.Mutex
	gen      uint64
	snapshot *game.Snapshot
	machine  *turn.Machine
	ledger   *ledger.Ledger
	outcome  *Outcome
	outbox   []event.Event
}

// New creates a session. Call Start to open a game.
func New(cfg Config, opts ...Option) (*Session, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("session: Resolver is required")
	}
	sc := defaultSessionConfig()
	for _, opt := range opts {
		opt(&sc)
	}
	if sc.logger == nil {
		sc.logger = logging.NopLogger()
	}
	if sc.now == nil {
		sc.now = time.Now
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(sc.logger)
	}
	return &Session{
		cfg:      sc,
		resolver: cfg.Resolver,
		bus:      bus,
		logger:   sc.logger,
		coord:    newCoordinator(),
		ledger:   ledger.New(),
	}, nil
}

// Bus returns the bus the session publishes on.
func (s *Session) Bus() *event.Bus { return s.bus }

// MaxRounds returns the last round that may be played.
func (s *Session) MaxRounds() int { return s.cfg.rules.MaxRounds }

// Start opens a new game and replaces any previous one. The opening snapshot
// is recorded as the first ledger entry and the player holds the turn.
func (s *Session) Start(ctx context.Context) (game.Snapshot, error) {
	s.coord.stop()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.submissionTimeout)
	defer cancel()
	began := s.cfg.now()
	snap, err := s.resolver.StartSession(callCtx)
	s.observe(resolver.OpStart, began, err)
	if err != nil {
		err = resolutionError(callCtx, resolver.OpStart, err)
		s.logger.Warn("session start failed", "error", err.Error())
		return game.Snapshot{}, err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return game.Snapshot{}, errors.Wrap(errors.ErrSessionEnded, "session restarted while starting")
	}

	s.machine = s.newMachine(snap.SessionID)
	s.ledger = ledger.New()
	s.outcome = nil
	committed := snap.Clone()
	s.snapshot = &committed
	log := s.logger.WithSession(snap.SessionID).WithRound(snap.RoundNumber)

	if missing := snap.Missing(); len(missing) > 0 {
		inconsistent := errors.NewStateInconsistencyError(snap.SessionID, snap.RoundNumber, missing...)
		s.endLocked(trust.Verdict{Ended: true, Reason: trust.ReasonInconsistent}, "", inconsistent.Error())
		s.unlockAndFlush()
		log.Error("opening snapshot is inconsistent", "error", inconsistent.Error())
		return game.Snapshot{}, inconsistent
	}

	s.ledger.Append(ledger.NewEntry(snap, "", s.cfg.now()))
	s.outbox = append(s.outbox, event.NewSessionStartedEvent(snap.SessionID, snap.RoundNumber, snap.PlatformNames()))
	s.unlockAndFlush()

	log.Info("session started", "platforms", len(snap.PlatformStatus), "tools", len(snap.Tools))
	return snap.Clone(), nil
}

// newMachine creates a machine whose transitions are queued as events.
// Callers hold s.mu; every transition happens under it.
func (s *Session) newMachine(sessionID string) *turn.Machine {
	m := turn.NewMachine(game.ActorPlayer)
	m.OnChange(func(t turn.Transition) {
		s.outbox = append(s.outbox, event.NewPhaseChangedEvent(sessionID, string(t.From), string(t.To), t.Holder, t.Reason))
	})
	return m
}

// Reset cancels any scheduled opponent turn and forgets the current game.
// A submission in flight is discarded when it returns.
func (s *Session) Reset() {
	s.coord.stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.snapshot = nil
	s.machine = nil
	s.ledger = ledger.New()
	s.outcome = nil
	s.outbox = nil
}

// Close cancels any scheduled opponent turn and waits for it to finish.
func (s *Session) Close() error {
	s.coord.stop()
	return nil
}

// -----------------------------------------------------------------------------
// Read accessors
// -----------------------------------------------------------------------------

// Snapshot returns a copy of the current snapshot. The second result is
// false before Start.
func (s *Session) Snapshot() (game.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return game.Snapshot{}, false
	}
	return s.snapshot.Clone(), true
}

// Round returns the current round number, or 0 before Start.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return 0
	}
	return s.snapshot.RoundNumber
}

// State returns the turn phase and holder. Before Start it is the zero State.
func (s *Session) State() turn.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return turn.State{}
	}
	return s.machine.State()
}

// Phase returns the current turn phase.
func (s *Session) Phase() turn.Phase { return s.State().Phase }

// Holder returns the actor holding the turn.
func (s *Session) Holder() game.Actor { return s.State().Holder }

// History returns every phase transition of the current game.
func (s *Session) History() []turn.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return nil
	}
	return s.machine.History()
}

// Entries returns a copy of the round ledger.
func (s *Session) Entries() []ledger.Entry {
	return s.currentLedger().Entries()
}

// Deltas returns each ledger entry's trust change against its predecessor.
func (s *Session) Deltas() []ledger.RoundDelta {
	return s.currentLedger().Deltas()
}

// Trajectory returns one platform's trust after every ledger entry.
func (s *Session) Trajectory(platform string) []ledger.Point {
	return s.currentLedger().Trajectory(platform)
}

func (s *Session) currentLedger() *ledger.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger
}

// Outcome returns the final standing once the session has ended.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// AvailableTools returns the tools the player may use this round.
func (s *Session) AvailableTools() []game.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.AvailableTools(s.snapshot.RoundNumber, game.ActorPlayer)
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// unlockAndFlush releases s.mu and publishes the queued events.
func (s *Session) unlockAndFlush() {
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, e := range events {
		s.bus.Publish(e)
	}
}

// endLocked ends the game and records its outcome. Callers hold s.mu.
func (s *Session) endLocked(v trust.Verdict, remoteReason, why string) *Outcome {
	if s.outcome != nil {
		return s.outcome
	}
	round := 0
	if s.snapshot != nil {
		round = s.snapshot.RoundNumber
		v.PlayerTotal, v.AITotal = trust.Totals(s.snapshot.PlatformStatus)
	}
	if v.Winner == trust.WinnerNone && v.Reason != trust.ReasonInconsistent {
		v.Winner = trust.ByTotals(v.PlayerTotal, v.AITotal)
	}

	_ = s.machine.End(why)
	s.outcome = &Outcome{
		Reason:       v.Reason,
		Winner:       v.Winner,
		PlayerTotal:  v.PlayerTotal,
		AITotal:      v.AITotal,
		Round:        round,
		RemoteReason: remoteReason,
		EndedAt:      s.cfg.now(),
	}

	sessionID := ""
	if s.snapshot != nil {
		sessionID = s.snapshot.SessionID
	}
	s.outbox = append(s.outbox, event.NewSessionEndedEvent(sessionID, round, v))
	s.logger.WithSession(sessionID).WithRound(round).Info("session ended",
		"reason", string(v.Reason),
		"winner", string(v.Winner),
		"player_total", v.PlayerTotal,
		"ai_total", v.AITotal,
	)
	return s.outcome
}

// fail publishes a submission failure for err and returns it.
func (s *Session) fail(actor game.Actor, err error) error {
	s.mu.Lock()
	sessionID, round := "", 0
	if s.snapshot != nil {
		sessionID, round = s.snapshot.SessionID, s.snapshot.RoundNumber
	}
	s.mu.Unlock()

	kind := errors.Kind(err)
	s.logger.WithSession(sessionID).WithRound(round).WithActor(string(actor)).
		Warn("submission failed", "kind", kind, "error", err.Error())
	s.bus.Publish(event.NewSubmissionFailedEvent(sessionID, round, actor, kind, errors.UserMessage(err), err))
	return err
}

func (s *Session) observe(op string, began time.Time, err error) {
	if s.cfg.metrics != nil {
		s.cfg.metrics.ObserveResolverCall(op, s.cfg.now().Sub(began), err)
	}
}

// resolutionError normalizes a resolver failure into a *errors.ResolutionError.
func resolutionError(ctx context.Context, op string, err error) error {
	var resErr *errors.ResolutionError
	if errors.As(err, &resErr) {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return errors.NewResolutionError(op, errors.Wrap(errors.ErrTimeout, err.Error()))
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return errors.NewResolutionError(op, errors.Wrap(errors.ErrCanceled, err.Error()))
	}
	return errors.NewResolutionError(op, err)
}

// gateLocked reports why actor may not begin an action now. Callers hold s.mu.
func (s *Session) gateLocked(actor game.Actor) error {
	if s.snapshot == nil || s.machine == nil {
		return errors.ErrNoSession
	}
	st := s.machine.State()
	switch {
	case st.Phase.IsTerminal():
		return errors.ErrSessionEnded
	case st.Phase == turn.PhaseSubmitting:
		return errors.NewConcurrentSubmissionError(s.snapshot.SessionID, s.snapshot.RoundNumber, string(st.Holder))
	case st.Phase != turn.PhaseAwaitingAction, st.Holder != actor:
		return errors.ErrNotYourTurn
	}
	return nil
}
