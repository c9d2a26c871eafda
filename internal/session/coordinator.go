package session

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/turn"
)

// coordinator runs the scheduled opponent turn. At most one task is armed
// at a time; it waits for its delay, then runs once.
type coordinator struct {
	mu    sync.Mutex
	armed *task   // waiting for its delay
	tasks []*task // started and not yet known to be finished
}

// task is one scheduled run. Each has its own wait group, so stopping never
// waits on a group that a concurrent schedule is adding to.
type task struct {
	wg     conc.WaitGroup
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func newCoordinator() *coordinator {
	return &coordinator{}
}

// schedule runs fn after delay unless the task is disarmed or stopped first.
func (c *coordinator) schedule(delay time.Duration, fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()

	live := c.tasks[:0]
	for _, t := range c.tasks {
		if !t.finished() {
			live = append(live, t)
		}
	}
	c.tasks = live

	ctx, cancel := context.WithCancel(context.Background())
	fire := make(chan struct{})
	t := &task{cancel: cancel, done: make(chan struct{})}
	t.timer = time.AfterFunc(delay, func() { close(fire) })
	c.armed = t
	c.tasks = append(c.tasks, t)

	t.wg.Go(func() {
		defer close(t.done)
		defer cancel()
		select {
		case <-ctx.Done():
			return
		case <-fire:
		}
		c.fired(t)
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// disarm cancels a task whose delay has not elapsed. A task that already
// fired keeps running. It reports whether a pending task was cancelled.
func (c *coordinator) disarm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disarmLocked()
}

func (c *coordinator) disarmLocked() bool {
	t := c.armed
	if t == nil {
		return false
	}
	c.armed = nil
	stopped := t.timer.Stop()
	if stopped {
		t.cancel()
	}
	return stopped
}

// pending reports whether a task is waiting for its delay.
func (c *coordinator) pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed != nil
}

// stop cancels every task, fired or not, and waits for them to return. A
// task scheduled while stop waits is not waited for; the session's
// generation check keeps it from touching a newer game.
func (c *coordinator) stop() {
	c.mu.Lock()
	c.armed = nil
	tasks := c.tasks
	c.tasks = nil
	for _, t := range tasks {
		t.timer.Stop()
		t.cancel()
	}
	c.mu.Unlock()

	for _, t := range tasks {
		t.wg.Wait()
	}
}

// fired disarms t once its delay has elapsed.
func (c *coordinator) fired(t *task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed == t {
		c.armed = nil
	}
}

// -----------------------------------------------------------------------------
// Round advancement
// -----------------------------------------------------------------------------

// afterResolveLocked decides what follows a committed turn and returns the
// outcome if the game ended. Callers hold s.mu.
//
// After a player turn the game ends when the resolver says so, when the last
// round has been played, or when one side dominates. Otherwise the opponent
// turn is scheduled (auto-advance) or left for AdvanceRound. After an
// opponent turn the game ends only on a remote report or dominance; control
// then returns to the player.
func (s *Session) afterResolveLocked(actor game.Actor, snap game.Snapshot) *Outcome {
	if snap.Ended() {
		v := trust.Verdict{Ended: true, Reason: trust.ReasonRemote, Winner: parseWinner(snap.EndInfo.Winner)}
		return s.endLocked(v, snap.EndInfo.Reason, "resolver reported game end")
	}

	rules := s.cfg.rules
	if actor == game.ActorAI {
		// the player still answers the opponent's last round
		rules.MaxRounds = 0
	}
	if v := trust.Evaluate(rules, snap.RoundNumber, snap.PlatformStatus); v.Ended {
		return s.endLocked(v, "", string(v.Reason))
	}

	if actor == game.ActorAI {
		_ = s.machine.PassTo(game.ActorPlayer)
		return nil
	}

	if s.cfg.autoAdvance {
		s.scheduleAdvanceLocked(snap)
	}
	return nil
}

// scheduleAdvanceLocked queues the opponent's turn. Callers hold s.mu.
func (s *Session) scheduleAdvanceLocked(snap game.Snapshot) {
	delay := s.cfg.advanceDelay
	next := snap.RoundNumber + 1
	s.outbox = append(s.outbox, event.NewAdvanceScheduledEvent(snap.SessionID, next, delay))
	s.logger.WithSession(snap.SessionID).WithRound(snap.RoundNumber).
		Debug("opponent turn scheduled", "next_round", next, "delay_ms", delay.Milliseconds())

	gen := s.gen
	s.coord.schedule(delay, func(ctx context.Context) {
		if _, err := s.advance(ctx, gen); err != nil {
			s.logger.WithSession(snap.SessionID).Warn("scheduled opponent turn failed", "error", err.Error())
		}
	})
}

// AdvanceRound plays the opponent's turn now. It is valid once a player
// round has resolved, and again after a failed opponent turn. A scheduled
// opponent turn that has not started yet is cancelled.
func (s *Session) AdvanceRound(ctx context.Context) (Result, error) {
	s.coord.disarm()
	return s.advance(ctx, 0)
}

// advance runs the opponent's turn through the same single-flight pipeline
// as Submit. Opponent turns carry no payload and are not validated. A
// non-zero armedGen is the generation a scheduled task was armed for; the
// turn is refused once the session has been reset or restarted since.
func (s *Session) advance(ctx context.Context, armedGen uint64) (Result, error) {
	s.mu.Lock()
	if armedGen != 0 && armedGen != s.gen {
		s.mu.Unlock()
		return Result{}, errors.Wrap(errors.ErrSessionEnded, "session restarted before the scheduled opponent turn")
	}
	if s.snapshot != nil && s.machine != nil {
		st := s.machine.State()
		if st.Phase == turn.PhaseResolved && st.Holder == game.ActorPlayer {
			_ = s.machine.PassTo(game.ActorAI)
		}
	}
	if err := s.gateLocked(game.ActorAI); err != nil {
		s.unlockAndFlush()
		return Result{}, s.fail(game.ActorAI, err)
	}
	current := s.snapshot.Clone()
	if err := s.machine.BeginAction(game.ActorAI); err != nil {
		s.unlockAndFlush()
		return Result{}, s.fail(game.ActorAI, err)
	}
	gen := s.gen
	s.unlockAndFlush()

	round := current.RoundNumber + 1
	s.logger.WithSession(current.SessionID).WithRound(round).WithActor(string(game.ActorAI)).Info("requesting opponent turn")

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.submissionTimeout)
	defer cancel()
	began := s.cfg.now()
	next, err := s.resolver.ResolveAiTurn(callCtx, current.SessionID, round)
	s.observe(resolver.OpAiTurn, began, err)
	if err != nil {
		err = resolutionError(callCtx, resolver.OpAiTurn, err)
	}

	res, commitErr := s.commit(gen, game.ActorAI, "", current, next, err)
	if commitErr != nil {
		return Result{}, s.fail(game.ActorAI, commitErr)
	}
	return res, nil
}

// parseWinner maps a remote winner label onto a Winner. Unknown labels
// leave the winner to be decided by totals.
func parseWinner(label string) trust.Winner {
	switch trust.Winner(label) {
	case trust.WinnerPlayer, trust.WinnerAI, trust.WinnerDraw:
		return trust.Winner(label)
	}
	return trust.WinnerNone
}
