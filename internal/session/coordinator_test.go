package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/testutil"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/turn"
)

func TestAdvanceRound_Manual(t *testing.T) {
	fake := testutil.NewFakeResolver()
	fake.AIGain = 2
	s := startSession(t, fake)

	if _, err := s.AdvanceRound(context.Background()); !errors.Is(err, errors.ErrNotYourTurn) {
		t.Errorf("AdvanceRound() before player acted error = %v, want ErrNotYourTurn", err)
	}

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	res, err := s.AdvanceRound(context.Background())
	if err != nil {
		t.Fatalf("AdvanceRound() error = %v", err)
	}

	if res.Snapshot.RoundNumber != 2 || res.Snapshot.Actor != game.ActorAI {
		t.Errorf("snapshot = round %d actor %s, want round 2 ai", res.Snapshot.RoundNumber, res.Snapshot.Actor)
	}
	if got := fake.AIRounds(); len(got) != 1 || got[0] != 2 {
		t.Errorf("AIRounds() = %v, want [2]", got)
	}
	for _, d := range res.Deltas {
		if d.AI != 2 || d.Player != 0 {
			t.Errorf("%s delta = {%d, %d}, want {0, 2}", d.Platform, d.Player, d.AI)
		}
	}
	if res.Entry.Action != "" || res.Entry.Actor != game.ActorAI {
		t.Errorf("Entry = %+v, want ai entry without action", res.Entry)
	}
	if got := s.State(); got.Phase != turn.PhaseAwaitingAction || got.Holder != game.ActorPlayer {
		t.Errorf("State() = %+v, want awaiting_action held by player", got)
	}
	if got := len(s.Entries()); got != 3 {
		t.Errorf("len(Entries()) = %d, want 3", got)
	}
}

func TestAdvanceRound_FailureKeepsOpponentTurn(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)
	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	fake.FailNext(resolver.OpAiTurn, errors.New("502 bad gateway"))
	_, err := s.AdvanceRound(context.Background())
	var resErr *errors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("AdvanceRound() error = %v, want *ResolutionError", err)
	}
	if got := s.State(); got.Phase != turn.PhaseAwaitingAction || got.Holder != game.ActorAI {
		t.Errorf("State() = %+v, want awaiting_action held by ai", got)
	}
	if got := len(s.Entries()); got != 2 {
		t.Errorf("len(Entries()) = %d, want 2", got)
	}
	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); !errors.Is(err, errors.ErrNotYourTurn) {
		t.Errorf("Submit() during opponent turn error = %v, want ErrNotYourTurn", err)
	}

	if _, err := s.AdvanceRound(context.Background()); err != nil {
		t.Fatalf("retry AdvanceRound() error = %v", err)
	}
	if got := fake.AIRounds(); len(got) != 2 || got[1] != 2 {
		t.Errorf("AIRounds() = %v, want [2 2]", got)
	}
	if got := s.Holder(); got != game.ActorPlayer {
		t.Errorf("Holder() = %s, want player", got)
	}
}

func TestAutoAdvance(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithAutoAdvance(true), WithAdvanceDelay(10*time.Millisecond))

	var scheduled atomic.Int32
	s.Bus().Subscribe(event.TypeAdvanceScheduled, func(e event.Event) {
		if e.(event.AdvanceScheduledEvent).NextRound == 2 {
			scheduled.Add(1)
		}
	})

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	testutil.Eventually(t, 2*time.Second, func() bool {
		st := s.State()
		return s.Round() == 2 && st.Phase == turn.PhaseAwaitingAction && st.Holder == game.ActorPlayer
	}, "opponent turn should run and return control to the player")

	if got := fake.AICalls(); got != 1 {
		t.Errorf("AICalls() = %d, want 1", got)
	}
	if got := scheduled.Load(); got != 1 {
		t.Errorf("advance.scheduled events = %d, want 1", got)
	}
	if got := len(s.Entries()); got != 3 {
		t.Errorf("len(Entries()) = %d, want 3", got)
	}
}

func TestAutoAdvance_ManualAdvanceDisarmsTask(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithAutoAdvance(true), WithAdvanceDelay(time.Hour))

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := s.AdvanceRound(context.Background()); err != nil {
		t.Fatalf("AdvanceRound() error = %v", err)
	}
	if s.coord.pending() {
		t.Error("scheduled task should be disarmed")
	}
	if got := fake.AICalls(); got != 1 {
		t.Errorf("AICalls() = %d, want 1", got)
	}
}

func TestClose_CancelsRunningOpponentTurn(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithAutoAdvance(true), WithAdvanceDelay(0))
	entered, release := fake.Block(resolver.OpAiTurn)
	defer release()

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("opponent turn never started")
	}

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not wait for the cancelled task")
	}
	if got := s.State(); got.Phase != turn.PhaseAwaitingAction || got.Holder != game.ActorAI {
		t.Errorf("State() = %+v, want awaiting_action held by ai", got)
	}
}

// playRound plays the player's turn and, unless the game ended, the opponent's.
func playRound(t *testing.T, s *Session) Result {
	t.Helper()

	res, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	if err != nil {
		t.Fatalf("round %d Submit() error = %v", s.Round(), err)
	}
	if res.Outcome != nil {
		return res
	}
	if _, err := s.AdvanceRound(context.Background()); err != nil {
		t.Fatalf("round %d AdvanceRound() error = %v", s.Round(), err)
	}
	return res
}

func TestFullGame_EndsAfterLastRound(t *testing.T) {
	fake := testutil.NewFakeResolver()
	fake.AIGain = 3
	s := startSession(t, fake)

	var ended []event.SessionEndedEvent
	s.Bus().Subscribe(event.TypeSessionEnded, func(e event.Event) {
		ended = append(ended, e.(event.SessionEndedEvent))
	})

	var last Result
	for round := 1; round <= 5; round++ {
		last = playRound(t, s)
	}

	if last.Outcome == nil {
		t.Fatal("round 5 should end the game")
	}
	if got := fake.AICalls(); got != 4 {
		t.Errorf("AICalls() = %d, want 4", got)
	}
	if got := s.Phase(); got != turn.PhaseSessionEnded {
		t.Errorf("Phase() = %s, want session_ended", got)
	}

	if _, err := s.AdvanceRound(context.Background()); !errors.Is(err, errors.ErrSessionEnded) {
		t.Errorf("AdvanceRound() after end error = %v, want ErrSessionEnded", err)
	}
	if got := fake.AICalls(); got != 4 {
		t.Errorf("AICalls() after end = %d, want 4", got)
	}

	out, ok := s.Outcome()
	if !ok {
		t.Fatal("Outcome() not recorded")
	}
	final, _ := s.Snapshot()
	player, ai := trust.Totals(final.PlatformStatus)
	if out.PlayerTotal != player || out.AITotal != ai {
		t.Errorf("Outcome totals = %d/%d, want %d/%d", out.PlayerTotal, out.AITotal, player, ai)
	}
	// five +5 player turns on Facebook against four +3 ai turns on three platforms
	if player != 175 || ai != 186 {
		t.Errorf("totals = %d/%d, want 175/186", player, ai)
	}
	if out.Reason != trust.ReasonMaxRounds || out.Winner != trust.WinnerAI || out.Round != 5 {
		t.Errorf("Outcome = %+v, want max_rounds_reached won by ai in round 5", out)
	}
	if len(ended) != 1 {
		t.Errorf("session.ended events = %d, want 1", len(ended))
	}
	if got := len(s.Entries()); got != 10 {
		t.Errorf("len(Entries()) = %d, want 10", got)
	}
}

func TestFullGame_AutoAdvanceStopsAtLastRound(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithAutoAdvance(true), WithAdvanceDelay(0))

	for round := 1; round <= 5; round++ {
		testutil.Eventually(t, 2*time.Second, func() bool {
			st := s.State()
			return s.Round() == round && st.Phase == turn.PhaseAwaitingAction && st.Holder == game.ActorPlayer
		}, "player should hold the turn")
		if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
			t.Fatalf("round %d Submit() error = %v", round, err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if got := fake.AICalls(); got != 4 {
		t.Errorf("AICalls() = %d, want 4", got)
	}
	if s.coord.pending() {
		t.Error("no opponent turn should be scheduled after the last round")
	}
	if got := s.Phase(); got != turn.PhaseSessionEnded {
		t.Errorf("Phase() = %s, want session_ended", got)
	}
}

func TestRemoteReportedEnd(t *testing.T) {
	fake := testutil.NewFakeResolver()
	fake.EndAt = 2
	s := startSession(t, fake)

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	res, err := s.AdvanceRound(context.Background())
	if err != nil {
		t.Fatalf("AdvanceRound() error = %v", err)
	}
	if res.Outcome == nil || res.Outcome.Reason != trust.ReasonRemote || res.Outcome.Winner != trust.WinnerAI {
		t.Errorf("Outcome = %+v, want remote_reported won by ai", res.Outcome)
	}
	if res.Outcome != nil && res.Outcome.RemoteReason != "remote_reported" {
		t.Errorf("RemoteReason = %q", res.Outcome.RemoteReason)
	}
	if got := s.Phase(); got != turn.PhaseSessionEnded {
		t.Errorf("Phase() = %s, want session_ended", got)
	}
}

func TestDominanceEndsGameEarly(t *testing.T) {
	fake := testutil.NewFakeResolver()
	fake.OnPlayer = func(prev game.Snapshot, turn resolver.PlayerTurn) game.Snapshot {
		prev.RoundNumber = turn.Round
		prev.Actor = game.ActorPlayer
		for i := range prev.PlatformStatus {
			prev.PlatformStatus[i].PlayerTrust = 100
		}
		return prev
	}
	s := startSession(t, fake, WithAutoAdvance(true), WithAdvanceDelay(0))

	res, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Outcome == nil || res.Outcome.Reason != trust.ReasonPlayerDominant || res.Outcome.Winner != trust.WinnerPlayer {
		t.Fatalf("Outcome = %+v, want player_dominance", res.Outcome)
	}
	time.Sleep(20 * time.Millisecond)
	if got := fake.AICalls(); got != 0 {
		t.Errorf("AICalls() = %d, want 0", got)
	}
}

func TestParseWinner(t *testing.T) {
	tests := []struct {
		label string
		want  trust.Winner
	}{
		{"player", trust.WinnerPlayer},
		{"ai", trust.WinnerAI},
		{"draw", trust.WinnerDraw},
		{"", trust.WinnerNone},
		{"nobody", trust.WinnerNone},
	}
	for _, tt := range tests {
		if got := parseWinner(tt.label); got != tt.want {
			t.Errorf("parseWinner(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
