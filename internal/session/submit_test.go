package session

import (
	"context"
	"sync"
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

func TestSubmit_ClarifyEndToEnd(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)

	res, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	fb, ok := trust.Find(res.Deltas, "Facebook")
	if !ok {
		t.Fatal("no Facebook delta")
	}
	if fb.Player != 5 || fb.AI != 0 {
		t.Errorf("Facebook delta = {%d, %d}, want {5, 0}", fb.Player, fb.AI)
	}
	for _, name := range []string{"Instagram", "Thread"} {
		d, _ := trust.Find(res.Deltas, name)
		if d.Player != 0 || d.AI != 0 {
			t.Errorf("%s delta = {%d, %d}, want {0, 0}", name, d.Player, d.AI)
		}
	}

	if got := len(s.Entries()); got != 2 {
		t.Errorf("len(Entries()) = %d, want 2", got)
	}
	if res.Entry.Action != game.ActionClarify || res.Entry.Actor != game.ActorPlayer {
		t.Errorf("Entry = %+v, want clarify by player", res.Entry)
	}
	if got := s.State(); got.Phase != turn.PhaseResolved || got.Holder != game.ActorPlayer {
		t.Errorf("State() = %+v, want resolved held by player", got)
	}
	if res.Outcome != nil {
		t.Errorf("Outcome = %+v, want nil", res.Outcome)
	}

	sent, _ := fake.LastPlayerTurn()
	if sent.Round != 1 || sent.Action != game.ActionClarify {
		t.Errorf("sent round %d action %s, want round 1 clarify", sent.Round, sent.Action)
	}
	if sent.Article.Author != "player" {
		t.Errorf("Author = %q, want %q", sent.Article.Author, "player")
	}
	if sent.Article.PublishedDate != "2025-05-22T09:00:00Z" {
		t.Errorf("PublishedDate = %q", sent.Article.PublishedDate)
	}
	if len(sent.ToolsUsed) != 1 || sent.ToolsUsed[0] != "fact_check" {
		t.Errorf("ToolsUsed = %v, want [fact_check]", sent.ToolsUsed)
	}
}

func TestSubmit_TrimsDraft(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithPlayerName("ana"))

	_, err := s.Submit(context.Background(), game.ActionAgree, Draft{
		Title:          "  Agreed  ",
		Content:        "\tIt flooded.\n",
		TargetPlatform: " Thread ",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	sent, _ := fake.LastPlayerTurn()
	if sent.Article.Title != "Agreed" || sent.Article.Content != "It flooded." || sent.Article.TargetPlatform != "Thread" {
		t.Errorf("Article = %+v, want trimmed fields", sent.Article)
	}
	if sent.Article.Author != "ana" {
		t.Errorf("Author = %q, want %q", sent.Article.Author, "ana")
	}
}

func TestSubmit_IgnoreResubmitsArticle(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)
	opening, _ := s.Snapshot()

	_, err := s.Submit(context.Background(), game.ActionIgnore, Draft{ToolsUsed: []string{"fact_check"}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	sent, _ := fake.LastPlayerTurn()
	if sent.Action != game.ActionIgnore {
		t.Errorf("Action = %s, want ignore", sent.Action)
	}
	if sent.Article != *opening.Article {
		t.Errorf("Article = %+v, want current article %+v", sent.Article, *opening.Article)
	}
	if len(sent.ToolsUsed) != 0 {
		t.Errorf("ToolsUsed = %v, want none", sent.ToolsUsed)
	}
}

func TestSubmit_ValidationGate(t *testing.T) {
	tests := []struct {
		name       string
		kind       game.ActionKind
		draft      Draft
		wantFields []string
	}{
		{
			name:       "blank title",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "   ", Content: "body", TargetPlatform: "Facebook"},
			wantFields: []string{"title"},
		},
		{
			name:       "everything missing",
			kind:       game.ActionAgree,
			draft:      Draft{},
			wantFields: []string{"title", "content", "target_platform"},
		},
		{
			name:       "unknown platform",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "t", Content: "c", TargetPlatform: "MySpace"},
			wantFields: []string{"target_platform"},
		},
		{
			name:       "unknown tool",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "t", Content: "c", TargetPlatform: "Facebook", ToolsUsed: []string{"mind_control"}},
			wantFields: []string{"tools_used"},
		},
		{
			name:       "tool not yet available",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "t", Content: "c", TargetPlatform: "Facebook", ToolsUsed: []string{"live_stream"}},
			wantFields: []string{"tools_used"},
		},
		{
			name:       "opponent-only tool",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "t", Content: "c", TargetPlatform: "Facebook", ToolsUsed: []string{"clickbait"}},
			wantFields: []string{"tools_used"},
		},
		{
			name:       "blank tool name",
			kind:       game.ActionClarify,
			draft:      Draft{Title: "t", Content: "c", TargetPlatform: "Facebook", ToolsUsed: []string{" "}},
			wantFields: []string{"tools_used"},
		},
		{
			name:       "unknown action",
			kind:       game.ActionKind("retweet"),
			draft:      clarifyDraft(),
			wantFields: []string{"action"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeResolver()
			s := startSession(t, fake)
			before, _ := s.Snapshot()

			_, err := s.Submit(context.Background(), tt.kind, tt.draft)

			var verr *errors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Submit() error = %v, want *ValidationError", err)
			}
			for _, f := range tt.wantFields {
				if !verr.HasField(f) {
					t.Errorf("error %v does not name field %q", err, f)
				}
			}
			if got := fake.PlayerCalls(); got != 0 {
				t.Errorf("PlayerCalls() = %d, want 0", got)
			}
			if got := s.Phase(); got != turn.PhaseAwaitingAction {
				t.Errorf("Phase() = %s, want awaiting_action", got)
			}
			if got := len(s.Entries()); got != 1 {
				t.Errorf("len(Entries()) = %d, want 1", got)
			}
			after, _ := s.Snapshot()
			if after.RoundNumber != before.RoundNumber || after.Actor != before.Actor {
				t.Error("snapshot changed after rejected draft")
			}
		})
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)
	entered, release := fake.Block(resolver.OpPlayerTurn)
	defer release()

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first submission never reached the resolver")
	}

	_, err := s.Submit(context.Background(), game.ActionAgree, clarifyDraft())
	var concErr *errors.ConcurrentSubmissionError
	if !errors.As(err, &concErr) {
		t.Fatalf("second Submit() error = %v, want *ConcurrentSubmissionError", err)
	}
	if !errors.Is(err, errors.ErrSubmissionInFlight) {
		t.Error("error should match ErrSubmissionInFlight")
	}
	if _, err := s.AdvanceRound(context.Background()); !errors.As(err, &concErr) {
		t.Errorf("AdvanceRound() during submission error = %v, want *ConcurrentSubmissionError", err)
	}
	if got := s.Phase(); got != turn.PhaseSubmitting {
		t.Errorf("Phase() = %s, want submitting", got)
	}
	if got := len(s.Entries()); got != 1 {
		t.Errorf("len(Entries()) = %d, want 1 while in flight", got)
	}

	release()
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Submit() error = %v", firstErr)
	}
	if got := fake.PlayerCalls(); got != 1 {
		t.Errorf("PlayerCalls() = %d, want 1", got)
	}
	if got := len(s.Entries()); got != 2 {
		t.Errorf("len(Entries()) = %d, want 2", got)
	}
}

func TestSubmit_ResolutionFailureReverts(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)
	before, _ := s.Snapshot()

	fake.FailNext(resolver.OpPlayerTurn, errors.NewResolutionError(resolver.OpPlayerTurn, errors.ErrRemoteFailure).
		WithStatus(404).
		WithRemoteMessage("game not found"))

	var failed []event.SubmissionFailedEvent
	s.Bus().Subscribe(event.TypeSubmissionFailed, func(e event.Event) {
		failed = append(failed, e.(event.SubmissionFailedEvent))
	})

	_, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	if got := errors.UserMessage(err); got != "game not found" {
		t.Errorf("UserMessage() = %q, want %q", got, "game not found")
	}
	if !errors.IsRetryable(err) {
		t.Error("resolution errors should be retryable")
	}
	if got := s.State(); got.Phase != turn.PhaseAwaitingAction || got.Holder != game.ActorPlayer {
		t.Errorf("State() = %+v, want awaiting_action held by player", got)
	}
	after, _ := s.Snapshot()
	if after.RoundNumber != before.RoundNumber || after.Actor != before.Actor {
		t.Error("snapshot changed after failed resolution")
	}
	if got := len(s.Entries()); got != 1 {
		t.Errorf("len(Entries()) = %d, want 1", got)
	}
	if len(failed) != 1 || failed[0].Kind != "resolution" || failed[0].Message != "game not found" {
		t.Errorf("failure events = %+v", failed)
	}

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if got := len(s.Entries()); got != 2 {
		t.Errorf("len(Entries()) after retry = %d, want 2", got)
	}
}

func TestSubmit_Timeout(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake, WithSubmissionTimeout(30*time.Millisecond))
	_, release := fake.Block(resolver.OpPlayerTurn)
	defer release()

	_, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())

	var resErr *errors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Submit() error = %v, want *ResolutionError", err)
	}
	if !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("error should wrap ErrTimeout: %v", err)
	}
	if got := s.Phase(); got != turn.PhaseAwaitingAction {
		t.Errorf("Phase() = %s, want awaiting_action", got)
	}
}

func TestSubmit_InconsistentResult(t *testing.T) {
	fake := testutil.NewFakeResolver()
	fake.OnPlayer = func(prev game.Snapshot, _ resolver.PlayerTurn) game.Snapshot {
		prev.RoundNumber = 1
		prev.Actor = game.ActorPlayer
		prev.PlatformStatus = nil
		return prev
	}
	s := startSession(t, fake, WithAutoAdvance(true))

	_, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft())
	if !errors.Is(err, errors.ErrMissingPlatforms) {
		t.Fatalf("Submit() error = %v, want ErrMissingPlatforms", err)
	}
	if errors.IsRetryable(err) {
		t.Error("inconsistency should not be retryable")
	}
	if got := s.Phase(); got != turn.PhaseSessionEnded {
		t.Errorf("Phase() = %s, want session_ended", got)
	}
	if got := len(s.Entries()); got != 1 {
		t.Errorf("len(Entries()) = %d, want 1", got)
	}
	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); !errors.Is(err, errors.ErrSessionEnded) {
		t.Errorf("Submit() after end error = %v, want ErrSessionEnded", err)
	}
	if got := fake.AICalls(); got != 0 {
		t.Errorf("AICalls() = %d, want 0", got)
	}
}

func TestSubmit_NotYourTurn(t *testing.T) {
	fake := testutil.NewFakeResolver()
	s := startSession(t, fake)

	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := s.Submit(context.Background(), game.ActionClarify, clarifyDraft()); !errors.Is(err, errors.ErrNotYourTurn) {
		t.Errorf("Submit() on resolved round error = %v, want ErrNotYourTurn", err)
	}
	if got := fake.PlayerCalls(); got != 1 {
		t.Errorf("PlayerCalls() = %d, want 1", got)
	}
}

func TestPolishDraft(t *testing.T) {
	t.Run("no rewriter", func(t *testing.T) {
		fake := testutil.NewFakeResolver()
		s, err := New(Config{Resolver: fake})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := s.PolishDraft(context.Background(), "text", "", "Facebook"); !errors.Is(err, errors.ErrRewriteUnavailable) {
			t.Errorf("PolishDraft() error = %v, want ErrRewriteUnavailable", err)
		}
	})

	t.Run("before start", func(t *testing.T) {
		s := newTestSession(t, testutil.NewFakeResolver())
		if _, err := s.PolishDraft(context.Background(), "text", "", "Facebook"); !errors.Is(err, errors.ErrNoSession) {
			t.Errorf("PolishDraft() error = %v, want ErrNoSession", err)
		}
	})

	t.Run("rejects empty content and platform", func(t *testing.T) {
		fake := testutil.NewFakeResolver()
		s := startSession(t, fake)

		_, err := s.PolishDraft(context.Background(), " ", "", "")
		var verr *errors.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("PolishDraft() error = %v, want *ValidationError", err)
		}
		if !verr.HasField("content") || !verr.HasField("target_platform") {
			t.Errorf("fields = %v", verr.Fields)
		}
		if got := len(fake.Polishes()); got != 0 {
			t.Errorf("rewrite calls = %d, want 0", got)
		}
	})

	t.Run("polishes with default style", func(t *testing.T) {
		fake := testutil.NewFakeResolver()
		s := startSession(t, fake)
		before, _ := s.Snapshot()

		var polished []string
		s.Bus().Subscribe(event.TypeDraftPolished, func(e event.Event) {
			polished = append(polished, e.(event.DraftPolishedEvent).Content)
		})

		out, err := s.PolishDraft(context.Background(), "It flooded.", "", "Thread")
		if err != nil {
			t.Fatalf("PolishDraft() error = %v", err)
		}
		if out != "Polished: It flooded." {
			t.Errorf("PolishDraft() = %q", out)
		}
		reqs := fake.Polishes()
		if len(reqs) != 1 || reqs[0].Requirement != DefaultPolishStyle || reqs[0].Platform != "Thread" {
			t.Errorf("requests = %+v", reqs)
		}
		if len(polished) != 1 {
			t.Errorf("draft.polished events = %d, want 1", len(polished))
		}

		after, _ := s.Snapshot()
		if after.RoundNumber != before.RoundNumber || len(s.Entries()) != 1 || s.Phase() != turn.PhaseAwaitingAction {
			t.Error("PolishDraft() must not change session state")
		}
	})

	t.Run("rewrite failure", func(t *testing.T) {
		fake := testutil.NewFakeResolver()
		fake.FailNext(resolver.OpPolish, errors.New("model offline"))
		s := startSession(t, fake)

		_, err := s.PolishDraft(context.Background(), "text", "shorter", "Facebook")
		var resErr *errors.ResolutionError
		if !errors.As(err, &resErr) || resErr.Operation != resolver.OpPolish {
			t.Errorf("PolishDraft() error = %v, want polish *ResolutionError", err)
		}
	})
}
