// Package testutil provides testing utilities for Sustainet tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/resolver"
)

// DefaultPlatforms are the platforms of a standard test session.
var DefaultPlatforms = []string{"Facebook", "Instagram", "Thread"}

// Platforms returns a status list at the baseline for names.
func Platforms(names ...string) []game.PlatformStatus {
	out := make([]game.PlatformStatus, 0, len(names))
	for _, n := range names {
		out = append(out, game.PlatformStatus{Name: n, PlayerTrust: 50, AITrust: 50, SpreadRate: 50})
	}
	return out
}

// Tools returns a small catalogue: one tool for each audience, and one that
// unlocks in round 3.
func Tools() []game.Tool {
	return []game.Tool{
		{Name: "fact_check", Description: "Cite a primary source", TrustEffect: 1.2, SpreadEffect: 0.9, ApplicableTo: "player", AvailableFromRound: 1},
		{Name: "expert_quote", Description: "Quote a domain expert", TrustEffect: 1.1, SpreadEffect: 1.0, ApplicableTo: "both", AvailableFromRound: 1},
		{Name: "clickbait", Description: "Sensational headline", TrustEffect: 0.8, SpreadEffect: 1.5, ApplicableTo: "ai", AvailableFromRound: 1},
		{Name: "live_stream", Description: "Go live with the story", TrustEffect: 1.3, SpreadEffect: 1.3, ApplicableTo: "both", AvailableFromRound: 3},
	}
}

// OpeningSnapshot returns the round-1 AI snapshot a session starts from.
func OpeningSnapshot(sessionID string) game.Snapshot {
	setup := make([]game.PlatformSetup, 0, len(DefaultPlatforms))
	for _, n := range DefaultPlatforms {
		setup = append(setup, game.PlatformSetup{Name: n, Audience: "general"})
	}
	return game.Snapshot{
		SessionID:   sessionID,
		RoundNumber: 1,
		Actor:       game.ActorAI,
		Article: &game.Article{
			Title:          "Heavy rain floods the city centre",
			Content:        "Photos show cars under water on Main Street.",
			Author:         "ai",
			PublishedDate:  "2025-05-22T08:00:00Z",
			TargetPlatform: "Facebook",
		},
		PlatformSetup:      setup,
		PlatformStatus:     Platforms(DefaultPlatforms...),
		Tools:              Tools(),
		ToolsUsed:          []string{"clickbait"},
		Effectiveness:      game.EffectivenessMedium,
		ReachCount:         1200,
		SimulatedReactions: []string{"Is this real?", "Stay safe everyone"},
	}
}

// PlayerFunc computes the snapshot for a player turn from the previous one.
type PlayerFunc func(prev game.Snapshot, turn resolver.PlayerTurn) game.Snapshot

// AIFunc computes the snapshot for an AI turn from the previous one.
type AIFunc func(prev game.Snapshot, round int) game.Snapshot

// FakeResolver is a scripted in-memory resolver. It keeps its own copy of
// the latest snapshot, like the real server does, and counts calls.
//
// By default a player turn adds PlayerGain player trust on the target
// platform and an AI turn adds AIGain AI trust on every platform.
type FakeResolver struct {
	PlayerGain int
	AIGain     int
	OnPlayer   PlayerFunc
	OnAI       AIFunc
	EndAt      int // report game_end_info on the AI turn of this round, 0 for never

	mu          sync.Mutex
	current     game.Snapshot
	opening     game.Snapshot
	failures    map[string][]error
	gates       map[string]chan struct{}
	entered     map[string]chan struct{}
	startCalls  int
	playerTurns []resolver.PlayerTurn
	aiRounds    []int
	polishes    []resolver.PolishRequest
}

// NewFakeResolver creates a fake that opens sessions with OpeningSnapshot.
func NewFakeResolver() *FakeResolver {
	return &FakeResolver{
		PlayerGain: 5,
		opening:    OpeningSnapshot("game_test"),
		failures:   make(map[string][]error),
		gates:      make(map[string]chan struct{}),
		entered:    make(map[string]chan struct{}),
	}
}

// WithOpening replaces the snapshot returned by StartSession.
func (f *FakeResolver) WithOpening(s game.Snapshot) *FakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opening = s
	return f
}

// FailNext queues err for the next call of op (a resolver.Op* name).
func (f *FakeResolver) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Block makes calls of op wait until the returned release function is
// called or their context ends. The entered channel receives once per
// blocked call.
func (f *FakeResolver) Block(op string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	f.gates[op] = gate
	f.entered[op] = in
	var once sync.Once
	return in, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, op)
			f.mu.Unlock()
			close(gate)
		})
	}
}

// StartSession implements resolver.Resolver.
func (f *FakeResolver) StartSession(ctx context.Context) (game.Snapshot, error) {
	f.mu.Lock()
	f.startCalls++
	f.mu.Unlock()
	if err := f.wait(ctx, resolver.OpStart); err != nil {
		return game.Snapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.opening.Clone()
	return f.current.Clone(), nil
}

// ResolvePlayerTurn implements resolver.Resolver.
func (f *FakeResolver) ResolvePlayerTurn(ctx context.Context, turn resolver.PlayerTurn) (game.Snapshot, error) {
	f.mu.Lock()
	turn.ToolsUsed = append([]string(nil), turn.ToolsUsed...)
	f.playerTurns = append(f.playerTurns, turn)
	f.mu.Unlock()
	if err := f.wait(ctx, resolver.OpPlayerTurn); err != nil {
		return game.Snapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var next game.Snapshot
	if f.OnPlayer != nil {
		next = f.OnPlayer(f.current.Clone(), turn)
	} else {
		next = f.playerDefault(turn)
	}
	f.current = next.Clone()
	return next, nil
}

func (f *FakeResolver) playerDefault(turn resolver.PlayerTurn) game.Snapshot {
	next := f.current.Clone()
	next.RoundNumber = turn.Round
	next.Actor = game.ActorPlayer
	article := turn.Article
	next.Article = &article
	next.ToolsUsed = append([]string(nil), turn.ToolsUsed...)
	next.Effectiveness = game.EffectivenessHigh
	next.ReachCount = 390
	next.EndInfo = nil
	for i := range next.PlatformStatus {
		if next.PlatformStatus[i].Name == turn.Article.TargetPlatform {
			next.PlatformStatus[i].PlayerTrust += f.PlayerGain
		}
	}
	return next
}

// ResolveAiTurn implements resolver.Resolver.
func (f *FakeResolver) ResolveAiTurn(ctx context.Context, sessionID string, round int) (game.Snapshot, error) {
	f.mu.Lock()
	f.aiRounds = append(f.aiRounds, round)
	f.mu.Unlock()
	if err := f.wait(ctx, resolver.OpAiTurn); err != nil {
		return game.Snapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var next game.Snapshot
	if f.OnAI != nil {
		next = f.OnAI(f.current.Clone(), round)
	} else {
		next = f.current.Clone()
		next.RoundNumber = round
		next.Actor = game.ActorAI
		next.Article = &game.Article{
			Title:          "Follow-up rumour",
			Content:        "Sources say it was staged.",
			Author:         "ai",
			PublishedDate:  time.Date(2025, 5, 22, 8, round, 0, 0, time.UTC).Format(time.RFC3339),
			TargetPlatform: "Instagram",
		}
		next.ToolsUsed = nil
		next.ReachCount = 800
		for i := range next.PlatformStatus {
			next.PlatformStatus[i].AITrust += f.AIGain
		}
	}
	if f.EndAt > 0 && round >= f.EndAt {
		next.EndInfo = &game.EndInfo{Ended: true, Reason: "remote_reported", Winner: "ai"}
	}
	f.current = next.Clone()
	return next, nil
}

// Polish implements resolver.Rewriter.
func (f *FakeResolver) Polish(ctx context.Context, req resolver.PolishRequest) (string, error) {
	f.mu.Lock()
	f.polishes = append(f.polishes, req)
	f.mu.Unlock()
	if err := f.wait(ctx, resolver.OpPolish); err != nil {
		return "", err
	}
	return "Polished: " + req.Content, nil
}

// wait consumes a queued failure or blocks on a gate for op.
func (f *FakeResolver) wait(ctx context.Context, op string) error {
	f.mu.Lock()
	if queued := f.failures[op]; len(queued) > 0 {
		err := queued[0]
		f.failures[op] = queued[1:]
		f.mu.Unlock()
		return err
	}
	gate := f.gates[op]
	in := f.entered[op]
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case in <- struct{}{}:
	default:
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartCalls returns how many sessions were started.
func (f *FakeResolver) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

// PlayerCalls returns how many player turns were sent.
func (f *FakeResolver) PlayerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playerTurns)
}

// AICalls returns how many AI turns were requested.
func (f *FakeResolver) AICalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.aiRounds)
}

// AIRounds returns the round numbers AI turns were requested for.
func (f *FakeResolver) AIRounds() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.aiRounds...)
}

// LastPlayerTurn returns the most recent player turn payload.
func (f *FakeResolver) LastPlayerTurn() (resolver.PlayerTurn, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.playerTurns) == 0 {
		return resolver.PlayerTurn{}, false
	}
	return f.playerTurns[len(f.playerTurns)-1], true
}

// Polishes returns every rewrite request received.
func (f *FakeResolver) Polishes() []resolver.PolishRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]resolver.PolishRequest(nil), f.polishes...)
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
