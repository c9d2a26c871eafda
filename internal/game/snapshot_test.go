package game

import (
	"testing"

	"github.com/sustainet/sustainet/internal/errors"
)

func sample() Snapshot {
	return Snapshot{
		SessionID:   "game_001",
		RoundNumber: 2,
		Actor:       ActorAI,
		Article:     &Article{Title: "Flood", Content: "Rain", TargetPlatform: "Facebook"},
		PlatformSetup: []PlatformSetup{
			{Name: "Facebook", Audience: "young"},
			{Name: "Instagram", Audience: "students"},
		},
		PlatformStatus: []PlatformStatus{
			{Name: "Facebook", PlayerTrust: 55, AITrust: 50, SpreadRate: 40},
			{Name: "Instagram", PlayerTrust: 50, AITrust: 60, SpreadRate: 30},
		},
		Tools: []Tool{
			{Name: "fact_check", ApplicableTo: "player", AvailableFromRound: 1},
			{Name: "deepfake", ApplicableTo: "ai", AvailableFromRound: 1},
			{Name: "expert_quote", ApplicableTo: "both", AvailableFromRound: 3},
		},
		ToolsUsed:          []string{"deepfake"},
		SimulatedReactions: []string{"wow", "fake!"},
		EndInfo:            &EndInfo{Ended: false},
	}
}

func TestActor(t *testing.T) {
	if !ActorPlayer.Valid() || !ActorAI.Valid() || Actor("gm").Valid() {
		t.Error("Valid() misclassified an actor")
	}
	if ActorPlayer.Opponent() != ActorAI || ActorAI.Opponent() != ActorPlayer {
		t.Error("Opponent() should swap player and ai")
	}
}

func TestActionKind(t *testing.T) {
	tests := []struct {
		kind  ActionKind
		valid bool
		draft bool
	}{
		{ActionClarify, true, true},
		{ActionAgree, true, true},
		{ActionIgnore, true, false},
		{ActionKind("retweet"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.kind.RequiresDraft(); got != tt.draft {
				t.Errorf("RequiresDraft() = %v, want %v", got, tt.draft)
			}
		})
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := sample()
	c := orig.Clone()

	c.Article.Title = "changed"
	c.PlatformStatus[0].PlayerTrust = 0
	c.ToolsUsed[0] = "changed"
	c.SimulatedReactions[0] = "changed"
	c.EndInfo.Ended = true

	if orig.Article.Title != "Flood" {
		t.Error("Clone shares the article")
	}
	if orig.PlatformStatus[0].PlayerTrust != 55 {
		t.Error("Clone shares platform status")
	}
	if orig.ToolsUsed[0] != "deepfake" || orig.SimulatedReactions[0] != "wow" {
		t.Error("Clone shares string slices")
	}
	if orig.EndInfo.Ended {
		t.Error("Clone shares end info")
	}
}

func TestSnapshot_PlatformNames(t *testing.T) {
	s := sample()
	if got := s.PlatformNames(); len(got) != 2 || got[0] != "Facebook" || got[1] != "Instagram" {
		t.Errorf("PlatformNames() = %v", got)
	}

	s.PlatformSetup = nil
	if got := s.PlatformNames(); len(got) != 2 || got[1] != "Instagram" {
		t.Errorf("PlatformNames() without setup = %v", got)
	}
	if !s.HasPlatform("Facebook") || s.HasPlatform("Thread") {
		t.Error("HasPlatform() misreported membership")
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	s := sample()

	if p, ok := s.Platform("Instagram"); !ok || p.AITrust != 60 {
		t.Errorf("Platform(Instagram) = %+v, %v", p, ok)
	}
	if _, ok := s.Platform("Thread"); ok {
		t.Error("Platform(Thread) should be absent")
	}
	if _, ok := s.Tool("fact_check"); !ok {
		t.Error("Tool(fact_check) should be present")
	}

	avail := s.AvailableTools(2, ActorPlayer)
	if len(avail) != 1 || avail[0].Name != "fact_check" {
		t.Errorf("AvailableTools(2, player) = %+v", avail)
	}
	avail = s.AvailableTools(3, ActorPlayer)
	if len(avail) != 2 {
		t.Errorf("AvailableTools(3, player) = %+v, want 2 tools", avail)
	}
}

func TestSnapshot_Missing(t *testing.T) {
	s := sample()
	if m := s.Missing(); m != nil {
		t.Errorf("Missing() = %v, want nil", m)
	}

	s.Article = nil
	s.PlatformStatus = nil
	m := s.Missing()
	if len(m) != 2 || m[0] != errors.ErrMissingArticle || m[1] != errors.ErrMissingPlatforms {
		t.Errorf("Missing() = %v", m)
	}
}

func TestSnapshot_Ended(t *testing.T) {
	s := sample()
	if s.Ended() {
		t.Error("Ended() = true for EndInfo{Ended:false}")
	}
	s.EndInfo = nil
	if s.Ended() {
		t.Error("Ended() = true without EndInfo")
	}
	s.EndInfo = &EndInfo{Ended: true, Reason: "player_dominance", Winner: "player"}
	if !s.Ended() {
		t.Error("Ended() = false, want true")
	}
}
