// Package game defines the session snapshot: the authoritative state the
// remote turn resolver returns after every resolved turn.
//
// Snapshots are values. Every method that hands out slices or pointers
// returns copies, so a committed snapshot cannot be changed by its readers.
package game

import (
	"slices"

	"github.com/sustainet/sustainet/internal/errors"
)

// Actor identifies the party that produced a snapshot or holds the turn.
type Actor string

const (
	ActorPlayer Actor = "player"
	ActorAI     Actor = "ai"
)

// Valid reports whether a is a known actor.
func (a Actor) Valid() bool {
	return a == ActorPlayer || a == ActorAI
}

// Opponent returns the other actor.
func (a Actor) Opponent() Actor {
	if a == ActorPlayer {
		return ActorAI
	}
	return ActorPlayer
}

// Effectiveness is the resolver's rating of a round's post.
type Effectiveness string

const (
	EffectivenessLow    Effectiveness = "low"
	EffectivenessMedium Effectiveness = "medium"
	EffectivenessHigh   Effectiveness = "high"
)

// ActionKind is a player's response to the current article.
type ActionKind string

const (
	ActionClarify ActionKind = "clarify"
	ActionAgree   ActionKind = "agree"
	ActionIgnore  ActionKind = "ignore"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionClarify, ActionAgree, ActionIgnore:
		return true
	}
	return false
}

// RequiresDraft reports whether the action publishes a player-written article.
func (k ActionKind) RequiresDraft() bool {
	return k == ActionClarify || k == ActionAgree
}

// ActionKinds returns every action kind in menu order.
func ActionKinds() []ActionKind {
	return []ActionKind{ActionClarify, ActionAgree, ActionIgnore}
}

// Article is the news item published in a round.
type Article struct {
	Title           string
	Content         string
	Author          string
	PublishedDate   string // RFC 3339
	TargetPlatform  string
	PolishedContent string
	ImageURL        string
	Source          string
	Requirement     string
	Veracity        string // true | false | partial, when the resolver judged it
}

// PlatformSetup pairs a platform with its audience. Fixed for a session.
type PlatformSetup struct {
	Name     string
	Audience string
}

// PlatformStatus is the per-platform trust and spread state after a round.
type PlatformStatus struct {
	Name        string
	PlayerTrust int
	AITrust     int
	SpreadRate  int
}

// Tool is an entry of the tool catalogue.
type Tool struct {
	Name               string
	Description        string
	TrustEffect        float64 // multiplier, 1.0 is neutral
	SpreadEffect       float64 // multiplier, 1.0 is neutral
	ApplicableTo       string  // player | ai | both
	AvailableFromRound int
}

// AvailableIn reports whether the tool may be used by actor in round.
func (t Tool) AvailableIn(round int, actor Actor) bool {
	if t.AvailableFromRound > round {
		return false
	}
	return t.ApplicableTo == "" || t.ApplicableTo == "both" || t.ApplicableTo == string(actor)
}

// EndInfo is a remote report that the game is over.
type EndInfo struct {
	Ended  bool
	Reason string
	Winner string
}

// Snapshot is the complete session state after one resolved turn.
type Snapshot struct {
	SessionID          string
	RoundNumber        int
	Actor              Actor
	Article            *Article
	PlatformSetup      []PlatformSetup
	PlatformStatus     []PlatformStatus
	Tools              []Tool
	ToolsUsed          []string
	Effectiveness      Effectiveness
	ReachCount         int
	TrustChange        int
	SpreadChange       int
	SimulatedReactions []string
	EndInfo            *EndInfo
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Article != nil {
		a := *s.Article
		out.Article = &a
	}
	if s.EndInfo != nil {
		e := *s.EndInfo
		out.EndInfo = &e
	}
	out.PlatformSetup = slices.Clone(s.PlatformSetup)
	out.PlatformStatus = slices.Clone(s.PlatformStatus)
	out.Tools = slices.Clone(s.Tools)
	out.ToolsUsed = slices.Clone(s.ToolsUsed)
	out.SimulatedReactions = slices.Clone(s.SimulatedReactions)
	return out
}

// PlatformNames returns the session's platforms in setup order, falling back
// to status order when the setup list is empty.
func (s Snapshot) PlatformNames() []string {
	if len(s.PlatformSetup) > 0 {
		names := make([]string, 0, len(s.PlatformSetup))
		for _, p := range s.PlatformSetup {
			names = append(names, p.Name)
		}
		return names
	}
	names := make([]string, 0, len(s.PlatformStatus))
	for _, p := range s.PlatformStatus {
		names = append(names, p.Name)
	}
	return names
}

// HasPlatform reports whether name is one of the session's platforms.
func (s Snapshot) HasPlatform(name string) bool {
	return slices.Contains(s.PlatformNames(), name)
}

// Platform returns the status of the named platform.
func (s Snapshot) Platform(name string) (PlatformStatus, bool) {
	for _, p := range s.PlatformStatus {
		if p.Name == name {
			return p, true
		}
	}
	return PlatformStatus{}, false
}

// Tool looks up a catalogue entry by name.
func (s Snapshot) Tool(name string) (Tool, bool) {
	for _, t := range s.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// AvailableTools returns the catalogue entries the actor may use in round.
func (s Snapshot) AvailableTools(round int, actor Actor) []Tool {
	var out []Tool
	for _, t := range s.Tools {
		if t.AvailableIn(round, actor) {
			out = append(out, t)
		}
	}
	return out
}

// Missing returns one sentinel per required field that is absent: no article,
// no platform status. A nil result means the snapshot can drive a turn.
func (s Snapshot) Missing() []error {
	var missing []error
	if s.Article == nil {
		missing = append(missing, errors.ErrMissingArticle)
	}
	if len(s.PlatformStatus) == 0 {
		missing = append(missing, errors.ErrMissingPlatforms)
	}
	return missing
}

// Ended reports whether the resolver marked the game as over.
func (s Snapshot) Ended() bool {
	return s.EndInfo != nil && s.EndInfo.Ended
}
