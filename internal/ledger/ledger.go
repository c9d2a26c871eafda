// Package ledger keeps the append-only history of resolved rounds.
package ledger

import (
	"slices"
	"sync"
	"time"

	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/trust"
)

// Entry records one resolved turn. Entries are values; the ledger hands out
// copies so an appended entry never changes.
type Entry struct {
	Round          int
	Actor          game.Actor
	Action         game.ActionKind // empty for opponent turns
	Title          string
	Content        string
	TargetPlatform string
	ReachCount     int
	Platforms      []game.PlatformStatus
	Effectiveness  game.Effectiveness
	ToolsUsed      []string
	ResolvedAt     time.Time
}

// NewEntry derives an entry from a committed snapshot.
func NewEntry(s game.Snapshot, action game.ActionKind, at time.Time) Entry {
	e := Entry{
		Round:         s.RoundNumber,
		Actor:         s.Actor,
		Action:        action,
		ReachCount:    s.ReachCount,
		Platforms:     slices.Clone(s.PlatformStatus),
		Effectiveness: s.Effectiveness,
		ToolsUsed:     slices.Clone(s.ToolsUsed),
		ResolvedAt:    at,
	}
	if s.Article != nil {
		e.Title = s.Article.Title
		e.Content = s.Article.Content
		e.TargetPlatform = s.Article.TargetPlatform
	}
	return e
}

func (e Entry) clone() Entry {
	e.Platforms = slices.Clone(e.Platforms)
	e.ToolsUsed = slices.Clone(e.ToolsUsed)
	return e
}

// RoundDelta is an entry's trust change against its predecessor.
type RoundDelta struct {
	Round  int
	Actor  game.Actor
	Action game.ActionKind
	Deltas []trust.Delta
}

// Point is one platform's trust after a given entry.
type Point struct {
	Round       int
	Actor       game.Actor
	PlayerTrust int
	AITrust     int
	PlayerDelta int
	AIDelta     int
}

// Ledger is an append-only, ordered sequence of entries. It is safe for
// concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds e to the end of the ledger.
func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e.clone())
}

// Entries returns a copy of all entries in insertion order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the most recent entry.
func (l *Ledger) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// Deltas recomputes each entry's trust change against the entry before it.
// The first entry is measured against the baseline.
func (l *Ledger) Deltas() []RoundDelta {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]RoundDelta, 0, len(l.entries))
	var prev []game.PlatformStatus
	for _, e := range l.entries {
		out = append(out, RoundDelta{
			Round:  e.Round,
			Actor:  e.Actor,
			Action: e.Action,
			Deltas: trust.ComputeDelta(prev, e.Platforms),
		})
		prev = e.Platforms
	}
	return out
}

// Trajectory returns the named platform's trust after every entry that
// reports it, with the change against the previous entry.
func (l *Ledger) Trajectory(platform string) []Point {
	entries := l.Entries()

	var out []Point
	var prev []game.PlatformStatus
	for _, e := range entries {
		deltas := trust.ComputeDelta(prev, e.Platforms)
		prev = e.Platforms

		d, ok := trust.Find(deltas, platform)
		if !ok {
			continue
		}
		st, _ := findStatus(e.Platforms, platform)
		out = append(out, Point{
			Round:       e.Round,
			Actor:       e.Actor,
			PlayerTrust: st.PlayerTrust,
			AITrust:     st.AITrust,
			PlayerDelta: d.Player,
			AIDelta:     d.AI,
		})
	}
	return out
}

func findStatus(platforms []game.PlatformStatus, name string) (game.PlatformStatus, bool) {
	for _, p := range platforms {
		if p.Name == name {
			return p, true
		}
	}
	return game.PlatformStatus{}, false
}
