// Package trust computes per-platform trust deltas between snapshots and
// decides when trust standings end a game.
package trust

import "github.com/sustainet/sustainet/internal/game"

// Baseline is the trust both actors are assumed to hold on a platform for
// which no earlier value exists.
const Baseline = 50

// Delta is the change in trust on one platform between two snapshots.
type Delta struct {
	Platform string
	Player   int
	AI       int
}

// ComputeDelta compares current against previous platform by platform.
// A nil previous, or a platform absent from previous, is measured against
// Baseline. Output order follows current.
func ComputeDelta(previous, current []game.PlatformStatus) []Delta {
	prior := make(map[string]game.PlatformStatus, len(previous))
	for _, p := range previous {
		prior[p.Name] = p
	}

	out := make([]Delta, 0, len(current))
	for _, c := range current {
		basePlayer, baseAI := Baseline, Baseline
		if p, ok := prior[c.Name]; ok {
			basePlayer, baseAI = p.PlayerTrust, p.AITrust
		}
		out = append(out, Delta{
			Platform: c.Name,
			Player:   c.PlayerTrust - basePlayer,
			AI:       c.AITrust - baseAI,
		})
	}
	return out
}

// Find returns the delta for the named platform.
func Find(deltas []Delta, platform string) (Delta, bool) {
	for _, d := range deltas {
		if d.Platform == platform {
			return d, true
		}
	}
	return Delta{}, false
}

// Totals sums trust per actor across all platforms.
func Totals(platforms []game.PlatformStatus) (player, ai int) {
	for _, p := range platforms {
		player += p.PlayerTrust
		ai += p.AITrust
	}
	return player, ai
}

// Trend renders the direction of a change as an arrow.
func Trend(change int) string {
	switch {
	case change > 0:
		return "↗"
	case change < 0:
		return "↘"
	default:
		return "→"
	}
}
