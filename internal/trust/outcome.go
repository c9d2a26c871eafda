package trust

import "github.com/sustainet/sustainet/internal/game"

// Reason explains why a game ended.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonMaxRounds      Reason = "max_rounds_reached"
	ReasonPlayerDominant Reason = "player_dominance"
	ReasonAIDominant     Reason = "ai_dominance"
	ReasonRemote         Reason = "remote_reported"
	ReasonInconsistent   Reason = "state_inconsistency"
)

// Winner names the side that won, or a draw.
type Winner string

const (
	WinnerNone   Winner = ""
	WinnerPlayer Winner = "player"
	WinnerAI     Winner = "ai"
	WinnerDraw   Winner = "draw"
)

// Rules are the end-of-game thresholds.
type Rules struct {
	MaxRounds         int
	WinTrustThreshold int
	WinPlatformCount  int
}

// DefaultRules returns the standard five-round game.
func DefaultRules() Rules {
	return Rules{MaxRounds: 5, WinTrustThreshold: 100, WinPlatformCount: 3}
}

// Verdict is the result of evaluating the standings after a round.
type Verdict struct {
	Ended       bool
	Reason      Reason
	Winner      Winner
	PlayerTotal int
	AITotal     int
}

// Evaluate decides whether the game is over after round. Reaching the last
// round ends the game with the higher trust total winning. Before that, an
// actor holding at least WinTrustThreshold trust on WinPlatformCount
// platforms wins outright, the player being checked first.
func Evaluate(rules Rules, round int, platforms []game.PlatformStatus) Verdict {
	player, ai := Totals(platforms)
	v := Verdict{PlayerTotal: player, AITotal: ai}

	if rules.MaxRounds > 0 && round >= rules.MaxRounds {
		v.Ended = true
		v.Reason = ReasonMaxRounds
		v.Winner = ByTotals(player, ai)
		return v
	}

	if rules.WinPlatformCount <= 0 {
		return v
	}
	if dominated(platforms, rules.WinTrustThreshold, game.ActorPlayer) >= rules.WinPlatformCount {
		v.Ended, v.Reason, v.Winner = true, ReasonPlayerDominant, WinnerPlayer
		return v
	}
	if dominated(platforms, rules.WinTrustThreshold, game.ActorAI) >= rules.WinPlatformCount {
		v.Ended, v.Reason, v.Winner = true, ReasonAIDominant, WinnerAI
	}
	return v
}

// ByTotals picks the winner from per-actor trust totals.
func ByTotals(player, ai int) Winner {
	switch {
	case player > ai:
		return WinnerPlayer
	case ai > player:
		return WinnerAI
	default:
		return WinnerDraw
	}
}

func dominated(platforms []game.PlatformStatus, threshold int, actor game.Actor) int {
	n := 0
	for _, p := range platforms {
		v := p.PlayerTrust
		if actor == game.ActorAI {
			v = p.AITrust
		}
		if v >= threshold {
			n++
		}
	}
	return n
}
