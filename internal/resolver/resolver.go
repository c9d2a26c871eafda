// Package resolver talks to the authoritative remote turn resolver and the
// optional content-rewrite service.
//
// The session engine depends only on the [Resolver] and [Rewriter]
// interfaces. [Client] is the HTTP/JSON realization against the game
// server's /games routes.
package resolver

import (
	"context"

	"github.com/sustainet/sustainet/internal/game"
)

// PlayerTurn is the payload for resolving a player action.
type PlayerTurn struct {
	SessionID string
	Round     int
	Action    game.ActionKind
	Article   game.Article
	ToolsUsed []string
}

// PolishRequest asks the rewrite service to improve draft content.
type PolishRequest struct {
	SessionID   string
	Content     string
	Requirement string
	Platform    string
}

// Resolver produces authoritative snapshots. Every method either returns a
// complete snapshot or an error; implementations report failures as
// *errors.ResolutionError.
type Resolver interface {
	// StartSession begins a new session. The snapshot is round 1 with the
	// opponent as actor.
	StartSession(ctx context.Context) (game.Snapshot, error)

	// ResolvePlayerTurn applies a player action to the session.
	ResolvePlayerTurn(ctx context.Context, turn PlayerTurn) (game.Snapshot, error)

	// ResolveAiTurn plays the opponent's turn for round.
	ResolveAiTurn(ctx context.Context, sessionID string, round int) (game.Snapshot, error)
}

// Rewriter revises draft content. It never affects session state.
type Rewriter interface {
	Polish(ctx context.Context, req PolishRequest) (string, error)
}
