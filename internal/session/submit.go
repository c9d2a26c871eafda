package session

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/ledger"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/trust"
)

// Draft is the player's pending article.
type Draft struct {
	Title          string   `json:"title" validate:"required"`
	Content        string   `json:"content" validate:"required"`
	TargetPlatform string   `json:"target_platform" validate:"required"`
	ToolsUsed      []string `json:"tools_used" validate:"dive,required"`
}

// normalized trims the draft's text fields.
func (d Draft) normalized() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	d.TargetPlatform = strings.TrimSpace(d.TargetPlatform)
	tools := make([]string, 0, len(d.ToolsUsed))
	for _, t := range d.ToolsUsed {
		tools = append(tools, strings.TrimSpace(t))
	}
	d.ToolsUsed = tools
	return d
}

var draftValidate = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateDraft checks a draft against the current snapshot. Callers hold s.mu.
func validateDraft(snap game.Snapshot, kind game.ActionKind, d Draft) error {
	verr := errors.NewValidationError("draft rejected")
	if !kind.Valid() {
		return verr.WithField("action", string(kind), "must be one of clarify, agree, ignore")
	}
	if !kind.RequiresDraft() {
		return nil
	}

	if err := draftValidate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return verr.WithCause(err)
		}
		for _, fe := range fieldErrs {
			field := fe.Field()
			if strings.HasPrefix(field, "tools_used") {
				field = "tools_used"
			}
			verr = verr.WithField(field, fe.Value(), "is required")
		}
	}

	if d.TargetPlatform != "" && !snap.HasPlatform(d.TargetPlatform) {
		verr = verr.WithField("target_platform", d.TargetPlatform, "is not a platform of this session")
	}
	for _, name := range d.ToolsUsed {
		if name == "" {
			continue
		}
		tool, ok := snap.Tool(name)
		switch {
		case !ok:
			verr = verr.WithField("tools_used", name, "is not a known tool")
		case !tool.AvailableIn(snap.RoundNumber, game.ActorPlayer):
			verr = verr.WithField("tools_used", name,
				fmt.Sprintf("is not available to the player in round %d", snap.RoundNumber))
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Submit plays the player's turn.
//
// For clarify and agree the draft is validated first; a rejected draft
// returns a *errors.ValidationError and nothing is sent. Ignore resubmits the
// current article unchanged and drops any tools.
//
// On success the delta, ledger entry and new snapshot are committed together
// and the turn moves to resolved. On a resolver failure the turn returns to
// the player and nothing is committed. When the round ends the game, the
// returned Result carries the Outcome; otherwise the opponent's turn is
// scheduled if auto-advance is enabled.
func (s *Session) Submit(ctx context.Context, kind game.ActionKind, draft Draft) (Result, error) {
	s.mu.Lock()
	if err := s.gateLocked(game.ActorPlayer); err != nil {
		s.mu.Unlock()
		return Result{}, s.fail(game.ActorPlayer, err)
	}
	current := s.snapshot.Clone()

	if missing := current.Missing(); len(missing) > 0 {
		err := errors.NewStateInconsistencyError(current.SessionID, current.RoundNumber, missing...)
		s.endLocked(trust.Verdict{Ended: true, Reason: trust.ReasonInconsistent}, "", "snapshot inconsistent before submit")
		s.unlockAndFlush()
		return Result{}, s.fail(game.ActorPlayer, err)
	}

	draft = draft.normalized()
	if err := validateDraft(current, kind, draft); err != nil {
		s.mu.Unlock()
		return Result{}, s.fail(game.ActorPlayer, err)
	}

	turnReq := resolver.PlayerTurn{
		SessionID: current.SessionID,
		Round:     current.RoundNumber,
		Action:    kind,
	}
	if kind.RequiresDraft() {
		turnReq.Article = game.Article{
			Title:          draft.Title,
			Content:        draft.Content,
			Author:         s.cfg.playerName,
			PublishedDate:  s.cfg.now().UTC().Format(time.RFC3339),
			TargetPlatform: draft.TargetPlatform,
		}
		turnReq.ToolsUsed = append([]string(nil), draft.ToolsUsed...)
	} else {
		turnReq.Article = *current.Article
	}

	if err := s.machine.BeginAction(game.ActorPlayer); err != nil {
		s.unlockAndFlush()
		return Result{}, s.fail(game.ActorPlayer, err)
	}
	gen := s.gen
	s.unlockAndFlush()

	log := s.logger.WithSession(current.SessionID).WithRound(current.RoundNumber).WithActor(string(game.ActorPlayer))
	log.Info("submitting turn", "action", string(kind), "target_platform", turnReq.Article.TargetPlatform, "tools", len(turnReq.ToolsUsed))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.submissionTimeout)
	defer cancel()
	began := s.cfg.now()
	next, err := s.resolver.ResolvePlayerTurn(callCtx, turnReq)
	s.observe(resolver.OpPlayerTurn, began, err)
	if err != nil {
		err = resolutionError(callCtx, resolver.OpPlayerTurn, err)
	}

	res, commitErr := s.commit(gen, game.ActorPlayer, kind, current, next, err)
	if commitErr != nil {
		return Result{}, s.fail(game.ActorPlayer, commitErr)
	}
	return res, nil
}

// commit applies a returned snapshot, or reverts the turn when callErr is
// set. It also decides what happens next: the game ends, the opponent's turn
// is scheduled, or control passes back to the player.
func (s *Session) commit(gen uint64, actor game.Actor, kind game.ActionKind, prev, next game.Snapshot, callErr error) (Result, error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return Result{}, errors.Wrap(errors.ErrSessionEnded, "session was reset during submission")
	}

	if callErr != nil {
		_ = s.machine.Revert("resolution failed")
		s.unlockAndFlush()
		return Result{}, callErr
	}

	if missing := next.Missing(); len(missing) > 0 {
		err := errors.NewStateInconsistencyError(next.SessionID, next.RoundNumber, missing...)
		s.endLocked(trust.Verdict{Ended: true, Reason: trust.ReasonInconsistent}, "", "resolver returned an inconsistent snapshot")
		s.unlockAndFlush()
		return Result{}, err
	}

	deltas := trust.ComputeDelta(prev.PlatformStatus, next.PlatformStatus)
	entry := ledger.NewEntry(next, kind, s.cfg.now())
	s.ledger.Append(entry)
	committed := next.Clone()
	s.snapshot = &committed
	_ = s.machine.Resolve()
	s.outbox = append(s.outbox, event.NewRoundResolvedEvent(next.Clone(), kind, deltas))

	s.logger.WithSession(next.SessionID).WithRound(next.RoundNumber).WithActor(string(actor)).Info("turn resolved",
		"action", string(kind),
		"effectiveness", string(next.Effectiveness),
		"reach", next.ReachCount,
	)

	res := Result{Snapshot: next.Clone(), Deltas: deltas, Entry: entry}
	res.Outcome = s.afterResolveLocked(actor, next)
	s.unlockAndFlush()
	return res, nil
}

// PolishDraft asks the rewrite service to improve content for platform. An
// empty requirement uses DefaultPolishStyle. It never changes session state.
func (s *Session) PolishDraft(ctx context.Context, content, requirement, platform string) (string, error) {
	if s.cfg.rewriter == nil {
		return "", errors.ErrRewriteUnavailable
	}

	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return "", errors.ErrNoSession
	}
	if s.machine.Phase().IsTerminal() {
		s.mu.Unlock()
		return "", errors.ErrSessionEnded
	}
	snap := s.snapshot.Clone()
	s.mu.Unlock()

	content = strings.TrimSpace(content)
	platform = strings.TrimSpace(platform)
	verr := errors.NewValidationError("polish request rejected")
	if content == "" {
		verr = verr.WithField("content", content, "is required")
	}
	switch {
	case platform == "":
		verr = verr.WithField("target_platform", platform, "is required")
	case !snap.HasPlatform(platform):
		verr = verr.WithField("target_platform", platform, "is not a platform of this session")
	}
	if len(verr.Fields) > 0 {
		return "", verr
	}
	if strings.TrimSpace(requirement) == "" {
		requirement = DefaultPolishStyle
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.submissionTimeout)
	defer cancel()
	began := s.cfg.now()
	polished, err := s.cfg.rewriter.Polish(callCtx, resolver.PolishRequest{
		SessionID:   snap.SessionID,
		Content:     content,
		Requirement: requirement,
		Platform:    platform,
	})
	s.observe(resolver.OpPolish, began, err)
	if err != nil {
		err = resolutionError(callCtx, resolver.OpPolish, err)
		s.logger.WithSession(snap.SessionID).Warn("polish failed", "error", err.Error())
		return "", err
	}

	s.bus.Publish(event.NewDraftPolishedEvent(snap.SessionID, platform, polished))
	return polished, nil
}
