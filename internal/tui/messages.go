package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/session"
)

// startedMsg reports the result of opening a game.
type startedMsg struct {
	gen      int
	snapshot game.Snapshot
	err      error
}

// submittedMsg reports the result of the player's submission.
type submittedMsg struct {
	gen    int
	result session.Result
	err    error
}

// advancedMsg reports the result of a manually requested opponent turn.
type advancedMsg struct {
	gen    int
	result session.Result
	err    error
}

// polishedMsg carries rewritten draft content.
type polishedMsg struct {
	gen     int
	content string
	err     error
}

// busEventMsg wraps an event published by the session.
type busEventMsg struct {
	event event.Event
}

// waitEventMsg reads the next message forwarded from the event bus.
// It must be re-issued after every busEventMsg.
func waitEventMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// The gen argument of the commands below tags each result with the model's
// game counter, so results of a game the player restarted are dropped.

func startCmd(ctx context.Context, s *session.Session, gen int) tea.Cmd {
	return func() tea.Msg {
		snap, err := s.Start(ctx)
		return startedMsg{gen: gen, snapshot: snap, err: err}
	}
}

func submitCmd(ctx context.Context, s *session.Session, gen int, kind game.ActionKind, d session.Draft) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Submit(ctx, kind, d)
		return submittedMsg{gen: gen, result: res, err: err}
	}
}

func advanceCmd(ctx context.Context, s *session.Session, gen int) tea.Cmd {
	return func() tea.Msg {
		res, err := s.AdvanceRound(ctx)
		return advancedMsg{gen: gen, result: res, err: err}
	}
}

func polishCmd(ctx context.Context, s *session.Session, gen int, content, platform string) tea.Cmd {
	return func() tea.Msg {
		out, err := s.PolishDraft(ctx, content, "", platform)
		return polishedMsg{gen: gen, content: out, err: err}
	}
}
