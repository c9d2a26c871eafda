// Package tui is the interactive terminal front end of a game session.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/session"
	"github.com/sustainet/sustainet/internal/tui/styles"
)

// eventBuffer is how many session events may queue before publishing blocks.
const eventBuffer = 256

// App is the main TUI application
type App struct {
	session *session.Session
	cfg     config.TUIConfig
	program *tea.Program
}

// New creates a new TUI application for s.
func New(s *session.Session, cfg config.TUIConfig) *App {
	return &App{session: s, cfg: cfg}
}

// Run starts the TUI application and blocks until the player quits or ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	styles.Apply(styles.ThemeName(a.cfg.Theme))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := Forward(ctx, a.session.Bus())
	defer unsubscribe()

	model := NewModel(ctx, a.session, events, Options{ReactionLines: a.cfg.ReactionLines})
	a.program = tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			a.program.Send(tea.Quit())
		case <-ctx.Done():
		}
	}()

	_, err := a.program.Run()
	if ctx.Err() != nil && err != nil {
		// cancellation is a normal way to leave the program
		return nil
	}
	return err
}

// Forward subscribes to every event on bus and delivers each one as a
// busEventMsg on the returned channel. Publishing blocks while the channel
// is full, until ctx is done. The returned function removes the
// subscription.
func Forward(ctx context.Context, bus *event.Bus) (<-chan tea.Msg, func()) {
	ch := make(chan tea.Msg, eventBuffer)
	id := bus.SubscribeAll(func(e event.Event) {
		select {
		case ch <- busEventMsg{event: e}:
		case <-ctx.Done():
		}
	})
	return ch, func() { bus.Unsubscribe(id) }
}
