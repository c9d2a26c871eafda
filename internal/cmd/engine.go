package cmd

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/logging"
	"github.com/sustainet/sustainet/internal/metrics"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/session"
)

// engine is a session wired to its logger, bus and metrics.
type engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	session  *session.Session
}

// buildEngine creates an engine talking to the configured game server.
func buildEngine(cfg *config.Config) (*engine, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	client := resolver.NewClient(cfg.Resolver, logger)
	e, err := newEngine(cfg, client, client, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return e, nil
}

// newEngine wires a session over res. rw may be nil to disable polishing.
func newEngine(cfg *config.Config, res resolver.Resolver, rw resolver.Rewriter, logger *logging.Logger) (*engine, error) {
	bus := event.NewBus(logger)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.Attach(bus)

	opts := []session.Option{
		session.WithGameConfig(cfg.Game),
		session.WithLogger(logger),
		session.WithMetrics(m),
	}
	if rw != nil {
		opts = append(opts, session.WithRewriter(rw))
	}
	s, err := session.New(session.Config{Resolver: res, Bus: bus}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &engine{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		session:  s,
	}, nil
}

// serveMetrics exposes the session metrics until ctx is done, if enabled.
func (e *engine) serveMetrics(ctx context.Context) {
	if !e.cfg.Metrics.Enabled {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, e.cfg.Metrics.Addr, e.registry, e.logger); err != nil {
			e.logger.Warn("metrics endpoint stopped", "error", err.Error())
		}
	}()
}

// watchConfig logs edits to the config file. Game settings are read when a
// session is built, so edits apply to the next run.
func (e *engine) watchConfig() {
	config.Watch(func(cfg *config.Config, ev fsnotify.Event, err error) {
		if err != nil {
			e.logger.Warn("config file changed but is invalid", "file", ev.Name, "error", err.Error())
			return
		}
		e.logger.Info("config file changed; new values apply to the next game",
			"file", ev.Name,
			"max_rounds", cfg.Game.MaxRounds,
			"auto_advance", cfg.Game.AutoAdvance,
		)
	})
}

// Close stops the session and flushes the log.
func (e *engine) Close() error {
	err := e.session.Close()
	if cerr := e.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(cfg.Dir, cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
