package session

import (
	"time"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/logging"
	"github.com/sustainet/sustainet/internal/metrics"
	"github.com/sustainet/sustainet/internal/resolver"
	"github.com/sustainet/sustainet/internal/trust"
)

// DefaultPolishStyle is sent to the rewrite service when the caller gives
// no style requirement.
const DefaultPolishStyle = "make it more engaging, readable and persuasive"

// sessionConfig holds optional configuration for a Session.
type sessionConfig struct {
	rules             trust.Rules
	autoAdvance       bool
	advanceDelay      time.Duration
	submissionTimeout time.Duration
	playerName        string
	rewriter          resolver.Rewriter
	logger            *logging.Logger
	metrics           *metrics.Metrics
	now               func() time.Time
}

func defaultSessionConfig() sessionConfig {
	game := config.Default().Game
	return sessionConfig{
		rules: trust.Rules{
			MaxRounds:         game.MaxRounds,
			WinTrustThreshold: game.WinTrustThreshold,
			WinPlatformCount:  game.WinPlatformCount,
		},
		autoAdvance:       game.AutoAdvance,
		advanceDelay:      game.AdvanceDelay,
		submissionTimeout: game.SubmissionTimeout,
		playerName:        game.PlayerName,
		now:               time.Now,
	}
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithGameConfig applies every setting of the game configuration section.
func WithGameConfig(cfg config.GameConfig) Option {
	return func(c *sessionConfig) {
		c.rules = trust.Rules{
			MaxRounds:         cfg.MaxRounds,
			WinTrustThreshold: cfg.WinTrustThreshold,
			WinPlatformCount:  cfg.WinPlatformCount,
		}
		c.autoAdvance = cfg.AutoAdvance
		c.advanceDelay = cfg.AdvanceDelay
		if cfg.SubmissionTimeout > 0 {
			c.submissionTimeout = cfg.SubmissionTimeout
		}
		if cfg.PlayerName != "" {
			c.playerName = cfg.PlayerName
		}
	}
}

// WithRules sets the end-of-game rules.
func WithRules(r trust.Rules) Option {
	return func(c *sessionConfig) { c.rules = r }
}

// WithAutoAdvance enables or disables scheduling the opponent's turn after
// a player round resolves. When disabled, callers use AdvanceRound.
func WithAutoAdvance(enabled bool) Option {
	return func(c *sessionConfig) { c.autoAdvance = enabled }
}

// WithAdvanceDelay sets how long the coordinator waits before the
// opponent's turn.
func WithAdvanceDelay(d time.Duration) Option {
	return func(c *sessionConfig) { c.advanceDelay = d }
}

// WithSubmissionTimeout bounds every remote call.
func WithSubmissionTimeout(d time.Duration) Option {
	return func(c *sessionConfig) { c.submissionTimeout = d }
}

// WithPlayerName sets the author recorded on player articles.
func WithPlayerName(name string) Option {
	return func(c *sessionConfig) { c.playerName = name }
}

// WithRewriter enables PolishDraft.
func WithRewriter(r resolver.Rewriter) Option {
	return func(c *sessionConfig) { c.rewriter = r }
}

// WithLogger sets the session logger. If nil, logging is disabled.
func WithLogger(l *logging.Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithMetrics records resolver latency into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *sessionConfig) { c.metrics = m }
}

// WithClock replaces time.Now for published dates and ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) { c.now = now }
}
