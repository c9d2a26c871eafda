package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "game.max_rounds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// RequiredBaselineTrust is the only accepted value for game.baseline_trust.
const RequiredBaselineTrust = 50

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidThemes returns the list of valid TUI themes
func ValidThemes() []string {
	return []string{"default", "mono"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateResolver()...)
	errors = append(errors, c.validateGame()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateMetrics()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

func (c *Config) validateResolver() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Resolver.BaseURL)
	if c.Resolver.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "resolver.base_url",
			Value:   c.Resolver.BaseURL,
			Message: "must be an absolute http or https URL",
		})
	}

	if c.Resolver.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "resolver.timeout",
			Value:   c.Resolver.Timeout,
			Message: "must be positive",
		})
	}

	if c.Resolver.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "resolver.rate_limit",
			Value:   c.Resolver.RateLimit,
			Message: "must be non-negative (0 disables limiting)",
		})
	}

	if c.Resolver.RateLimit > 0 && c.Resolver.RateBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "resolver.rate_burst",
			Value:   c.Resolver.RateBurst,
			Message: "must be at least 1 when rate limiting is enabled",
		})
	}

	return errors
}

func (c *Config) validateGame() []ValidationError {
	var errors []ValidationError

	const maxRoundsLimit = 50
	if c.Game.MaxRounds < 1 || c.Game.MaxRounds > maxRoundsLimit {
		errors = append(errors, ValidationError{
			Field:   "game.max_rounds",
			Value:   c.Game.MaxRounds,
			Message: fmt.Sprintf("must be between 1 and %d", maxRoundsLimit),
		})
	}

	if c.Game.BaselineTrust != RequiredBaselineTrust {
		errors = append(errors, ValidationError{
			Field:   "game.baseline_trust",
			Value:   c.Game.BaselineTrust,
			Message: fmt.Sprintf("must be %d", RequiredBaselineTrust),
		})
	}

	if c.Game.AdvanceDelay < 0 || c.Game.AdvanceDelay > time.Minute {
		errors = append(errors, ValidationError{
			Field:   "game.advance_delay",
			Value:   c.Game.AdvanceDelay,
			Message: "must be between 0 and 1m",
		})
	}

	if c.Game.SubmissionTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "game.submission_timeout",
			Value:   c.Game.SubmissionTimeout,
			Message: "must be positive",
		})
	}

	if c.Game.WinTrustThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.win_trust_threshold",
			Value:   c.Game.WinTrustThreshold,
			Message: "must be positive",
		})
	}

	if c.Game.WinPlatformCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.win_platform_count",
			Value:   c.Game.WinPlatformCount,
			Message: "must be positive",
		})
	}

	if strings.TrimSpace(c.Game.PlayerName) == "" {
		errors = append(errors, ValidationError{
			Field:   "game.player_name",
			Value:   c.Game.PlayerName,
			Message: "must not be blank",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateMetrics() []ValidationError {
	var errors []ValidationError

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "metrics.addr",
			Value:   c.Metrics.Addr,
			Message: "must be set when metrics are enabled",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	if c.TUI.ReactionLines < 0 || c.TUI.ReactionLines > 100 {
		errors = append(errors, ValidationError{
			Field:   "tui.reaction_lines",
			Value:   c.TUI.ReactionLines,
			Message: "must be between 0 and 100",
		})
	}

	return errors
}
