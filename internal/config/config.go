package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the complete sustainet configuration
type Config struct {
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Game     GameConfig     `mapstructure:"game" yaml:"game"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	TUI      TUIConfig      `mapstructure:"tui" yaml:"tui"`
}

// ResolverConfig controls how the remote turn resolver is reached
type ResolverConfig struct {
	// BaseURL is the API root; routes such as /games/start are appended to it
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds a single HTTP exchange
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RateLimit is the sustained number of requests per second (0 = unlimited)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	// RateBurst is the number of requests allowed in a burst
	RateBurst int `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// GameConfig controls round sequencing and end-of-game rules
type GameConfig struct {
	// MaxRounds is the last round that may be played
	MaxRounds int `mapstructure:"max_rounds" yaml:"max_rounds"`
	// BaselineTrust is the trust value assumed for a platform with no prior
	// snapshot. Only 50 is accepted.
	BaselineTrust int `mapstructure:"baseline_trust" yaml:"baseline_trust"`
	// AutoAdvance schedules the opponent's turn after a player round resolves
	AutoAdvance bool `mapstructure:"auto_advance" yaml:"auto_advance"`
	// AdvanceDelay is how long a resolved player round stays on screen
	// before the opponent's turn is requested
	AdvanceDelay time.Duration `mapstructure:"advance_delay" yaml:"advance_delay"`
	// SubmissionTimeout bounds every remote resolution call
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout" yaml:"submission_timeout"`
	// WinTrustThreshold is the trust an actor must reach on a platform to
	// count it as dominated
	WinTrustThreshold int `mapstructure:"win_trust_threshold" yaml:"win_trust_threshold"`
	// WinPlatformCount is the number of dominated platforms that ends the game
	WinPlatformCount int `mapstructure:"win_platform_count" yaml:"win_platform_count"`
	// PlayerName is used as the article author on player turns
	PlayerName string `mapstructure:"player_name" yaml:"player_name"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level to record
	// Options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory for session.log; empty writes to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Enabled exposes /metrics while a session runs
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Addr is the listen address for the metrics server
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// Theme is the color theme for the TUI (default: "default")
	// Options: "default", "mono"
	Theme string `mapstructure:"theme" yaml:"theme"`
	// ReactionLines limits how many simulated reactions are shown per round
	ReactionLines int `mapstructure:"reaction_lines" yaml:"reaction_lines"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			BaseURL:   "http://localhost:8000/api",
			Timeout:   2 * time.Minute,
			RateLimit: 2,
			RateBurst: 4,
		},
		Game: GameConfig{
			MaxRounds:         5,
			BaselineTrust:     50,
			AutoAdvance:       true,
			AdvanceDelay:      2 * time.Second,
			SubmissionTimeout: 3 * time.Minute,
			WinTrustThreshold: 100,
			WinPlatformCount:  3,
			PlayerName:        "player",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
		},
		TUI: TUIConfig{
			Theme:         "default",
			ReactionLines: 8,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Resolver defaults
	viper.SetDefault("resolver.base_url", defaults.Resolver.BaseURL)
	viper.SetDefault("resolver.timeout", defaults.Resolver.Timeout)
	viper.SetDefault("resolver.rate_limit", defaults.Resolver.RateLimit)
	viper.SetDefault("resolver.rate_burst", defaults.Resolver.RateBurst)

	// Game defaults
	viper.SetDefault("game.max_rounds", defaults.Game.MaxRounds)
	viper.SetDefault("game.baseline_trust", defaults.Game.BaselineTrust)
	viper.SetDefault("game.auto_advance", defaults.Game.AutoAdvance)
	viper.SetDefault("game.advance_delay", defaults.Game.AdvanceDelay)
	viper.SetDefault("game.submission_timeout", defaults.Game.SubmissionTimeout)
	viper.SetDefault("game.win_trust_threshold", defaults.Game.WinTrustThreshold)
	viper.SetDefault("game.win_platform_count", defaults.Game.WinPlatformCount)
	viper.SetDefault("game.player_name", defaults.Game.PlayerName)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.reaction_lines", defaults.TUI.ReactionLines)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Watch starts watching the loaded config file and calls onChange with the
// re-read configuration after every write. Invalid edits are reported
// through onChange's error argument and leave the previous values in use.
// It is a no-op when no config file was read.
func Watch(onChange func(cfg *Config, ev fsnotify.Event, err error)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		onChange(cfg, ev, err)
	})
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sustainet")
	}
	// Fall back to ~/.config/sustainet
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sustainet"
	}
	return filepath.Join(home, ".config", "sustainet")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
