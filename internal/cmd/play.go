package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a game in the terminal UI",
	Long: `Start a new game against the AI in the interactive terminal UI.

Each round, choose an action, a target platform and tools, write your article
and submit it. The AI answers after the configured advance delay. The game
ends after the last round or when one side dominates enough platforms.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("play needs an interactive terminal; use 'sustainet autoplay' for headless runs")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// stderr belongs to the TUI while it runs
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(config.ConfigDir(), "logs")
	}

	e, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	ctx := cmd.Context()
	e.serveMetrics(ctx)
	e.watchConfig()

	app := tui.New(e.session, cfg.TUI)
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
