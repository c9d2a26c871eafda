package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/review"
	"github.com/sustainet/sustainet/internal/session"
	"github.com/sustainet/sustainet/internal/util"
)

var autoplayCmd = &cobra.Command{
	Use:   "autoplay",
	Short: "Play a whole game headlessly with a fixed action",
	Long: `Play every round of a game without the terminal UI. Each player turn uses
the same action; the AI's turns are requested as soon as a round resolves.
When the game ends the round history and outcome are printed.

Useful for exercising a game server and for scripted runs.`,
	Args: cobra.NoArgs,
	RunE: runAutoplay,
}

// autoplayOptions describe the player's fixed strategy.
type autoplayOptions struct {
	action   string
	platform string
	title    string
	content  string
	tools    []string
	width    int
}

var autoplayFlags autoplayOptions

func init() {
	autoplayCmd.Flags().StringVar(&autoplayFlags.action, "action", string(game.ActionClarify), "action every round: clarify, agree or ignore")
	autoplayCmd.Flags().StringVar(&autoplayFlags.platform, "platform", "", "target platform (default: the platform of the story being answered)")
	autoplayCmd.Flags().StringVar(&autoplayFlags.title, "title", "", "article title (default: derived from the story)")
	autoplayCmd.Flags().StringVar(&autoplayFlags.content, "content", "", "article content (default: derived from the story)")
	autoplayCmd.Flags().StringSliceVar(&autoplayFlags.tools, "tools", nil, "tools to use every round")
	autoplayCmd.Flags().IntVar(&autoplayFlags.width, "width", 120, "width of the printed review")
	rootCmd.AddCommand(autoplayCmd)
}

func runAutoplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// turns are sequenced here, not by the coordinator
	cfg.Game.AutoAdvance = false

	e, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	e.serveMetrics(ctx)

	_, err = autoplay(ctx, e.session, autoplayFlags, cmd.OutOrStdout())
	return err
}

// autoplay runs a full game on s and prints its progress and review to out.
func autoplay(ctx context.Context, s *session.Session, opts autoplayOptions, out io.Writer) (session.Outcome, error) {
	kind := game.ActionKind(opts.action)
	if !kind.Valid() {
		return session.Outcome{}, fmt.Errorf("invalid action %q: must be one of clarify, agree, ignore", opts.action)
	}

	snap, err := s.Start(ctx)
	if err != nil {
		return session.Outcome{}, fmt.Errorf("failed to start game: %w", err)
	}
	fmt.Fprintf(out, "game %s started: %d platforms, up to %d rounds\n", snap.SessionID, len(snap.PlatformStatus), s.MaxRounds())

	for {
		if _, ended := s.Outcome(); ended {
			break
		}

		res, err := s.Submit(ctx, kind, draftFor(snap, opts))
		if err != nil {
			return session.Outcome{}, fmt.Errorf("round %d: %w", snap.RoundNumber, err)
		}
		printRound(out, res)
		if res.Outcome != nil {
			break
		}

		res, err = s.AdvanceRound(ctx)
		if err != nil {
			return session.Outcome{}, fmt.Errorf("round %d: AI turn: %w", snap.RoundNumber+1, err)
		}
		printRound(out, res)
		snap = res.Snapshot
	}

	outcome, _ := s.Outcome()
	fmt.Fprintln(out)
	fmt.Fprintln(out, review.Render(s, opts.width))
	return outcome, nil
}

// draftFor builds the player's article answering the story in snap.
func draftFor(snap game.Snapshot, opts autoplayOptions) session.Draft {
	story := ""
	target := opts.platform
	if snap.Article != nil {
		story = util.FirstLine(snap.Article.Title)
		if target == "" {
			target = snap.Article.TargetPlatform
		}
	}
	if target == "" {
		if names := snap.PlatformNames(); len(names) > 0 {
			target = names[0]
		}
	}

	d := session.Draft{
		Title:          opts.title,
		Content:        opts.content,
		TargetPlatform: target,
		ToolsUsed:      opts.tools,
	}
	if d.Title == "" {
		d.Title = fmt.Sprintf("Round %d: a closer look", snap.RoundNumber)
	}
	if d.Content == "" {
		d.Content = fmt.Sprintf("About %q: check the original sources before sharing.", story)
	}
	return d
}

func printRound(out io.Writer, res session.Result) {
	e := res.Entry
	action := string(e.Action)
	if action == "" {
		action = "publish"
	}
	fmt.Fprintf(out, "round %d %-6s %-8s %-10s reach %-6d", e.Round, e.Actor, action, e.TargetPlatform, e.ReachCount)
	for _, d := range res.Deltas {
		fmt.Fprintf(out, "  %s %s/%s", d.Platform, util.Signed(d.Player), util.Signed(d.AI))
	}
	fmt.Fprintln(out)
}
