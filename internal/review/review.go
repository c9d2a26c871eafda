// Package review renders a session's round ledger, per-platform trust
// trajectories and final outcome as terminal text.
package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/ledger"
	"github.com/sustainet/sustainet/internal/session"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/tui/styles"
	"github.com/sustainet/sustainet/internal/util"
)

// Source is the read side of a session the review is built from.
// *session.Session satisfies it.
type Source interface {
	Entries() []ledger.Entry
	Trajectory(platform string) []ledger.Point
	Outcome() (session.Outcome, bool)
}

const (
	minTitleWidth = 12
	barWidth      = 10
)

// Render returns the full review: the ledger table, one trajectory block per
// platform and, once the session has ended, the outcome.
func Render(src Source, width int) string {
	entries := src.Entries()
	if len(entries) == 0 {
		return styles.Muted.Render("No rounds played yet.")
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Round history"))
	sb.WriteString("\n")
	sb.WriteString(Table(entries, width))
	sb.WriteString("\n\n")

	for _, name := range Platforms(entries) {
		sb.WriteString(Trajectory(name, src.Trajectory(name)))
		sb.WriteString("\n")
	}

	if out, ok := src.Outcome(); ok {
		sb.WriteString("\n")
		sb.WriteString(Outcome(out))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Platforms returns the platform names in the order the first entry lists
// them, followed by any that appear later.
func Platforms(entries []ledger.Entry) []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, p := range e.Platforms {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}
	return names
}

// Table renders one row per ledger entry. Each platform column shows the
// player's and the opponent's trust with the change since the previous row.
func Table(entries []ledger.Entry, width int) string {
	platforms := Platforms(entries)
	headers := append([]string{"Round", "Side", "Action", "Title", "Target", "Reach"}, platforms...)

	titleWidth := minTitleWidth
	if width > 0 {
		// leave room for the fixed columns and roughly 16 cells per platform
		titleWidth = max(minTitleWidth, width-48-16*len(platforms))
	}

	rows := make([][]string, 0, len(entries))
	var prev []game.PlatformStatus
	for _, e := range entries {
		deltas := trust.ComputeDelta(prev, e.Platforms)
		prev = e.Platforms

		row := []string{
			strconv.Itoa(e.Round),
			sideLabel(e.Actor),
			actionLabel(e.Action),
			util.Ellipsize(util.FirstLine(e.Title), titleWidth),
			e.TargetPlatform,
			strconv.Itoa(e.ReachCount),
		}
		for _, name := range platforms {
			row = append(row, platformCell(e.Platforms, deltas, name))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.BorderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeader
			}
			if col == 1 && row >= 0 && row < len(entries) {
				return styles.TableCell.Foreground(styles.ActorColor(entries[row].Actor))
			}
			return styles.TableCell
		})
	return t.String()
}

// Trajectory renders a platform's trust after every round as a pair of bars.
func Trajectory(platform string, points []ledger.Point) string {
	var sb strings.Builder
	sb.WriteString(styles.PanelTitle.Render(platform))
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("\n  R%-2d %-6s you %s %3d %s   ai %s %3d %s",
			p.Round,
			sideLabel(p.Actor),
			util.Bar(p.PlayerTrust, 2*trust.Baseline, barWidth), p.PlayerTrust, change(p.PlayerDelta),
			util.Bar(p.AITrust, 2*trust.Baseline, barWidth), p.AITrust, change(p.AIDelta),
		))
	}
	return sb.String()
}

// Outcome renders the final standing.
func Outcome(o session.Outcome) string {
	var headline string
	switch {
	case o.Reason == trust.ReasonInconsistent:
		headline = styles.ErrorMsg.Render(fmt.Sprintf("Game stopped in round %d: the game state was incomplete", o.Round))
	case o.Winner == trust.WinnerPlayer:
		headline = styles.SuccessMsg.Render(fmt.Sprintf("You win after round %d", o.Round))
	case o.Winner == trust.WinnerAI:
		headline = styles.ErrorMsg.Render(fmt.Sprintf("The AI wins after round %d", o.Round))
	default:
		headline = styles.WarningMsg.Render(fmt.Sprintf("Draw after round %d", o.Round))
	}

	lines := []string{
		headline,
		fmt.Sprintf("Reason: %s", ReasonText(o)),
		fmt.Sprintf("Trust totals: you %d, AI %d", o.PlayerTotal, o.AITotal),
	}
	return strings.Join(lines, "\n")
}

// ReasonText describes why the game ended.
func ReasonText(o session.Outcome) string {
	switch o.Reason {
	case trust.ReasonMaxRounds:
		return "the last round was played"
	case trust.ReasonPlayerDominant:
		return "you dominate enough platforms"
	case trust.ReasonAIDominant:
		return "the AI dominates enough platforms"
	case trust.ReasonRemote:
		if o.RemoteReason != "" {
			return "reported by the game server: " + o.RemoteReason
		}
		return "reported by the game server"
	case trust.ReasonInconsistent:
		return "state inconsistency"
	default:
		return string(o.Reason)
	}
}

func sideLabel(a game.Actor) string {
	switch a {
	case game.ActorPlayer:
		return "you"
	case game.ActorAI:
		return "ai"
	default:
		return string(a)
	}
}

func actionLabel(k game.ActionKind) string {
	if k == "" {
		return "publish"
	}
	return string(k)
}

func platformCell(platforms []game.PlatformStatus, deltas []trust.Delta, name string) string {
	var st game.PlatformStatus
	found := false
	for _, p := range platforms {
		if p.Name == name {
			st, found = p, true
			break
		}
	}
	if !found {
		return "-"
	}
	d, _ := trust.Find(deltas, name)
	return fmt.Sprintf("%d %s / %d %s", st.PlayerTrust, change(d.Player), st.AITrust, change(d.AI))
}

// change renders a trust change as a trend arrow and signed amount.
func change(n int) string {
	return styles.ChangeStyle(n).Render(trust.Trend(n) + util.Signed(n))
}
