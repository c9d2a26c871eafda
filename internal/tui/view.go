package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/ledger"
	"github.com/sustainet/sustainet/internal/review"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/tui/styles"
	"github.com/sustainet/sustainet/internal/util"
)

// Layout constants
const (
	FormMinWidth  = 40
	BoardMinWidth = 40
	ChromeHeight  = 6 // header + status line + help bar + borders
)

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderForm(), m.renderBoard())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatus(), m.renderHelp())
}

// layout sizes the form and board for the terminal.
func (m *Model) layout() {
	formWidth, boardWidth := m.columnWidths()
	m.title.Width = formWidth - 4
	m.content.SetWidth(formWidth - 4)
	m.board.Width = boardWidth - 4
	m.board.Height = max(5, m.height-ChromeHeight-2)
}

func (m Model) columnWidths() (form, board int) {
	if m.width <= 0 {
		return FormMinWidth + 10, BoardMinWidth + 30
	}
	form = max(FormMinWidth, m.width*2/5)
	board = max(BoardMinWidth, m.width-form)
	return form, board
}

func (m Model) renderHeader() string {
	parts := []string{styles.Title.Render("Sustainet")}

	snap, ok := m.session.Snapshot()
	if ok {
		parts = append(parts, styles.Text.Render(fmt.Sprintf("Round %d/%d", snap.RoundNumber, m.session.MaxRounds())))
		st := m.session.State()
		parts = append(parts, styles.ActorBadge(st.Holder), styles.Muted.Render(string(st.Phase)))
		player, ai := trust.Totals(snap.PlatformStatus)
		parts = append(parts, styles.Muted.Render(fmt.Sprintf("trust you %d · ai %d", player, ai)))
	}
	if m.busy != "" {
		parts = append(parts, m.spinner.View()+" "+styles.Warning.Render(m.busy))
	}
	return styles.Header.Render(strings.Join(parts, "  "))
}

// renderForm draws the player's draft: action, target, tools, title and
// content.
func (m Model) renderForm() string {
	formWidth, _ := m.columnWidths()
	var sb strings.Builder

	sb.WriteString(m.label(focusAction, "Action"))
	sb.WriteString("\n")
	sb.WriteString(m.renderOptions(actionLabels(m.actions), m.actionIdx))
	sb.WriteString("\n\n")

	enabled := m.action().RequiresDraft()
	if !enabled {
		sb.WriteString(styles.Muted.Render("Ignoring the story resubmits it unchanged."))
		return m.panel(focusAction, formWidth).Render(sb.String())
	}

	sb.WriteString(m.label(focusPlatform, "Target platform"))
	sb.WriteString("\n")
	names := m.platforms()
	sb.WriteString(m.renderOptions(names, min(m.platformIdx, max(0, len(names)-1))))
	sb.WriteString("\n\n")

	sb.WriteString(m.label(focusTools, "Tools"))
	sb.WriteString("\n")
	sb.WriteString(m.renderTools(formWidth - 4))
	sb.WriteString("\n\n")

	sb.WriteString(m.label(focusTitle, "Title"))
	sb.WriteString("\n")
	sb.WriteString(m.title.View())
	sb.WriteString("\n\n")

	sb.WriteString(m.label(focusContent, "Content"))
	sb.WriteString("\n")
	sb.WriteString(m.content.View())

	return m.panel(m.focus, formWidth).Render(sb.String())
}

func (m Model) panel(f focusArea, width int) lipgloss.Style {
	if m.focus == f {
		return styles.PanelActive.Width(width - 2)
	}
	return styles.Panel.Width(width - 2)
}

// label renders a form field name, marked when focused and followed by its
// validation message, if any.
func (m Model) label(f focusArea, name string) string {
	text := styles.Muted.Render(name)
	if m.focus == f {
		text = styles.Primary.Render("› " + name)
	}
	if msg, ok := m.fieldErrs[f.String()]; ok {
		text += " " + styles.ErrorMsg.Render(msg)
	}
	return text
}

func (m Model) renderOptions(items []string, selected int) string {
	if len(items) == 0 {
		return styles.Muted.Render("none")
	}
	rendered := make([]string, 0, len(items))
	for i, item := range items {
		if i == selected {
			rendered = append(rendered, styles.OptionSelected.Render(item))
			continue
		}
		rendered = append(rendered, styles.Option.Render(item))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTools(width int) string {
	tools := m.tools()
	if len(tools) == 0 {
		return styles.Muted.Render("No tools available this round.")
	}
	lines := make([]string, 0, len(tools))
	for i, t := range tools {
		box := "[ ]"
		if m.toolsSelected[t.Name] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", box, t.Name, styles.Muted.Render(t.Description))
		line = util.Ellipsize(line, width)
		if m.focus == focusTools && i == m.toolCursor {
			line = styles.Primary.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBoard() string {
	_, boardWidth := m.columnWidths()
	title := "Newsfeed"
	if m.showReview {
		title = "Review"
	}
	return styles.Panel.Width(boardWidth - 2).Render(
		styles.PanelTitle.Render(title) + "\n" + m.board.View(),
	)
}

// refreshBoard re-renders the board content from the session.
func (m *Model) refreshBoard() {
	if m.showReview {
		m.board.SetContent(review.Render(m.session, m.board.Width))
		return
	}
	m.board.SetContent(m.feed())
	m.board.GotoTop()
}

// feed renders the latest story, its reactions and the trust standings.
func (m Model) feed() string {
	snap, ok := m.session.Snapshot()
	if !ok {
		return styles.Muted.Render("Waiting for the first story...")
	}
	width := max(20, m.board.Width)

	var sb strings.Builder
	if a := snap.Article; a != nil {
		sb.WriteString(styles.ActorBadge(snap.Actor) + " " + styles.Title.Render(util.FirstLine(a.Title)))
		sb.WriteString("\n")
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("on %s · reach %d · %s", a.TargetPlatform, snap.ReachCount, snap.Effectiveness)))
		sb.WriteString("\n\n")
		sb.WriteString(util.Wrap(a.Content, width))
		sb.WriteString("\n")
	}

	if len(snap.SimulatedReactions) > 0 {
		sb.WriteString("\n")
		sb.WriteString(styles.PanelTitle.Render("Reactions"))
		sb.WriteString("\n")
		for i, r := range snap.SimulatedReactions {
			if i >= m.opts.ReactionLines {
				sb.WriteString(styles.Muted.Render(fmt.Sprintf("  … %d more", len(snap.SimulatedReactions)-i)))
				sb.WriteString("\n")
				break
			}
			sb.WriteString("  " + util.Ellipsize(util.FirstLine(r), width-2))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(styles.PanelTitle.Render("Trust"))
	sb.WriteString("\n")
	sb.WriteString(m.standings(snap))
	return sb.String()
}

// standings renders per-platform trust with the change of the last round.
func (m Model) standings(snap game.Snapshot) string {
	deltas := lastDeltas(m.session.Deltas())
	lines := make([]string, 0, len(snap.PlatformStatus))
	for _, p := range snap.PlatformStatus {
		d, _ := trust.Find(deltas, p.Name)
		lines = append(lines, fmt.Sprintf("  %-10s you %s %3d %s   ai %s %3d %s",
			util.Ellipsize(p.Name, 10),
			util.Bar(p.PlayerTrust, 2*trust.Baseline, 10), p.PlayerTrust, change(d.Player),
			util.Bar(p.AITrust, 2*trust.Baseline, 10), p.AITrust, change(d.AI),
		))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styles.ErrorMsg.Render(m.status)
	}
	return styles.SuccessMsg.Render(m.status)
}

func (m Model) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"tab", "next field"},
		{"←/→", "choose"},
		{"space", "toggle tool"},
		{"ctrl+s", "submit"},
		{"ctrl+p", "polish"},
		{"ctrl+n", "AI turn"},
		{"ctrl+t", "review"},
		{"ctrl+r", "new game"},
		{"ctrl+c", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, styles.HelpKey.Render(k.key)+" "+styles.HelpDesc.Render(k.desc))
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}

func actionLabels(kinds []game.ActionKind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func lastDeltas(rounds []ledger.RoundDelta) []trust.Delta {
	if len(rounds) == 0 {
		return nil
	}
	return rounds[len(rounds)-1].Deltas
}

func change(n int) string {
	return styles.ChangeStyle(n).Render(trust.Trend(n) + util.Signed(n))
}
