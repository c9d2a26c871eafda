package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sustainet/sustainet/internal/game"
)

var (
	// Colors of the active theme
	PrimaryColor lipgloss.Color
	SuccessColor lipgloss.Color
	WarningColor lipgloss.Color
	ErrorColor   lipgloss.Color
	MutedColor   lipgloss.Color
	TextColor    lipgloss.Color
	BorderColor  lipgloss.Color
	PlayerColor  lipgloss.Color
	AIColor      lipgloss.Color

	// Convenience styles for colors
	Primary lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Text    lipgloss.Style

	// Base styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Panels
	Panel       lipgloss.Style
	PanelActive lipgloss.Style
	PanelTitle  lipgloss.Style

	// Header bar and its badges
	Header      lipgloss.Style
	PlayerBadge lipgloss.Style
	AIBadge     lipgloss.Style

	// Selector rows (action, platform, tools)
	Option         lipgloss.Style
	OptionSelected lipgloss.Style

	// Messages
	ErrorMsg   lipgloss.Style
	SuccessMsg lipgloss.Style
	WarningMsg lipgloss.Style

	// Trust changes
	Gain lipgloss.Style
	Loss lipgloss.Style

	// Help bar
	HelpBar  lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style

	// Table cells of the ledger review
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style

	active = ThemeDefault
)

func init() {
	Apply(ThemeDefault)
}

// Apply switches every package style to the named theme. Unknown names use
// the default theme. It is not safe to call while a program is rendering.
func Apply(name ThemeName) {
	p := GetPalette(name)
	active = name
	if name != ThemeMono {
		active = ThemeDefault
	}

	PrimaryColor = p.Primary
	SuccessColor = p.Success
	WarningColor = p.Warning
	ErrorColor = p.Error
	MutedColor = p.Muted
	TextColor = p.Text
	BorderColor = p.Border
	PlayerColor = p.Player
	AIColor = p.AI

	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Success = lipgloss.NewStyle().Foreground(SuccessColor)
	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Error = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted = lipgloss.NewStyle().Foreground(MutedColor)
	Text = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	PanelActive = Panel.
		BorderForeground(PrimaryColor)

	PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextColor)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextColor).
		Padding(0, 1)

	PlayerBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#111827")).
		Background(PlayerColor).
		Padding(0, 1)

	AIBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#111827")).
		Background(AIColor).
		Padding(0, 1)

	Option = lipgloss.NewStyle().
		Foreground(TextColor).
		Padding(0, 1)

	OptionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#111827")).
		Background(PrimaryColor).
		Padding(0, 1)

	ErrorMsg = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	SuccessMsg = lipgloss.NewStyle().
		Foreground(SuccessColor).
		Bold(true)

	WarningMsg = lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)

	Gain = lipgloss.NewStyle().Foreground(SuccessColor)
	Loss = lipgloss.NewStyle().Foreground(ErrorColor)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
		Foreground(MutedColor)

	TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		Padding(0, 1)

	TableCell = lipgloss.NewStyle().
		Padding(0, 1)
}

// Active returns the theme currently applied.
func Active() ThemeName {
	return active
}

// ActorColor returns the color for the given side.
func ActorColor(actor game.Actor) lipgloss.Color {
	switch actor {
	case game.ActorPlayer:
		return PlayerColor
	case game.ActorAI:
		return AIColor
	default:
		return MutedColor
	}
}

// ActorBadge renders a short label for the given side.
func ActorBadge(actor game.Actor) string {
	switch actor {
	case game.ActorPlayer:
		return PlayerBadge.Render("YOU")
	case game.ActorAI:
		return AIBadge.Render("AI")
	default:
		return Muted.Render("-")
	}
}

// ChangeStyle returns the style for a trust change.
func ChangeStyle(change int) lipgloss.Style {
	switch {
	case change > 0:
		return Gain
	case change < 0:
		return Loss
	default:
		return Muted
	}
}
