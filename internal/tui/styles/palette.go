package styles

import "github.com/charmbracelet/lipgloss"

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault ThemeName = "default" // Violet/green dark theme
	ThemeMono    ThemeName = "mono"    // Grayscale, for low-color terminals
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{string(ThemeDefault), string(ThemeMono)}
}

// Palette is the set of colors a theme assigns.
type Palette struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Border  lipgloss.Color

	// Actor colors tint everything that belongs to one side
	Player lipgloss.Color
	AI     lipgloss.Color
}

// DefaultPalette returns the default dark theme.
func DefaultPalette() Palette {
	return Palette{
		Primary: lipgloss.Color("#A78BFA"), // violet-400
		Success: lipgloss.Color("#10B981"),
		Warning: lipgloss.Color("#F59E0B"),
		Error:   lipgloss.Color("#F87171"), // red-400
		Muted:   lipgloss.Color("#9CA3AF"),
		Text:    lipgloss.Color("#F9FAFB"),
		Border:  lipgloss.Color("#6B7280"),
		Player:  lipgloss.Color("#60A5FA"), // blue-400
		AI:      lipgloss.Color("#FB923C"), // orange-400
	}
}

// MonoPalette returns a grayscale theme.
func MonoPalette() Palette {
	return Palette{
		Primary: lipgloss.Color("#FFFFFF"),
		Success: lipgloss.Color("#E5E7EB"),
		Warning: lipgloss.Color("#D1D5DB"),
		Error:   lipgloss.Color("#FFFFFF"),
		Muted:   lipgloss.Color("#9CA3AF"),
		Text:    lipgloss.Color("#F9FAFB"),
		Border:  lipgloss.Color("#6B7280"),
		Player:  lipgloss.Color("#F3F4F6"),
		AI:      lipgloss.Color("#D1D5DB"),
	}
}

// GetPalette returns the palette for name, falling back to the default.
func GetPalette(name ThemeName) Palette {
	switch name {
	case ThemeMono:
		return MonoPalette()
	default:
		return DefaultPalette()
	}
}
