package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/sustainet/sustainet/internal/game"
)

func TestApply(t *testing.T) {
	t.Cleanup(func() { Apply(ThemeDefault) })

	tests := []struct {
		name    ThemeName
		want    ThemeName
		primary lipgloss.Color
	}{
		{ThemeDefault, ThemeDefault, "#A78BFA"},
		{ThemeMono, ThemeMono, "#FFFFFF"},
		{"unknown", ThemeDefault, "#A78BFA"},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			Apply(tt.name)
			if got := Active(); got != tt.want {
				t.Errorf("Active() = %q, want %q", got, tt.want)
			}
			if PrimaryColor != tt.primary {
				t.Errorf("PrimaryColor = %q, want %q", PrimaryColor, tt.primary)
			}
		})
	}
}

func TestBuiltinThemes(t *testing.T) {
	got := BuiltinThemes()
	if len(got) != 2 || got[0] != "default" || got[1] != "mono" {
		t.Errorf("BuiltinThemes() = %v", got)
	}
}

func TestActorColor(t *testing.T) {
	Apply(ThemeDefault)

	tests := []struct {
		actor game.Actor
		want  lipgloss.Color
	}{
		{game.ActorPlayer, "#60A5FA"},
		{game.ActorAI, "#FB923C"},
		{"", "#9CA3AF"},
	}

	for _, tt := range tests {
		t.Run(string(tt.actor), func(t *testing.T) {
			if got := ActorColor(tt.actor); got != tt.want {
				t.Errorf("ActorColor(%q) = %q, want %q", tt.actor, got, tt.want)
			}
		})
	}
}

func TestChangeStyle(t *testing.T) {
	Apply(ThemeDefault)

	if got := ChangeStyle(3).GetForeground(); got != SuccessColor {
		t.Errorf("ChangeStyle(3) foreground = %v, want %v", got, SuccessColor)
	}
	if got := ChangeStyle(-3).GetForeground(); got != ErrorColor {
		t.Errorf("ChangeStyle(-3) foreground = %v, want %v", got, ErrorColor)
	}
	if got := ChangeStyle(0).GetForeground(); got != MutedColor {
		t.Errorf("ChangeStyle(0) foreground = %v, want %v", got, MutedColor)
	}
}
