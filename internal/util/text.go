// Package util provides text helpers shared by the terminal renderers.
package util

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Ellipsize truncates s to maxWidth visual columns, ending in Ellipsis when
// cut. Escape sequences and wide characters are measured correctly.
func Ellipsize(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// FirstLine returns s up to its first line break, trimmed.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// Wrap word-wraps s at width columns. Words longer than width are split.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "-")
}

// Signed formats n with an explicit sign: "+5", "-3", "0".
func Signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Bar renders value out of limit as a bar of width cells.
func Bar(value, limit, width int) string {
	if width <= 0 || limit <= 0 {
		return ""
	}
	filled := max(0, min(width, value*width/limit))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
