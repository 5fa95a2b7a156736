// Package styles contains Lip Gloss style definitions.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated cell text.
const Ellipsis = "…"

// TruncateString truncates a string to fit within maxWidth, adding an
// ellipsis if needed. ANSI sequences in s are preserved.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return Ellipsis
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// FitCell flattens line breaks, truncates and pads plain text to exactly
// width columns.
func FitCell(s string, width int, align lipgloss.Position) string {
	if width < 1 {
		return ""
	}
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	s = TruncateString(s, width)
	switch align {
	case lipgloss.Right:
		return runewidth.FillLeft(s, width)
	case lipgloss.Center:
		pad := width - runewidth.StringWidth(s)
		left := pad / 2
		return runewidth.FillRight(strings.Repeat(" ", left)+s, width)
	default:
		return runewidth.FillRight(s, width)
	}
}
