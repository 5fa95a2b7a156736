// Package styles contains Lip Gloss style definitions.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// FrameConfig configures RenderFrame.
type FrameConfig struct {
	Content string
	Width   int // Total width including borders
	Height  int // Total height including borders

	Title  string // Embedded in the top border, left-aligned
	Status string // Embedded in the bottom border, right-aligned

	Highlighted bool // Use BorderHighlightColor instead of BorderDefaultColor
}

// RenderFrame renders content inside a rounded border with an optional title
// in the top edge and status text in the bottom edge:
//
//	╭─ Title ─────────╮
//	│content          │
//	╰───────── Status ╯
func RenderFrame(cfg FrameConfig) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if cfg.Highlighted {
		borderColor = BorderHighlightColor
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(TextSecondaryColor)

	innerWidth := max(cfg.Width-2, 1)
	contentHeight := max(cfg.Height-2, 1)

	lines := strings.Split(cfg.Content, "\n")
	body := make([]string, contentHeight)
	for i := range contentHeight {
		var line string
		if i < len(lines) {
			line = TruncateString(lines[i], innerWidth)
		}
		if w := lipgloss.Width(line); w < innerWidth {
			line += strings.Repeat(" ", innerWidth-w)
		}
		body[i] = borderStyle.Render(borderVertical) + line + borderStyle.Render(borderVertical)
	}

	var b strings.Builder
	b.WriteString(edge(borderTopLeft, borderTopRight, cfg.Title, innerWidth, false, borderStyle, titleStyle))
	b.WriteString("\n")
	b.WriteString(strings.Join(body, "\n"))
	b.WriteString("\n")
	b.WriteString(edge(borderBottomLeft, borderBottomRight, cfg.Status, innerWidth, true, borderStyle, titleStyle))
	return b.String()
}

// edge builds a horizontal border line with text embedded near one corner.
func edge(left, right, text string, innerWidth int, alignRight bool, borderStyle, textStyle lipgloss.Style) string {
	// Text needs "─ " and " ─" around it.
	if text == "" || innerWidth < 5 {
		return borderStyle.Render(left + strings.Repeat(borderHorizontal, innerWidth) + right)
	}
	text = TruncateString(text, innerWidth-4)
	fill := max(innerWidth-3-lipgloss.Width(text), 0)

	if alignRight {
		return borderStyle.Render(left+strings.Repeat(borderHorizontal, fill)+" ") +
			textStyle.Render(text) +
			borderStyle.Render(" "+borderHorizontal+right)
	}
	return borderStyle.Render(left+borderHorizontal+" ") +
		textStyle.Render(text) +
		borderStyle.Render(" "+strings.Repeat(borderHorizontal, fill)+right)
}
