// Package notice shows a short-lived message box over the bottom of the
// screen, used for copy, paste and save results.
package notice

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/gridcore/internal/ui/overlay"
	"github.com/zjrosen/gridcore/internal/ui/styles"
)

// DefaultDuration is how long a notice stays up.
const DefaultDuration = 3 * time.Second

// Level selects the border color and glyph.
type Level int

const (
	Success Level = iota
	Info
	Warn
	Error
)

// Model holds the current notice.
type Model struct {
	message string
	level   Level
	seq     int
}

// DismissMsg hides the notice it was scheduled for. A newer notice is left
// alone.
type DismissMsg struct {
	seq int
}

// Show replaces the current notice and returns the command that dismisses
// it after d.
func (m Model) Show(message string, level Level, d time.Duration) (Model, tea.Cmd) {
	m.message = message
	m.level = level
	m.seq++
	seq := m.seq
	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{seq: seq} })
}

// Update handles DismissMsg.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		m.message = ""
	}
	return m
}

func (m Model) Visible() bool { return m.message != "" }
func (m Model) Message() string { return m.message }
func (m Model) Level() Level { return m.level }

// View renders the notice box, or "" when nothing is shown.
func (m Model) View() string {
	if m.message == "" {
		return ""
	}
	glyph, color := "✓", styles.StatusSuccessColor
	switch m.level {
	case Info:
		glyph, color = "i", styles.BorderHighlightColor
	case Warn:
		glyph, color = "!", styles.StatusWarningColor
	case Error:
		glyph, color = "✗", styles.StatusErrorColor
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(glyph + " " + m.message)
}

// Overlay draws the notice near the bottom of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if m.message == "" {
		return bg
	}
	return overlay.Place(m.View(), bg, width, height, overlay.Bottom, 1)
}
