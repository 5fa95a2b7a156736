// Package logpanel provides an in-app viewer for recent debug log entries.
package logpanel

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/ui/overlay"
	"github.com/zjrosen/gridcore/internal/ui/styles"
)

const (
	maxEntries = 500
	maxHeight  = 20
	minWidth   = 40
	maxWidth   = 140
)

// Model buffers log entries from a listener and shows them on demand.
type Model struct {
	listener *log.LogListener
	entries  []string
	minLevel log.Level
	visible  bool
	width    int
	height   int
	viewport viewport.Model
}

// New creates a panel fed by listener. A nil listener yields a panel that
// never receives entries.
func New(listener *log.LogListener) Model {
	return Model{listener: listener, minLevel: log.LevelDebug}
}

// Listen starts receiving entries.
func (m Model) Listen() tea.Cmd {
	if m.listener == nil {
		return nil
	}
	return m.listener.Listen()
}

// Update buffers log events and, while visible, handles keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case log.LogEvent:
		m.entries = append(m.entries, strings.TrimSuffix(msg.Payload, "\n"))
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		if m.visible {
			m.refresh()
		}
		return m, m.Listen()

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		switch msg.String() {
		case "c":
			m.entries = nil
		case "d":
			m.minLevel = log.LevelDebug
		case "i":
			m.minLevel = log.LevelInfo
		case "w":
			m.minLevel = log.LevelWarn
		case "e":
			m.minLevel = log.LevelError
		case "esc":
			m.visible = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		m.refresh()
	}
	return m, nil
}

func (m Model) Visible() bool { return m.visible }

// Toggle shows or hides the panel.
func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refresh()
	}
}

// SetSize updates the screen size the panel is centered in.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.visible {
		m.refresh()
	}
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, maxWidth), minWidth)
}

func (m *Model) refresh() {
	if m.width == 0 || m.height == 0 {
		return
	}
	width := m.boxWidth() - 2
	// Title, footer and border take four lines.
	height := max(min(maxHeight, m.height-6), 3)

	var lines []string
	for _, entry := range m.entries {
		if level, ok := levelOf(entry); !ok || level >= m.minLevel {
			lines = append(lines, colorize(ansi.Truncate(entry, width, "…")))
		}
	}
	content := lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true).Render("No logs to display")
	if len(lines) > 0 {
		content = strings.Join(lines, "\n")
	}

	m.viewport = viewport.New(width, height)
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// View renders the panel box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(styles.TextSecondaryColor).Render("Logs")
	body := strings.Join([]string{title, m.viewport.View(), m.hint()}, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BorderDefaultColor).
		Width(m.boxWidth() - 2).
		Render(body)
}

// Overlay draws the panel centered on bg.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Place(m.View(), bg, m.width, m.height, overlay.Center, 0)
}

func (m Model) hint() string {
	hint := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	active := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Bold(true)

	parts := []string{hint.Render("[c] clear")}
	for _, f := range []struct {
		level log.Level
		label string
	}{
		{log.LevelDebug, "[d] debug"},
		{log.LevelInfo, "[i] info"},
		{log.LevelWarn, "[w] warn"},
		{log.LevelError, "[e] error"},
	} {
		if f.level == m.minLevel {
			parts = append(parts, active.Render(f.label))
		} else {
			parts = append(parts, hint.Render(f.label))
		}
	}
	return strings.Join(parts, "  ")
}

// levelOf parses the "[LEVEL]" tag written by the log package.
func levelOf(entry string) (log.Level, bool) {
	for _, l := range []log.Level{log.LevelError, log.LevelWarn, log.LevelInfo, log.LevelDebug} {
		if strings.Contains(entry, "["+l.String()+"]") {
			return l, true
		}
	}
	return 0, false
}

func colorize(entry string) string {
	var color lipgloss.TerminalColor = styles.TextPrimaryColor
	if level, ok := levelOf(entry); ok {
		switch level {
		case log.LevelDebug:
			color = styles.TextMutedColor
		case log.LevelInfo:
			color = styles.BorderHighlightColor
		case log.LevelWarn:
			color = styles.StatusWarningColor
		case log.LevelError:
			color = styles.StatusErrorColor
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(entry)
}
