// Package app contains the root application model.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/config"
	"github.com/zjrosen/gridcore/internal/dataset"
	"github.com/zjrosen/gridcore/internal/interaction"
	"github.com/zjrosen/gridcore/internal/keys"
	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/pubsub"
	"github.com/zjrosen/gridcore/internal/selection"
	"github.com/zjrosen/gridcore/internal/ui/grid"
	"github.com/zjrosen/gridcore/internal/ui/logpanel"
	"github.com/zjrosen/gridcore/internal/ui/notice"
	"github.com/zjrosen/gridcore/internal/watcher"
)

// Options configures New.
type Options struct {
	Store  dataset.Store
	Config config.Config

	// ConfigPath receives saved column widths. Empty disables saving.
	ConfigPath string

	// Clipboard defaults to a clipboard.Shared writing to stdout.
	Clipboard clipboard.Writer

	// Debug enables the log panel.
	Debug bool
}

// Model is the root application state.
type Model struct {
	cfg        config.Config
	configPath string
	store      dataset.Store
	table      dataset.Table
	clip       clipboard.Writer
	formats    []clipboard.Format

	grid   grid.Model
	help   help.Model
	notice notice.Model

	debug bool
	logs  logpanel.Model

	width  int
	height int

	// File watcher for reloading the table (pubsub-based)
	watcherHandle   *watcher.Watcher
	watcherCancel   context.CancelFunc
	watcherListener *pubsub.ContinuousListener[watcher.Event]
}

// pasteReadyMsg carries clipboard text read off the update loop.
type pasteReadyMsg struct {
	at     selection.Position
	fill   *selection.CellRange
	values [][]string
	err    error
}

// New loads the table and builds the grid.
func New(opts Options) (Model, error) {
	formats, err := clipboard.FormatsByName(opts.Config.Clipboard.Formats)
	if err != nil {
		return Model{}, err
	}
	clip := opts.Clipboard
	if clip == nil {
		shared := clipboard.NewShared(os.Stdout)
		shared.System.NoOSC52 = !opts.Config.Clipboard.OSC52
		clip = shared
	}

	table, err := opts.Store.Load(context.Background())
	if err != nil {
		return Model{}, fmt.Errorf("loading table: %w", err)
	}

	m := Model{
		cfg:        opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		table:      table,
		clip:       clip,
		formats:    formats,
		help:       help.New(),
		debug:      opts.Debug,
	}
	if m.grid, err = m.newGrid(table); err != nil {
		return Model{}, err
	}

	if opts.Debug {
		m.logs = logpanel.New(log.NewListener(context.Background()))
	}

	if opts.Config.Watch {
		w, err := watcher.New(watcher.Config{Path: opts.Store.Path(), DebounceDur: opts.Config.WatchDebounce})
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			// The app works without reloads.
			log.Warn(log.CatWatcher, "File watcher unavailable", "error", err)
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			m.watcherHandle = w
			m.watcherCancel = cancel
			m.watcherListener = pubsub.NewContinuousListener[watcher.Event](ctx, w)
		}
	}
	return m, nil
}

// newGrid validates the config built for table before constructing the grid.
func (m Model) newGrid(table dataset.Table) (grid.Model, error) {
	gc := m.gridConfig(table)
	if err := grid.ValidateConfig(gc); err != nil {
		return grid.Model{}, fmt.Errorf("table %s: %w", table.Name, err)
	}
	return grid.New(gc), nil
}

// gridConfig maps a loaded table and the user config to a grid config.
func (m Model) gridConfig(table dataset.Table) grid.Config {
	gc := grid.DefaultConfig()
	gc.ID = table.Name
	gc.Title = table.Name
	if m.store.ReadOnly() || m.cfg.ReadOnly {
		gc.Title += " (read-only)"
	}
	gc.Rows = table.Rows
	gc.AllowSelection = m.cfg.AllowSelection
	gc.StartRowNumber = m.cfg.StartRowNumber
	gc.MinColumnWidth = m.cfg.Columns.MinWidth
	gc.MaxColumnWidth = m.cfg.Columns.MaxWidth
	gc.Clipboard = m.clip
	gc.Formats = m.formats
	if m.cfg.Theme.Highlight != "" {
		gc.HighlightColor = lipgloss.Color(m.cfg.Theme.Highlight)
	}

	saved := m.cfg.Columns.WidthsFor(table.Name)
	gc.Columns = make([]grid.Column, len(table.Columns))
	for i, name := range table.Columns {
		col := grid.Column{
			Key:      name,
			Editable: !m.cfg.ReadOnly && !m.store.ReadOnly(),
			JSON:     m.cfg.Columns.IsJSON(table.Name, name),
		}
		if i < len(saved) {
			col.Width = saved[i]
		}
		if numericColumn(table.Rows, i) {
			col.Align = lipgloss.Right
		}
		gc.Columns[i] = col
	}
	return gc
}

// numericColumn reports whether every non-empty value of a column is a number.
func numericColumn(rows [][]any, col int) bool {
	seen := false
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		switch row[col].(type) {
		case int64, int, float64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.grid.Init()}
	if m.watcherListener != nil {
		cmds = append(cmds, m.watcherListener.Listen())
	}
	if m.debug {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.grid = m.grid.SetSize(msg.Width, m.gridHeight())
		m.logs.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.logs.Visible() {
			return m, nil
		}
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd

	case log.LogEvent:
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd

	case notice.DismissMsg:
		m.notice = m.notice.Update(msg)
		return m, nil

	case pubsub.Event[watcher.Event]:
		var cmd tea.Cmd
		switch msg.Type {
		case pubsub.FileChangedEvent:
			log.Debug(log.CatWatcher, "Data file changed, reloading", "path", msg.Payload.Path)
			m, cmd = m.reload()
		case pubsub.WatchErrorEvent:
			m, cmd = m.show(fmt.Sprintf("watch error: %v", msg.Payload.Err), notice.Warn)
		}
		if m.watcherListener == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.watcherListener.Listen())

	case interaction.SelectionChangedMsg:
		log.Debug(log.CatGrid, "Selection changed", "grid", msg.GridID, "rows", msg.Rows, "cells", msg.Cells)
		return m, nil

	case interaction.DeleteRowsMsg:
		err := m.store.DeleteRows(context.Background(), msg.Rows)
		return m.afterMutation(err, fmt.Sprintf("deleted %s", plural(len(msg.Rows), "row")), true)

	case interaction.DeleteCellsMsg:
		err := m.store.ClearCells(context.Background(), msg.Range)
		n := selection.RowCount(msg.Range) * selection.ColCount(msg.Range)
		return m.afterMutation(err, fmt.Sprintf("cleared %s", plural(n, "cell")), false)

	case interaction.CopyRowsMsg:
		return m.copied(plural(len(msg.Rows), "row"), msg.Result, msg.Err)

	case interaction.CopyCellsMsg:
		n := selection.RowCount(msg.Range) * selection.ColCount(msg.Range)
		return m.copied(plural(n, "cell"), msg.Result, msg.Err)

	case interaction.PasteRowsMsg:
		if len(msg.Rows) == 0 || msg.Clipboard == nil {
			return m, nil
		}
		at := selection.Position{Row: msg.Rows[0], Col: 0}
		return m, readPaste(msg.Clipboard, at, nil)

	case interaction.PasteCellsMsg:
		if msg.Clipboard == nil {
			return m, nil
		}
		r := selection.NormalizeCells(msg.Range)
		return m, readPaste(msg.Clipboard, r.Start, &r)

	case pasteReadyMsg:
		return m.applyPaste(msg)

	case grid.EditCommittedMsg:
		err := m.store.SetCell(context.Background(), msg.Pos, msg.Value)
		return m.afterMutation(err, "", false)

	case interaction.ColumnWidthChangedMsg:
		return m.saveWidths()

	case interaction.StartEditingMsg:
		log.Debug(log.CatGrid, "Editing started", "grid", msg.GridID, "pos", msg.Pos)
		return m, nil

	case interaction.EndEditingMsg:
		log.Debug(log.CatGrid, "Editing ended", "grid", msg.GridID, "pos", msg.Pos)
		return m, nil
	}

	// Everything else (cursor blinks) belongs to the grid.
	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.debug && key.Matches(msg, keys.App.Logs) {
		m.logs.Toggle()
		return m, nil
	}
	if m.logs.Visible() {
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}

	// Host shortcuts would swallow typed text while a cell is being edited.
	if !m.grid.Editing() {
		switch {
		case key.Matches(msg, keys.App.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.App.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.grid = m.grid.SetSize(m.width, m.gridHeight())
			return m, nil
		case key.Matches(msg, keys.App.Reload):
			return m.reload()
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) helpKeys() keys.HelpKeyMap {
	return keys.HelpKeyMap{Grid: keys.Grid, App: keys.App}
}

// gridHeight leaves room for the help footer.
func (m Model) gridHeight() int {
	return max(m.height-lipgloss.Height(m.help.View(m.helpKeys())), 0)
}

// reload re-reads the table. A changed column set rebuilds the grid;
// otherwise rows are swapped in place and the selection survives.
func (m Model) reload() (Model, tea.Cmd) {
	table, err := m.store.Load(context.Background())
	if err != nil {
		log.ErrorErr(log.CatData, "Reload failed", err, "table", m.store.Name())
		return m.show(fmt.Sprintf("reload failed: %v", err), notice.Error)
	}

	if !slices.Equal(table.Columns, m.table.Columns) {
		g, err := m.newGrid(table)
		if err != nil {
			log.ErrorErr(log.CatData, "Reloaded table cannot be shown", err, "table", m.store.Name())
			return m.show(err.Error(), notice.Error)
		}
		m.grid.Close()
		m.grid = g.SetSize(m.width, m.gridHeight())
	} else {
		m.grid = m.grid.SetRows(table.Rows)
	}
	m.table = table
	return m, nil
}

// afterMutation reports a store error or reloads the table.
func (m Model) afterMutation(err error, done string, clearSelection bool) (tea.Model, tea.Cmd) {
	if err != nil {
		if errors.Is(err, dataset.ErrReadOnly) {
			return m.show("table is read-only", notice.Warn)
		}
		log.ErrorErr(log.CatData, "Update failed", err, "table", m.store.Name())
		return m.show(err.Error(), notice.Error)
	}
	if clearSelection {
		// Deleted rows shift every index after them.
		m.grid.Handle().ClearSelection()
	}
	m, cmd := m.reload()
	if done == "" {
		return m, cmd
	}
	m, show := m.show(done, notice.Success)
	return m, tea.Batch(cmd, show)
}

func (m Model) copied(what string, res clipboard.Result, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		log.Warn(log.CatClipboard, "Copy failed", "error", err)
		return m.show(fmt.Sprintf("copy failed: %v", err), notice.Error)
	}
	msg := fmt.Sprintf("copied %s as %s", what, strings.Join(res.Written, ", "))
	if len(res.Skipped) > 0 {
		return m.show(msg+" (skipped "+strings.Join(res.Skipped, ", ")+")", notice.Warn)
	}
	return m.show(msg, notice.Success)
}

func readPaste(r clipboard.Reader, at selection.Position, fill *selection.CellRange) tea.Cmd {
	return func() tea.Msg {
		text, err := r.ReadText(context.Background())
		if err != nil {
			return pasteReadyMsg{err: err}
		}
		return pasteReadyMsg{at: at, fill: fill, values: clipboard.DecodeTSV(text)}
	}
}

func (m Model) applyPaste(msg pasteReadyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.show(fmt.Sprintf("paste failed: %v", msg.err), notice.Error)
	}
	values := msg.values
	if len(values) == 0 {
		return m.show("clipboard is empty", notice.Info)
	}
	if msg.fill != nil {
		values = fillRange(values, *msg.fill)
	}
	err := m.store.Paste(context.Background(), msg.at, values)
	return m.afterMutation(err, fmt.Sprintf("pasted %s", plural(len(values), "row")), false)
}

// fillRange repeats a single copied value over the whole target range.
func fillRange(values [][]string, r selection.CellRange) [][]string {
	if len(values) != 1 || len(values[0]) != 1 {
		return values
	}
	rows, cols := selection.RowCount(r), selection.ColCount(r)
	out := make([][]string, rows)
	for i := range out {
		out[i] = slices.Repeat([]string{values[0][0]}, cols)
	}
	return out
}

func (m Model) saveWidths() (tea.Model, tea.Cmd) {
	widths := make([]int, len(m.table.Columns))
	for i := range widths {
		widths[i] = m.grid.ColumnWidth(i)
	}
	if m.cfg.Columns.Widths == nil {
		m.cfg.Columns.Widths = map[string][]int{}
	}
	m.cfg.Columns.Widths[strings.ToLower(m.table.Name)] = widths

	if m.configPath == "" {
		return m, nil
	}
	if err := config.SaveColumnWidths(m.configPath, m.table.Name, widths); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to save column widths", err, "path", m.configPath)
		return m.show(fmt.Sprintf("saving widths failed: %v", err), notice.Error)
	}
	return m, nil
}

func (m Model) show(message string, level notice.Level) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.notice, cmd = m.notice.Show(message, level, notice.DefaultDuration)
	return m, cmd
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	view := lipgloss.JoinVertical(lipgloss.Left, m.grid.View(), m.help.View(m.helpKeys()))
	view = m.notice.Overlay(view, m.width, m.height)
	if m.logs.Visible() {
		view = m.logs.Overlay(view)
	}
	return zone.Scan(view)
}

// Grid returns the grid model.
func (m Model) Grid() grid.Model { return m.grid }

// Notice returns the current notice text.
func (m Model) Notice() string { return m.notice.Message() }

// Close releases resources held by the application.
func (m *Model) Close() error {
	m.grid.Close()

	if m.watcherCancel != nil {
		m.watcherCancel()
	}
	if m.watcherHandle != nil {
		if err := m.watcherHandle.Stop(); err != nil {
			return err
		}
	}
	return m.store.Close()
}
