package grid

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/interaction"
	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/selection"
)

// EditCommittedMsg carries the value of a finished edit. It is sent when the
// user presses enter on a valid value or when a click elsewhere ends an edit
// whose value is valid and changed.
type EditCommittedMsg struct {
	GridID string
	Pos    selection.Position
	Value  string
}

// table adapts the rows to interaction.Data with a fixed column count.
type table struct {
	rows [][]any
	cols int
}

func (t table) RowCount() int    { return len(t.rows) }
func (t table) ColumnCount() int { return t.cols }

func (t table) Value(row, col int) any {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.rows[row]) {
		return nil
	}
	return t.rows[row][col]
}

// containerNode is the Target.Node of every event inside the grid.
type containerNode struct{ prefix string }

// Model is the grid façade. The controller is shared between copies of the
// model, so treat a Model like a handle: keep the copy Update returns.
type Model struct {
	cfg    Config
	ctrl   *interaction.Controller
	prefix string
	node   containerNode

	width   int
	height  int
	yOffset int

	editor   textinput.Model
	original string

	activeCol int
	lastPress *pressRecord
	now       func() time.Time
}

type pressRecord struct {
	marker interaction.Marker
	at     time.Time
}

// New creates a grid with the given configuration.
// Panics if the configuration is invalid.
func New(cfg Config) Model {
	if err := ValidateConfig(cfg); err != nil {
		panic(err)
	}

	def := DefaultConfig()
	if cfg.ID == "" {
		cfg.ID = def.ID
	}
	if cfg.Formats == nil {
		cfg.Formats = def.Formats
	}
	if cfg.Keys.Copy.Keys() == nil {
		cfg.Keys = def.Keys
	}
	if cfg.DoubleClickInterval <= 0 {
		cfg.DoubleClickInterval = def.DoubleClickInterval
	}
	if cfg.MinColumnWidth <= 0 {
		cfg.MinColumnWidth = def.MinColumnWidth
	}
	if cfg.MaxColumnWidth <= 0 {
		cfg.MaxColumnWidth = def.MaxColumnWidth
	}

	prefix := zone.NewPrefix()
	m := Model{
		cfg:    cfg,
		prefix: prefix,
		node:   containerNode{prefix: prefix},
		editor: newEditor(),
		now:    time.Now,
	}

	editable := cfg.Editable
	if editable == nil {
		editable = func(_, col int) bool {
			return col >= 0 && col < len(cfg.Columns) && cfg.Columns[col].Editable
		}
	}
	m.ctrl = interaction.New(interaction.Config{
		ID:             cfg.ID,
		AllowSelection: cfg.AllowSelection,
		Contains:       m.contains,
		Editable:       editable,
		Data:           table{rows: cfg.Rows, cols: len(cfg.Columns)},
		Clipboard:      cfg.Clipboard,
		Formats:        cfg.Formats,
		ColumnWidths:   initialWidths(cfg),
		MinColumnWidth: cfg.MinColumnWidth,
		MaxColumnWidth: cfg.MaxColumnWidth,
	})
	return m
}

func newEditor() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = ""
	return ti
}

func (m Model) contains(node any) bool {
	n, ok := node.(containerNode)
	return ok && n == m.node
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// ID returns the grid ID.
func (m Model) ID() string { return m.cfg.ID }

// Handle returns the imperative handle of the grid.
func (m Model) Handle() interaction.Handle { return m.ctrl }

// Controller exposes the underlying state machine.
func (m Model) Controller() *interaction.Controller { return m.ctrl }

// Close releases the grid's observers.
func (m Model) Close() { m.ctrl.Close() }

// Rows returns the current row data.
func (m Model) Rows() [][]any { return m.cfg.Rows }

// Columns returns the column definitions.
func (m Model) Columns() []Column { return m.cfg.Columns }

// Editing reports whether a cell editor is open.
func (m Model) Editing() bool { return m.ctrl.Editing() }

// EditorErr returns the current validation error of the cell editor.
func (m Model) EditorErr() error { return m.editor.Err }

// ColumnWidth returns the rendered width of a column.
func (m Model) ColumnWidth(col int) int {
	return max(m.ctrl.ColumnWidth(col), m.cfg.MinColumnWidth)
}

// SetRows replaces the grid data. Selections are kept; rows that no longer
// exist are filtered before any notification.
func (m Model) SetRows(rows [][]any) Model {
	m.cfg.Rows = rows
	m.ctrl.Update(interaction.SetData{Data: table{rows: rows, cols: len(m.cfg.Columns)}})
	if !m.ctrl.Editing() {
		m.editor.Blur()
	}
	m.yOffset = m.clampYOffset(m.yOffset)
	return m
}

// SetSize sets the outer dimensions including the border.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.yOffset = m.clampYOffset(m.yOffset)
	return m
}

// CellZoneID returns the zone ID marking a data cell.
func (m Model) CellZoneID(row, col int) string {
	return cellZoneID(m.prefix, row, col)
}

// GutterZoneID returns the zone ID marking a row number.
func (m Model) GutterZoneID(row int) string {
	return gutterZoneID(m.prefix, row)
}

// ContainerZoneID returns the zone ID of the whole grid.
func (m Model) ContainerZoneID() string {
	return m.prefix + "grid"
}

// Update handles mouse and key input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	before, wasEditing := m.ctrl.EditingPos()

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg)...)
	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
	case interaction.Msg:
		cmds = append(cmds, m.ctrl.Update(msg))
	default:
		// Cursor blink ticks.
		if m.editor.Focused() {
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// An edit committed by this input is reported before the controller's
	// notifications so hosts apply the value before the edit ends.
	commit, blink := m.syncEditor(before, wasEditing)
	return m, tea.Batch(tea.Sequence(append([]tea.Cmd{commit}, cmds...)...), blink)
}

func (m *Model) handleMouse(msg tea.MouseMsg) []tea.Cmd {
	switch {
	case msg.Button == tea.MouseButtonWheelUp && msg.Action == tea.MouseActionPress:
		m.yOffset = m.clampYOffset(m.yOffset - 1)
		return nil
	case msg.Button == tea.MouseButtonWheelDown && msg.Action == tea.MouseActionPress:
		m.yOffset = m.clampYOffset(m.yOffset + 1)
		return nil

	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		target := m.resolveTarget(msg)
		cmds := []tea.Cmd{m.ctrl.Update(interaction.PointerDown{
			Target: target,
			Shift:  msg.Shift,
			Meta:   msg.Ctrl || msg.Alt,
		})}
		if target.Marker != nil && !target.Marker.IsRowHeader() {
			m.activeCol = target.Marker.Col
		}
		if m.isDoubleClick(target) {
			log.Debug(log.CatUI, "Double click", "grid", m.cfg.ID, "row", target.Marker.Row, "col", target.Marker.Col)
			cmds = append(cmds, m.ctrl.Update(interaction.DoubleClick{Target: target}))
		}
		return cmds

	case msg.Action == tea.MouseActionMotion:
		if m.ctrl.Mode() != interaction.ModeDraggingRows && m.ctrl.Mode() != interaction.ModeDraggingCells {
			return nil
		}
		return []tea.Cmd{m.ctrl.Update(interaction.PointerMove{
			Target: m.resolveTarget(msg),
			Held:   msg.Button == tea.MouseButtonLeft,
		})}

	case msg.Action == tea.MouseActionRelease:
		return []tea.Cmd{m.ctrl.Update(interaction.PointerUp{})}
	}
	return nil
}

// isDoubleClick records a press and reports whether it completes a double
// click on the same marker.
func (m *Model) isDoubleClick(target interaction.Target) bool {
	if target.Marker == nil {
		m.lastPress = nil
		return false
	}
	now := m.now()
	prev := m.lastPress
	if prev != nil && prev.marker == *target.Marker && now.Sub(prev.at) <= m.cfg.DoubleClickInterval {
		m.lastPress = nil
		return true
	}
	m.lastPress = &pressRecord{marker: *target.Marker, at: now}
	return false
}

// resolveTarget finds the cell or gutter zone under the pointer.
func (m Model) resolveTarget(msg tea.MouseMsg) interaction.Target {
	first, last := m.visibleRows()
	cols := m.visibleColumns()
	for row := first; row < last; row++ {
		if inZone(gutterZoneID(m.prefix, row), msg) {
			return interaction.RowTarget(m.node, row)
		}
		for _, col := range cols {
			if inZone(cellZoneID(m.prefix, row, col), msg) {
				return interaction.CellTarget(m.node, row, col)
			}
		}
	}
	if inZone(m.ContainerZoneID(), msg) {
		return interaction.Target{Node: m.node}
	}
	return interaction.Target{}
}

func inZone(id string, msg tea.MouseMsg) bool {
	z := zone.Get(id)
	return z != nil && z.InBounds(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	k := m.cfg.Keys

	if m.ctrl.Editing() {
		switch {
		case key.Matches(msg, k.Edit):
			cmd := m.commitEdit()
			return m, cmd
		case key.Matches(msg, k.EndEdit):
			pos, _ := m.ctrl.EditingPos()
			m.ctrl.EndEditing()
			m.editor.Blur()
			log.Debug(log.CatUI, "Edit cancelled", "grid", m.cfg.ID, "pos", pos)
			return m, endEditing(m.cfg.ID, pos)
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, k.Delete):
		return m, m.ctrl.Update(interaction.Delete{})
	case key.Matches(msg, k.Copy):
		return m, m.ctrl.Update(interaction.Copy{})
	case key.Matches(msg, k.Paste):
		return m, m.ctrl.Update(interaction.Paste{Clipboard: m.pasteSource()})
	case key.Matches(msg, k.Edit):
		cells := m.ctrl.SelectedCells()
		if cells == nil {
			return m, nil
		}
		target := interaction.CellTarget(m.node, cells.Start.Row, cells.Start.Col)
		return m, m.ctrl.Update(interaction.DoubleClick{Target: target})
	case key.Matches(msg, k.Narrow):
		return m, m.resize(-1)
	case key.Matches(msg, k.Widen):
		return m, m.resize(1)
	case key.Matches(msg, k.ClearSelect):
		m.ctrl.ClearSelection()
		return m, nil
	}
	return m, nil
}

func (m Model) pasteSource() clipboard.Reader {
	if m.cfg.PasteSource != nil {
		return m.cfg.PasteSource
	}
	if r, ok := m.cfg.Clipboard.(clipboard.Reader); ok {
		return r
	}
	return nil
}

func (m Model) resize(delta int) tea.Cmd {
	col := m.activeCol
	if cells := m.ctrl.SelectedCells(); cells != nil {
		col = cells.Start.Col
	}
	if col < 0 || col >= len(m.cfg.Columns) {
		return nil
	}
	return m.ctrl.Update(interaction.ResizeColumn{Col: col, Width: m.ColumnWidth(col) + delta})
}

// commitEdit ends a valid edit and reports its value. An invalid value keeps
// the editor open.
func (m *Model) commitEdit() tea.Cmd {
	pos, ok := m.ctrl.EditingPos()
	if !ok {
		return nil
	}
	value := m.editor.Value()
	if err := m.validate(pos.Col, value); err != nil {
		m.editor.Err = err
		log.Debug(log.CatUI, "Edit rejected", "grid", m.cfg.ID, "pos", pos, "error", err)
		return nil
	}
	m.ctrl.EndEditing()
	m.editor.Blur()
	id := m.cfg.ID
	return tea.Sequence(
		func() tea.Msg { return EditCommittedMsg{GridID: id, Pos: pos, Value: value} },
		endEditing(id, pos),
	)
}

func endEditing(id string, pos selection.Position) tea.Cmd {
	return func() tea.Msg { return interaction.EndEditingMsg{GridID: id, Pos: pos} }
}

func (m Model) validate(col int, value string) error {
	if col < 0 || col >= len(m.cfg.Columns) {
		return nil
	}
	if fn := m.cfg.Columns[col].validator(); fn != nil {
		return fn(value)
	}
	return nil
}

// syncEditor opens, closes or retargets the cell editor after the
// controller changed its editing position. An edit ended by a click
// elsewhere is committed when its value is valid and changed. The commit
// and the cursor blink of a newly opened editor are returned separately.
func (m *Model) syncEditor(before selection.Position, wasEditing bool) (commit, blink tea.Cmd) {
	after, isEditing := m.ctrl.EditingPos()
	if wasEditing == isEditing && before == after {
		return nil, nil
	}

	if wasEditing && m.editor.Focused() {
		value := m.editor.Value()
		switch err := m.validate(before.Col, value); {
		case err != nil:
			log.Debug(log.CatUI, "Discarded invalid edit", "grid", m.cfg.ID, "pos", before, "error", err)
		case value != m.original:
			id := m.cfg.ID
			commit = func() tea.Msg { return EditCommittedMsg{GridID: id, Pos: before, Value: value} }
		}
		m.editor.Blur()
	}

	if isEditing {
		m.openEditor(after)
		blink = textinput.Blink
	}
	return commit, blink
}

func (m *Model) openEditor(pos selection.Position) {
	m.original = clipboard.FormatValue(table{rows: m.cfg.Rows, cols: len(m.cfg.Columns)}.Value(pos.Row, pos.Col))
	m.editor = newEditor()
	m.editor.Width = max(m.ColumnWidth(pos.Col)-1, 1)
	if pos.Col < len(m.cfg.Columns) {
		m.editor.Validate = m.cfg.Columns[pos.Col].validator()
	}
	m.editor.SetValue(m.original)
	m.editor.CursorEnd()
	m.editor.Focus()
}

// EditorValue returns the text in the cell editor.
func (m Model) EditorValue() string { return m.editor.Value() }
