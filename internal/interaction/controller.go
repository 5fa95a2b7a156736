// Package interaction implements the grid's selection and editing state
// machine.
//
// The Controller owns one selection.State per grid. The façade translates raw
// terminal input into the Msg variants in this package and feeds them to
// Update; the controller mutates its state synchronously and reports to the
// host through typed messages returned as a tea.Cmd, so every notification
// is delivered after the state has settled.
package interaction

import (
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/pubsub"
	"github.com/zjrosen/gridcore/internal/selection"
)

// Mode is the controller's state-machine state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraggingRows
	ModeDraggingCells
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDraggingRows:
		return "dragging-rows"
	case ModeDraggingCells:
		return "dragging-cells"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Data is the grid content the controller reads for bounds and copy.
type Data interface {
	RowCount() int
	ColumnCount() int
	Value(row, col int) any
}

// Rows adapts a slice of rows to Data. The column count is the widest row.
type Rows [][]any

// RowCount returns the number of rows.
func (r Rows) RowCount() int { return len(r) }

// ColumnCount returns the length of the widest row.
func (r Rows) ColumnCount() int {
	n := 0
	for _, row := range r {
		n = max(n, len(row))
	}
	return n
}

// Value returns the cell value, or nil outside the data.
func (r Rows) Value(row, col int) any {
	if row < 0 || row >= len(r) || col < 0 || col >= len(r[row]) {
		return nil
	}
	return r[row][col]
}

// Handle is the imperative surface a host may call directly.
type Handle interface {
	Editing() bool
	SelectedRows() []int
	SelectedCells() *selection.CellRange
	ClearSelection()
	EndEditing()
}

// Event is the payload published to selection observers.
type Event struct {
	GridID  string
	Rows    []int
	Cells   *selection.CellRange
	Editing *selection.Position
}

// Config configures a Controller.
type Config struct {
	// ID tags every output message. Defaults to "grid".
	ID string

	// AllowSelection enables pointer selection. Editing and clipboard
	// shortcuts work regardless.
	AllowSelection bool

	// Contains reports whether a pointer target lies inside the grid.
	// A nil Contains treats every target as inside.
	Contains func(node any) bool

	// Editable reports whether a cell may enter edit mode. Nil means no cell
	// is editable.
	Editable func(row, col int) bool

	Data Data

	// Clipboard receives copy exports. Formats defaults to
	// clipboard.DefaultFormats().
	Clipboard clipboard.Writer
	Formats   []clipboard.Format

	ColumnWidths   []int
	MinColumnWidth int
	MaxColumnWidth int
}

// DefaultConfig returns a config with selection enabled and no data.
func DefaultConfig() Config {
	return Config{
		ID:             "grid",
		AllowSelection: true,
		Data:           Rows(nil),
		Formats:        clipboard.DefaultFormats(),
		MinColumnWidth: 3,
		MaxColumnWidth: 80,
	}
}

// Controller is the per-grid selection/editing state machine.
// It is not safe for concurrent use; drive it from one update loop.
type Controller struct {
	cfg    Config
	state  selection.State
	widths []int
	broker *pubsub.Broker[Event]
}

var _ Handle = (*Controller)(nil)

// New creates a controller with an empty selection state.
func New(cfg Config) *Controller {
	if cfg.ID == "" {
		cfg.ID = "grid"
	}
	if cfg.Data == nil {
		cfg.Data = Rows(nil)
	}
	if cfg.Formats == nil {
		cfg.Formats = clipboard.DefaultFormats()
	}
	if cfg.MinColumnWidth <= 0 {
		cfg.MinColumnWidth = 1
	}
	return &Controller{
		cfg:    cfg,
		widths: slices.Clone(cfg.ColumnWidths),
		broker: pubsub.NewBroker[Event](),
	}
}

// ID returns the grid ID used in output messages.
func (c *Controller) ID() string { return c.cfg.ID }

// Close ends every observer subscription. The controller must not be used
// afterwards.
func (c *Controller) Close() {
	c.broker.Close()
}

// Subscribe returns a channel of selection events that lives until ctx is
// cancelled or the controller is closed.
func (c *Controller) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return c.broker.Subscribe(ctx)
}

// Mode derives the current state-machine state.
func (c *Controller) Mode() Mode {
	switch {
	case c.state.DraggingRows():
		return ModeDraggingRows
	case c.state.DraggingCells():
		return ModeDraggingCells
	case c.state.Editing != nil:
		return ModeEditing
	default:
		return ModeIdle
	}
}

// State returns a copy of the raw selection state.
func (c *Controller) State() selection.State {
	s := c.state
	s.SelectedRows = slices.Clone(s.SelectedRows)
	return s
}

// View returns the render-ready selection.
func (c *Controller) View() selection.Calculated {
	return selection.Calculate(c.State(), c.cfg.Data.ColumnCount())
}

// Data returns the data the controller currently bounds selections with.
func (c *Controller) Data() Data { return c.cfg.Data }

// EditingPos returns the cell being edited, if any.
func (c *Controller) EditingPos() (selection.Position, bool) {
	if c.state.Editing == nil {
		return selection.Position{}, false
	}
	return *c.state.Editing, true
}

// Editing reports whether a cell is being edited.
func (c *Controller) Editing() bool {
	return c.state.Editing != nil
}

// SelectedRows returns the committed rows, sorted and within data bounds.
func (c *Controller) SelectedRows() []int {
	rows := selection.SanitizeRows(c.state.SelectedRows, c.cfg.Data.RowCount())
	if rows == nil {
		return []int{}
	}
	return rows
}

// SelectedCells returns the committed cell rectangle, or nil.
func (c *Controller) SelectedCells() *selection.CellRange {
	if c.state.SelectedCells == nil {
		return nil
	}
	r := selection.NormalizeCells(*c.state.SelectedCells)
	return &r
}

// ClearSelection drops every selection key.
func (c *Controller) ClearSelection() {
	c.state.Clear()
}

// EndEditing leaves edit mode without notifying the host.
func (c *Controller) EndEditing() {
	c.state.Editing = nil
}

// ColumnWidth returns the configured width of a column, or 0 if unset.
func (c *Controller) ColumnWidth(col int) int {
	if col < 0 || col >= len(c.widths) {
		return 0
	}
	return c.widths[col]
}

// Update applies one input message and returns the host notifications it
// produced. Messages that are not interaction inputs are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	var out []tea.Msg
	switch msg := msg.(type) {
	case PointerDown:
		out = c.pointerDown(msg)
	case PointerMove:
		c.pointerMove(msg)
	case PointerUp:
		out = c.pointerUp()
	case DoubleClick:
		out = c.doubleClick(msg)
	case Delete:
		out = c.deleteSelection()
	case Copy:
		return c.copySelection()
	case Paste:
		out = c.paste(msg)
	case ResizeColumn:
		out = c.resizeColumn(msg)
	case SetData:
		c.setData(msg)
	}
	return emit(out...)
}

func (c *Controller) pointerDown(msg PointerDown) []tea.Msg {
	if c.cfg.Contains != nil && !c.cfg.Contains(msg.Target.Node) {
		return c.pointerDownOutside()
	}
	m := msg.Target.Marker
	if m == nil {
		return nil
	}

	var out []tea.Msg
	if ed := c.state.Editing; ed != nil {
		if !m.IsRowHeader() && m.Row == ed.Row && m.Col == ed.Col {
			// Press inside the editor keeps the session.
			return nil
		}
		out = append(out, c.resolveEdit())
	}
	if !c.cfg.AllowSelection {
		return out
	}

	if m.IsRowHeader() {
		c.state.BeginRows(m.Row, msg.Shift, msg.Meta)
		log.Debug(log.CatGrid, "Row drag started", "grid", c.cfg.ID, "row", m.Row, "shift", msg.Shift, "meta", msg.Meta)
	} else {
		c.state.BeginCells(m.Position(), msg.Shift, msg.Meta)
		log.Debug(log.CatGrid, "Cell drag started", "grid", c.cfg.ID, "pos", m.Position(), "shift", msg.Shift, "meta", msg.Meta)
	}
	return out
}

func (c *Controller) pointerDownOutside() []tea.Msg {
	if c.state.Empty() {
		return nil
	}
	var out []tea.Msg
	if c.state.Editing != nil {
		out = append(out, c.resolveEdit())
	}
	c.state.Clear()
	log.Debug(log.CatGrid, "Pointer down outside grid, selection cleared", "grid", c.cfg.ID)
	return append(out, c.selectionChanged())
}

// resolveEdit ends the current edit and returns its notification.
func (c *Controller) resolveEdit() tea.Msg {
	pos := *c.state.Editing
	c.state.Editing = nil
	log.Debug(log.CatGrid, "Editing ended", "grid", c.cfg.ID, "pos", pos)
	c.broker.Publish(pubsub.EditingEndedEvent, Event{GridID: c.cfg.ID, Editing: &pos})
	return EndEditingMsg{GridID: c.cfg.ID, Pos: pos}
}

func (c *Controller) pointerMove(msg PointerMove) {
	m := msg.Target.Marker
	if !msg.Held || m == nil {
		return
	}
	switch c.Mode() {
	case ModeDraggingRows:
		c.state.ExtendRows(m.Row)
	case ModeDraggingCells:
		c.state.ExtendCells(selection.Position{Row: m.Row, Col: max(m.Col, 0)})
	}
}

func (c *Controller) pointerUp() []tea.Msg {
	if !c.state.DraggingRows() && !c.state.DraggingCells() {
		return nil
	}
	c.state.Commit()
	log.Debug(log.CatGrid, "Selection committed", "grid", c.cfg.ID,
		"rows", len(c.state.SelectedRows), "cells", c.state.SelectedCells != nil)
	return []tea.Msg{c.selectionChanged()}
}

// selectionChanged snapshots the committed selection into a deferred
// notification.
func (c *Controller) selectionChanged() tea.Msg {
	ev := Event{GridID: c.cfg.ID, Rows: c.SelectedRows(), Cells: c.SelectedCells()}
	c.broker.Publish(pubsub.SelectionChangedEvent, ev)
	return SelectionChangedMsg{GridID: ev.GridID, Rows: ev.Rows, Cells: ev.Cells}
}

func (c *Controller) doubleClick(msg DoubleClick) []tea.Msg {
	m := msg.Target.Marker
	if m == nil || m.IsRowHeader() {
		return nil
	}
	if c.cfg.Contains != nil && !c.cfg.Contains(msg.Target.Node) {
		return nil
	}
	if c.cfg.Editable == nil || !c.cfg.Editable(m.Row, m.Col) {
		return nil
	}

	var out []tea.Msg
	if ed := c.state.Editing; ed != nil {
		if ed.Row == m.Row && ed.Col == m.Col {
			return nil
		}
		out = append(out, c.resolveEdit())
	}
	pos := m.Position()
	c.state.SelectStart, c.state.SelectEnd, c.state.SelectRows = nil, nil, nil
	c.state.Editing = &pos
	log.Debug(log.CatGrid, "Editing started", "grid", c.cfg.ID, "pos", pos)
	c.broker.Publish(pubsub.EditingStartedEvent, Event{GridID: c.cfg.ID, Editing: &pos})
	return append(out, StartEditingMsg{GridID: c.cfg.ID, Pos: pos})
}

// cellRange returns the committed cell range clamped to the data.
func (c *Controller) cellRange() (selection.CellRange, bool) {
	if c.state.SelectedCells == nil {
		return selection.CellRange{}, false
	}
	return selection.ClampCells(*c.state.SelectedCells, c.cfg.Data.RowCount(), c.cfg.Data.ColumnCount())
}

func (c *Controller) deleteSelection() []tea.Msg {
	if c.state.Editing != nil {
		return nil
	}
	// Cells are cleared before rows are deleted: a row delete shifts the
	// indices the cell range refers to.
	var out []tea.Msg
	if r, ok := c.cellRange(); ok {
		out = append(out, DeleteCellsMsg{GridID: c.cfg.ID, Range: r})
	}
	if rows := c.SelectedRows(); len(rows) > 0 {
		if len(rows) != len(c.state.SelectedRows) {
			log.Debug(log.CatGrid, "Dropped stale rows before delete", "grid", c.cfg.ID,
				"selected", len(c.state.SelectedRows), "kept", len(rows))
		}
		out = append(out, DeleteRowsMsg{GridID: c.cfg.ID, Rows: rows})
	}
	return out
}

func (c *Controller) copySelection() tea.Cmd {
	if c.cfg.Clipboard == nil {
		log.Warn(log.CatClipboard, "Copy requested without a clipboard", "grid", c.cfg.ID)
		return nil
	}
	w, formats, id := c.cfg.Clipboard, c.cfg.Formats, c.cfg.ID

	if rows := c.SelectedRows(); len(rows) > 0 {
		cols := c.cfg.Data.ColumnCount()
		m := make(clipboard.Matrix, 0, len(rows))
		for _, r := range rows {
			m = append(m, c.rowValues(r, 0, cols-1))
		}
		return func() tea.Msg {
			res, err := clipboard.Export(context.Background(), w, m, formats)
			return CopyRowsMsg{GridID: id, Rows: rows, Result: res, Err: err}
		}
	}

	if r, ok := c.cellRange(); ok {
		m := make(clipboard.Matrix, 0, selection.RowCount(r))
		for row := r.Start.Row; row <= r.End.Row; row++ {
			m = append(m, c.rowValues(row, r.Start.Col, r.End.Col))
		}
		return func() tea.Msg {
			res, err := clipboard.Export(context.Background(), w, m, formats)
			return CopyCellsMsg{GridID: id, Range: r, Result: res, Err: err}
		}
	}
	return nil
}

func (c *Controller) rowValues(row, from, to int) []any {
	vals := make([]any, 0, to-from+1)
	for col := from; col <= to; col++ {
		vals = append(vals, c.cfg.Data.Value(row, col))
	}
	return vals
}

func (c *Controller) paste(msg Paste) []tea.Msg {
	if c.state.Editing != nil || msg.Clipboard == nil {
		return nil
	}
	if rows := c.SelectedRows(); len(rows) > 0 {
		return []tea.Msg{PasteRowsMsg{GridID: c.cfg.ID, Rows: rows, Clipboard: msg.Clipboard}}
	}
	if c.state.SelectedCells != nil {
		r := selection.NormalizeCells(*c.state.SelectedCells)
		return []tea.Msg{PasteCellsMsg{GridID: c.cfg.ID, Range: r, Clipboard: msg.Clipboard}}
	}
	return nil
}

func (c *Controller) resizeColumn(msg ResizeColumn) []tea.Msg {
	if msg.Col < 0 {
		return nil
	}
	width := max(msg.Width, c.cfg.MinColumnWidth)
	if c.cfg.MaxColumnWidth > 0 {
		width = min(width, c.cfg.MaxColumnWidth)
	}
	if msg.Col >= len(c.widths) {
		c.widths = append(c.widths, make([]int, msg.Col-len(c.widths)+1)...)
	}
	if c.widths[msg.Col] == width {
		return nil
	}
	c.widths[msg.Col] = width
	return []tea.Msg{ColumnWidthChangedMsg{GridID: c.cfg.ID, Col: msg.Col, Width: width}}
}

func (c *Controller) setData(msg SetData) {
	if msg.Data == nil {
		msg.Data = Rows(nil)
	}
	c.cfg.Data = msg.Data
	if ed := c.state.Editing; ed != nil && (ed.Row >= msg.Data.RowCount() || ed.Col >= msg.Data.ColumnCount()) {
		c.state.Editing = nil
	}
}

// emit wraps notifications into a command. The messages are delivered in
// order once the current update returns.
func emit(msgs ...tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(msgs))
	for _, m := range msgs {
		cmds = append(cmds, func() tea.Msg { return m })
	}
	return tea.Sequence(cmds...)
}
