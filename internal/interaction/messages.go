package interaction

import (
	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/selection"
)

// RowHeader is the column of the row-number gutter.
const RowHeader = -1

// Marker identifies the grid cell under a pointer.
type Marker struct {
	Row int
	Col int
}

// IsRowHeader reports whether the marker points at the row-number gutter.
func (m Marker) IsRowHeader() bool {
	return m.Col == RowHeader
}

// Position converts the marker to a cell position.
func (m Marker) Position() selection.Position {
	return selection.Position{Row: m.Row, Col: m.Col}
}

// Target is the element a pointer event landed on. Node is opaque to the
// controller and only handed to Config.Contains; Marker is nil when the
// element is not a grid cell.
type Target struct {
	Node   any
	Marker *Marker
}

// CellTarget builds a target for a data cell.
func CellTarget(node any, row, col int) Target {
	return Target{Node: node, Marker: &Marker{Row: row, Col: col}}
}

// RowTarget builds a target for a row-number gutter cell.
func RowTarget(node any, row int) Target {
	return Target{Node: node, Marker: &Marker{Row: row, Col: RowHeader}}
}

// Msg is the closed set of inputs the controller understands.
type Msg interface {
	interactionMsg()
}

// PointerDown is a primary-button press.
type PointerDown struct {
	Target Target
	Shift  bool
	Meta   bool
}

// PointerMove is pointer motion. Held reports whether the primary button was
// still down when the event fired.
type PointerMove struct {
	Target Target
	Held   bool
}

// PointerUp is a primary-button release.
type PointerUp struct{}

// DoubleClick is a second press on the same target within the double-click
// interval.
type DoubleClick struct {
	Target Target
}

// Delete is the Delete/Backspace key.
type Delete struct{}

// Copy is the copy shortcut.
type Copy struct{}

// Paste is the paste shortcut with the raw clipboard handle.
type Paste struct {
	Clipboard clipboard.Reader
}

// ResizeColumn requests a new width for a column.
type ResizeColumn struct {
	Col   int
	Width int
}

// SetData replaces the data the grid shows.
type SetData struct {
	Data Data
}

func (PointerDown) interactionMsg()  {}
func (PointerMove) interactionMsg()  {}
func (PointerUp) interactionMsg()    {}
func (DoubleClick) interactionMsg()  {}
func (Delete) interactionMsg()       {}
func (Copy) interactionMsg()         {}
func (Paste) interactionMsg()        {}
func (ResizeColumn) interactionMsg() {}
func (SetData) interactionMsg()      {}

// Output messages. Each carries the ID of the grid that produced it so a host
// with several grids can route them.

// SelectionChangedMsg fires after a selection commit has settled.
type SelectionChangedMsg struct {
	GridID string
	Rows   []int
	Cells  *selection.CellRange
}

// DeleteRowsMsg asks the host to delete rows. Rows is sorted, de-duplicated
// and within the data bounds.
type DeleteRowsMsg struct {
	GridID string
	Rows   []int
}

// DeleteCellsMsg asks the host to clear a cell rectangle.
type DeleteCellsMsg struct {
	GridID string
	Range  selection.CellRange
}

// CopyRowsMsg reports a finished row export.
type CopyRowsMsg struct {
	GridID string
	Rows   []int
	Result clipboard.Result
	Err    error
}

// CopyCellsMsg reports a finished cell export.
type CopyCellsMsg struct {
	GridID string
	Range  selection.CellRange
	Result clipboard.Result
	Err    error
}

// PasteRowsMsg hands the raw clipboard to the host for a row paste.
type PasteRowsMsg struct {
	GridID    string
	Rows      []int
	Clipboard clipboard.Reader
}

// PasteCellsMsg hands the raw clipboard to the host for a cell paste.
type PasteCellsMsg struct {
	GridID    string
	Range     selection.CellRange
	Clipboard clipboard.Reader
}

// StartEditingMsg reports that a cell entered edit mode.
type StartEditingMsg struct {
	GridID string
	Pos    selection.Position
}

// EndEditingMsg reports that the edit of a cell ended.
type EndEditingMsg struct {
	GridID string
	Pos    selection.Position
}

// ColumnWidthChangedMsg reports a column resize.
type ColumnWidthChangedMsg struct {
	GridID string
	Col    int
	Width  int
}
