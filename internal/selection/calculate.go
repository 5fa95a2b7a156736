package selection

import "slices"

// Calculated is the render-ready view of a State.
type Calculated struct {
	State

	// SelectingRows is the row selection the grid should display, sorted.
	SelectingRows []int

	// SelectingCells is the cell rectangle the grid should display.
	SelectingCells *CellRange

	// Bounds encloses every active range and drives border emphasis.
	Bounds *CellRange
}

// Calculate derives the displayed selection from s.
//
// Shift is checked before meta. Shift unions the transient range with the
// committed one, meta toggles rows (symmetric difference) and unions cells,
// no modifier lets the transient range replace the committed one. Rows in
// Bounds span [0, columns); pass columns <= 0 to leave rows out of Bounds.
func Calculate(s State, columns int) Calculated {
	out := Calculated{State: s}

	committedRows := sortedSet(s.SelectedRows)
	var transientRows []int
	if s.SelectRows != nil {
		transientRows = ExpandRows(*s.SelectRows)
	}

	var committedCells, transientCells *CellRange
	if s.SelectedCells != nil {
		n := NormalizeCells(*s.SelectedCells)
		committedCells = &n
	}
	if s.DraggingCells() {
		n := CellsBetween(*s.SelectStart, *s.SelectEnd)
		transientCells = &n
	}

	switch {
	case s.SelectRows == nil:
		out.SelectingRows = committedRows
	case s.Shift:
		out.SelectingRows = UnionRows(committedRows, transientRows)
	case s.Meta:
		out.SelectingRows = SymmetricDifference(committedRows, transientRows)
	default:
		out.SelectingRows = transientRows
	}

	switch {
	case transientCells == nil:
		out.SelectingCells = committedCells
	case s.Shift || s.Meta:
		// A 2-D toggle has no rectangle result, so meta unions like shift.
		out.SelectingCells = BoundingBox(committedCells, transientCells)
	default:
		out.SelectingCells = transientCells
	}

	active := []*CellRange{out.SelectingCells}
	if columns > 0 {
		for _, run := range RowRuns(out.SelectingRows) {
			active = append(active, &CellRange{
				Start: Position{Row: run.Start, Col: 0},
				End:   Position{Row: run.End, Col: columns - 1},
			})
		}
	}
	out.Bounds = BoundingBox(active...)

	return out
}

// IsRowSelected reports whether the whole row is selected.
func (c Calculated) IsRowSelected(row int) bool {
	_, ok := slices.BinarySearch(c.SelectingRows, row)
	return ok
}

// IsCellSelected reports whether the cell is selected, either through its
// row or through the cell rectangle.
func (c Calculated) IsCellSelected(row, col int) bool {
	if c.IsRowSelected(row) {
		return true
	}
	return c.SelectingCells != nil && ContainsCell(*c.SelectingCells, Position{Row: row, Col: col})
}

// IsEditing reports whether the cell is the one being edited.
func (c Calculated) IsEditing(row, col int) bool {
	return c.Editing != nil && c.Editing.Row == row && c.Editing.Col == col
}

// Edges tells which sides of the emphasis rectangle a cell sits on.
type Edges struct {
	Top, Bottom, Left, Right bool
}

// Any reports whether the cell sits on at least one edge.
func (e Edges) Any() bool {
	return e.Top || e.Bottom || e.Left || e.Right
}

// Edges returns the sides of Bounds that pass along the given cell.
func (c Calculated) Edges(row, col int) Edges {
	if c.Bounds == nil || !ContainsCell(*c.Bounds, Position{Row: row, Col: col}) {
		return Edges{}
	}
	b := *c.Bounds
	return Edges{
		Top:    row == b.Start.Row,
		Bottom: row == b.End.Row,
		Left:   col == b.Start.Col,
		Right:  col == b.End.Col,
	}
}
