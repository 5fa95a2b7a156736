package selection

// State is the mutable selection value of one grid instance.
//
// Transient fields describe a drag in progress; committed fields survive a
// pointer release. Only the interaction controller writes to it.
type State struct {
	// Transient cell-drag endpoints. Both set or both nil.
	SelectStart *Position
	SelectEnd   *Position

	// Transient row-drag interval.
	SelectRows *RowRange

	// Committed selection.
	SelectedCells *CellRange
	SelectedRows  []int

	// Modifiers captured when the current drag started.
	Shift bool
	Meta  bool

	Editing *Position
}

// DraggingCells reports whether a cell drag is in progress.
func (s State) DraggingCells() bool {
	return s.SelectStart != nil && s.SelectEnd != nil
}

// DraggingRows reports whether a row drag is in progress.
func (s State) DraggingRows() bool {
	return s.SelectRows != nil
}

// HasSelection reports whether any transient or committed selection exists.
func (s State) HasSelection() bool {
	return s.DraggingCells() || s.DraggingRows() ||
		s.SelectedCells != nil || len(s.SelectedRows) > 0
}

// Empty reports whether the state holds no selection and no edit.
func (s State) Empty() bool {
	return !s.HasSelection() && s.Editing == nil
}

// BeginRows starts a row drag and clears any transient cell drag.
func (s *State) BeginRows(row int, shift, meta bool) {
	s.SelectStart, s.SelectEnd = nil, nil
	s.SelectRows = &RowRange{Start: row, End: row}
	s.Shift, s.Meta = shift, meta
}

// BeginCells starts a cell drag and clears any transient row drag.
func (s *State) BeginCells(p Position, shift, meta bool) {
	s.SelectRows = nil
	start, end := p, p
	s.SelectStart, s.SelectEnd = &start, &end
	s.Shift, s.Meta = shift, meta
}

// ExtendRows moves the end of the transient row interval.
// Returns true when the state changed.
func (s *State) ExtendRows(row int) bool {
	if s.SelectRows == nil || s.SelectRows.End == row {
		return false
	}
	s.SelectRows.End = row
	return true
}

// ExtendCells moves the end of the transient cell drag.
// Returns true when the state changed.
func (s *State) ExtendCells(p Position) bool {
	if s.SelectEnd == nil || *s.SelectEnd == p {
		return false
	}
	end := p
	s.SelectEnd = &end
	return true
}

// Commit folds the transient drag into the committed selection using the
// calculator's modifier rule and clears every transient key.
//
// An unmodified commit of one mode drops the committed selection of the
// other mode so a plain click never leaves stale rows or cells behind.
func (s *State) Commit() {
	calc := Calculate(*s, 0)
	plain := !s.Shift && !s.Meta
	switch {
	case s.DraggingRows():
		s.SelectedRows = calc.SelectingRows
		if plain {
			s.SelectedCells = nil
		}
	case s.DraggingCells():
		s.SelectedCells = calc.SelectingCells
		if plain {
			s.SelectedRows = nil
		}
	}
	s.SelectStart, s.SelectEnd, s.SelectRows = nil, nil, nil
}

// Clear removes every selection key, transient and committed.
func (s *State) Clear() {
	s.SelectStart, s.SelectEnd, s.SelectRows = nil, nil, nil
	s.SelectedCells = nil
	s.SelectedRows = []int{}
	s.Shift, s.Meta = false, false
}
