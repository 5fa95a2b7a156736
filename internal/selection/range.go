// Package selection holds the per-grid selection state and the pure calculator
// that turns it into a render-ready view.
//
// Everything in this package is a value type or a pure function. The
// interaction package owns a State and mutates it; the grid façade only reads
// the Calculated result.
package selection

import "fmt"

// Position is a zero-based grid coordinate.
type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Range is a generic inclusive bound, e.g. a row interval or a cell rectangle.
type Range[T any] struct {
	Start T
	End   T
}

// RowRange is an inclusive interval of row indices.
type RowRange = Range[int]

// CellRange is an inclusive rectangle of cells.
type CellRange = Range[Position]

// NormalizeRows orders an interval so Start <= End.
func NormalizeRows(r RowRange) RowRange {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

// NormalizeCells orders a rectangle so Start is the top-left corner and End
// the bottom-right one.
func NormalizeCells(r CellRange) CellRange {
	return CellRange{
		Start: Position{Row: min(r.Start.Row, r.End.Row), Col: min(r.Start.Col, r.End.Col)},
		End:   Position{Row: max(r.Start.Row, r.End.Row), Col: max(r.Start.Col, r.End.Col)},
	}
}

// CellsBetween returns the normalized rectangle spanned by two drag endpoints.
func CellsBetween(a, b Position) CellRange {
	return NormalizeCells(CellRange{Start: a, End: b})
}

// BoundingBox returns the smallest normalized rectangle enclosing every
// non-nil range. Returns nil when no range is given.
func BoundingBox(ranges ...*CellRange) *CellRange {
	var out *CellRange
	for _, r := range ranges {
		if r == nil {
			continue
		}
		n := NormalizeCells(*r)
		if out == nil {
			out = &n
			continue
		}
		out.Start.Row = min(out.Start.Row, n.Start.Row)
		out.Start.Col = min(out.Start.Col, n.Start.Col)
		out.End.Row = max(out.End.Row, n.End.Row)
		out.End.Col = max(out.End.Col, n.End.Col)
	}
	return out
}

// ContainsCell reports whether p lies inside the normalized rectangle r.
func ContainsCell(r CellRange, p Position) bool {
	n := NormalizeCells(r)
	return p.Row >= n.Start.Row && p.Row <= n.End.Row &&
		p.Col >= n.Start.Col && p.Col <= n.End.Col
}

// RowCount returns the number of rows the rectangle spans.
func RowCount(r CellRange) int {
	n := NormalizeCells(r)
	return n.End.Row - n.Start.Row + 1
}

// ColCount returns the number of columns the rectangle spans.
func ColCount(r CellRange) int {
	n := NormalizeCells(r)
	return n.End.Col - n.Start.Col + 1
}

// ClampCells intersects the rectangle with a rows×cols grid.
// Returns false when nothing of the rectangle is inside the grid.
func ClampCells(r CellRange, rows, cols int) (CellRange, bool) {
	n := NormalizeCells(r)
	if rows <= 0 || cols <= 0 {
		return CellRange{}, false
	}
	n.Start.Row = max(n.Start.Row, 0)
	n.Start.Col = max(n.Start.Col, 0)
	n.End.Row = min(n.End.Row, rows-1)
	n.End.Col = min(n.End.Col, cols-1)
	if n.Start.Row > n.End.Row || n.Start.Col > n.End.Col {
		return CellRange{}, false
	}
	return n, true
}
