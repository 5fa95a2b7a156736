package selection

import (
	"slices"
)

// ExpandRows lists every row index of the interval in ascending order.
func ExpandRows(r RowRange) []int {
	n := NormalizeRows(r)
	out := make([]int, 0, n.End-n.Start+1)
	for i := n.Start; i <= n.End; i++ {
		out = append(out, i)
	}
	return out
}

// sortedSet returns a sorted, de-duplicated copy of rows.
func sortedSet(rows []int) []int {
	out := slices.Clone(rows)
	slices.Sort(out)
	return slices.Compact(out)
}

// UnionRows returns a ∪ b, sorted and de-duplicated.
func UnionRows(a, b []int) []int {
	return sortedSet(append(slices.Clone(a), b...))
}

// SymmetricDifference returns a ⊕ b: rows present in exactly one input,
// sorted ascending.
func SymmetricDifference(a, b []int) []int {
	as, bs := sortedSet(a), sortedSet(b)
	out := make([]int, 0, len(as)+len(bs))
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		switch {
		case as[i] < bs[j]:
			out = append(out, as[i])
			i++
		case as[i] > bs[j]:
			out = append(out, bs[j])
			j++
		default:
			i++
			j++
		}
	}
	out = append(out, as[i:]...)
	return append(out, bs[j:]...)
}

// SanitizeRows sorts and de-duplicates rows and drops any index outside
// [0, limit). Stale indices left behind by a data shrink disappear here.
func SanitizeRows(rows []int, limit int) []int {
	out := sortedSet(rows)
	return slices.DeleteFunc(out, func(r int) bool {
		return r < 0 || r >= limit
	})
}

// RowRuns splits a sorted row list into contiguous intervals.
func RowRuns(rows []int) []RowRange {
	var runs []RowRange
	for _, r := range rows {
		if n := len(runs); n > 0 && runs[n-1].End+1 == r {
			runs[n-1].End = r
			continue
		}
		runs = append(runs, RowRange{Start: r, End: r})
	}
	return runs
}
