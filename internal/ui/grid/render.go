package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/selection"
	"github.com/zjrosen/gridcore/internal/ui/styles"
)

// sampleRows bounds how many rows initialWidths inspects per column.
const sampleRows = 200

func cellZoneID(prefix string, row, col int) string {
	return prefix + "r" + strconv.Itoa(row) + "c" + strconv.Itoa(col)
}

func gutterZoneID(prefix string, row int) string {
	return prefix + "r" + strconv.Itoa(row) + "g"
}

// initialWidths sizes each column to its fixed width or to its content.
func initialWidths(cfg Config) []int {
	widths := make([]int, len(cfg.Columns))
	for i, col := range cfg.Columns {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		w := runewidth.StringWidth(col.header())
		for r := 0; r < len(cfg.Rows) && r < sampleRows; r++ {
			if i < len(cfg.Rows[r]) {
				w = max(w, runewidth.StringWidth(clipboard.FormatValue(cfg.Rows[r][i])))
			}
		}
		widths[i] = min(max(w, cfg.MinColumnWidth), cfg.MaxColumnWidth)
	}
	return widths
}

// bodyHeight is the number of data rows that fit inside the frame.
func (m Model) bodyHeight() int {
	return max(m.height-3, 0) // top border, header, bottom border
}

func (m Model) clampYOffset(offset int) int {
	maxOffset := max(len(m.cfg.Rows)-m.bodyHeight(), 0)
	return min(max(offset, 0), maxOffset)
}

// visibleRows returns the half-open interval of rendered rows.
func (m Model) visibleRows() (int, int) {
	first := m.yOffset
	return first, min(first+m.bodyHeight(), len(m.cfg.Rows))
}

func (m Model) gutterWidth() int {
	last := m.cfg.StartRowNumber + max(len(m.cfg.Rows)-1, 0)
	return max(len(strconv.Itoa(last)), 1)
}

// visibleColumns returns the columns that fit the frame width. The first
// column is always shown.
func (m Model) visibleColumns() []int {
	inner := m.width - 2
	used := m.gutterWidth() + 1 // gutter plus trailing separator
	var cols []int
	for col := range m.cfg.Columns {
		w := m.ColumnWidth(col)
		if len(cols) > 0 && used+1+w > inner {
			break
		}
		used += 1 + w
		cols = append(cols, col)
	}
	return cols
}

// View renders the grid. The output carries zone markers; the host must
// pass its final view through zone.Scan.
func (m Model) View() string {
	if m.width <= 2 || m.height <= 2 {
		return ""
	}
	innerWidth := m.width - 2

	calc := m.ctrl.View()
	cols := m.visibleColumns()
	widths := make([]int, len(cols))
	used := m.gutterWidth() + 1
	for i, col := range cols {
		widths[i] = m.ColumnWidth(col)
		if i == len(cols)-1 {
			// Clip a column that alone is wider than the frame.
			widths[i] = max(min(widths[i], innerWidth-used-1), 1)
		}
		used += 1 + widths[i]
	}

	var content string
	if len(m.cfg.Rows) == 0 {
		content = renderEmptyState("No rows", innerWidth, m.height-2)
	} else {
		lines := []string{m.renderHeader(cols, widths)}
		first, last := m.visibleRows()
		for row := first; row < last; row++ {
			lines = append(lines, m.renderRow(calc, row, cols, widths))
		}
		content = strings.Join(lines, "\n")
	}

	framed := styles.RenderFrame(styles.FrameConfig{
		Content:     content,
		Width:       m.width,
		Height:      m.height,
		Title:       m.cfg.Title,
		Status:      m.status(calc),
		Highlighted: calc.Bounds != nil,
	})
	return zone.Mark(m.ContainerZoneID(), framed)
}

func (m Model) renderHeader(cols, widths []int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", m.gutterWidth()))
	for i, col := range cols {
		c := m.cfg.Columns[col]
		b.WriteString(" ")
		b.WriteString(styles.HeaderStyle.Render(styles.FitCell(c.header(), widths[i], c.Align)))
	}
	return b.String()
}

func (m Model) renderRow(calc selection.Calculated, row int, cols, widths []int) string {
	var b strings.Builder

	num := styles.FitCell(strconv.Itoa(m.cfg.StartRowNumber+row), m.gutterWidth(), lipgloss.Right)
	gutter := styles.GutterStyle
	if calc.IsRowSelected(row) {
		gutter = styles.GutterSelectedStyle
	}
	b.WriteString(zone.Mark(gutterZoneID(m.prefix, row), gutter.Render(num)))

	for i, col := range cols {
		edges := calc.Edges(row, col)
		leftEdge := edges.Left || (i > 0 && calc.Edges(row, cols[i-1]).Right)
		b.WriteString(separator(leftEdge))
		b.WriteString(zone.Mark(cellZoneID(m.prefix, row, col), m.renderCell(calc, row, col, widths[i], edges)))
	}
	if len(cols) > 0 {
		b.WriteString(separator(calc.Edges(row, cols[len(cols)-1]).Right))
	}
	return b.String()
}

func separator(edge bool) string {
	if edge {
		return styles.EdgeStyle.Render("│")
	}
	return " "
}

func (m Model) renderCell(calc selection.Calculated, row, col, width int, edges selection.Edges) string {
	if calc.IsEditing(row, col) {
		view := styles.TruncateString(m.editor.View(), width)
		if pad := width - lipgloss.Width(view); pad > 0 {
			view += strings.Repeat(" ", pad)
		}
		style := styles.EditingCellStyle
		if m.editor.Err != nil {
			style = styles.InvalidEditStyle
		}
		return style.Render(view)
	}

	var v any
	if row < len(m.cfg.Rows) && col < len(m.cfg.Rows[row]) {
		v = m.cfg.Rows[row][col]
	}
	text := styles.FitCell(clipboard.FormatValue(v), width, m.cfg.Columns[col].Align)

	style := styles.CellStyle
	if calc.IsCellSelected(row, col) {
		style = styles.SelectedCellStyle
		if m.cfg.HighlightColor != nil {
			style = style.Background(m.cfg.HighlightColor)
		}
	}
	if edges.Bottom {
		style = style.Underline(true)
	}
	return style.Render(text)
}

func (m Model) status(calc selection.Calculated) string {
	switch {
	case calc.Editing != nil:
		if m.editor.Err != nil {
			return "invalid: " + m.editor.Err.Error()
		}
		return "editing " + calc.Editing.String()
	case len(calc.SelectingRows) > 0:
		return fmt.Sprintf("%d rows selected", len(calc.SelectingRows))
	case calc.SelectingCells != nil:
		r := *calc.SelectingCells
		return fmt.Sprintf("%d×%d cells", selection.RowCount(r), selection.ColCount(r))
	default:
		return fmt.Sprintf("%d rows", len(m.cfg.Rows))
	}
}

// renderEmptyState renders a centered muted message.
func renderEmptyState(msg string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	styled := lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render(styles.TruncateString(msg, width))
	leftPad := max((width-lipgloss.Width(styled))/2, 0)

	lines := make([]string, height)
	lines[max((height-1)/2, 0)] = strings.Repeat(" ", leftPad) + styled
	return strings.Join(lines, "\n")
}
