package interaction

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/pubsub"
	"github.com/zjrosen/gridcore/internal/selection"
)

const (
	inside  = "inside"
	outside = "outside"
)

// fiveByThree is a 5-row, 3-column dataset.
func fiveByThree() Rows {
	return Rows{
		{"a0", "b0", "c0"},
		{"a1", "b1", "c1"},
		{"a2", "b2", "c2"},
		{"a3", "b3", "c3"},
		{"a4", "b4", "c4"},
	}
}

func newTestController(t *testing.T, mutate ...func(*Config)) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ID = "test"
	cfg.Data = fiveByThree()
	cfg.Contains = func(node any) bool { return node == inside }
	cfg.Editable = func(_, col int) bool { return col != 2 }
	for _, m := range mutate {
		m(&cfg)
	}
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

// sequenced unpacks the message of a tea.Sequence command. The sequence type
// is unexported, so it is recognized as a slice of commands that is not a
// tea.BatchMsg.
func sequenced(msg tea.Msg) ([]tea.Cmd, bool) {
	if _, ok := msg.(tea.BatchMsg); ok || msg == nil {
		return nil, false
	}
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice || v.Type().Elem() != reflect.TypeOf(tea.Cmd(nil)) {
		return nil, false
	}
	cmds := make([]tea.Cmd, v.Len())
	for i := range cmds {
		cmds[i] = v.Index(i).Interface().(tea.Cmd)
	}
	return cmds, true
}

// collect runs a command and flattens batches and sequences into their
// messages. Sequences keep their order; batches carry no order guarantee.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	cmds, ok := sequenced(msg)
	if batch, isBatch := msg.(tea.BatchMsg); isBatch {
		cmds, ok = batch, true
	}
	if ok {
		var out []tea.Msg
		for _, c := range cmds {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// requireSequence asserts that cmd delivers msgs in order through tea.Sequence.
func requireSequence(t *testing.T, cmd tea.Cmd, msgs ...tea.Msg) {
	t.Helper()
	require.NotNil(t, cmd)
	cmds, ok := sequenced(cmd())
	require.True(t, ok, "notifications must be sequenced, not batched")
	require.Len(t, cmds, len(msgs))
	for i, c := range cmds {
		assert.Equal(t, msgs[i], c(), "message %d", i)
	}
}

func cell(row, col int) Target { return CellTarget(inside, row, col) }
func gutter(row int) Target    { return RowTarget(inside, row) }

func drag(c *Controller, from, to Target, shift, meta bool) []tea.Msg {
	var out []tea.Msg
	out = append(out, collect(c.Update(PointerDown{Target: from, Shift: shift, Meta: meta}))...)
	out = append(out, collect(c.Update(PointerMove{Target: to, Held: true}))...)
	return append(out, collect(c.Update(PointerUp{}))...)
}

func TestDragCells_CommitsNormalizedRange(t *testing.T) {
	c := newTestController(t)

	msgs := drag(c, cell(3, 2), cell(1, 0), false, false)

	require.NotNil(t, c.SelectedCells())
	assert.Equal(t, selection.CellRange{
		Start: selection.Position{Row: 1, Col: 0},
		End:   selection.Position{Row: 3, Col: 2},
	}, *c.SelectedCells())
	assert.Equal(t, ModeIdle, c.Mode())

	require.Len(t, msgs, 1)
	changed, ok := msgs[0].(SelectionChangedMsg)
	require.True(t, ok)
	assert.Equal(t, "test", changed.GridID)
	assert.Equal(t, c.SelectedCells(), changed.Cells)
}

func TestDragCells_ModeTransitions(t *testing.T) {
	c := newTestController(t)
	assert.Equal(t, ModeIdle, c.Mode())

	c.Update(PointerDown{Target: cell(0, 0)})
	assert.Equal(t, ModeDraggingCells, c.Mode())

	c.Update(PointerDown{Target: gutter(2)})
	assert.Equal(t, ModeDraggingRows, c.Mode(), "a new press supersedes the drag")

	c.Update(PointerUp{})
	assert.Equal(t, ModeIdle, c.Mode())
}

func TestPointerMove_IgnoredAfterRelease(t *testing.T) {
	c := newTestController(t)

	c.Update(PointerDown{Target: cell(0, 0)})
	c.Update(PointerMove{Target: cell(1, 1), Held: false})
	c.Update(PointerUp{})
	require.NotNil(t, c.SelectedCells())
	assert.Equal(t, selection.Position{Row: 0, Col: 0}, c.SelectedCells().End, "move without held button is stale")

	c.Update(PointerMove{Target: cell(4, 2), Held: true})
	assert.Equal(t, selection.Position{Row: 0, Col: 0}, c.SelectedCells().End, "move after release is dropped")
}

func TestPointerEvents_WithoutMarkerAreIgnored(t *testing.T) {
	c := newTestController(t)

	assert.Nil(t, c.Update(PointerDown{Target: Target{Node: inside}}))
	assert.Equal(t, ModeIdle, c.Mode())

	c.Update(PointerDown{Target: cell(0, 0)})
	c.Update(PointerMove{Target: Target{Node: inside}, Held: true})
	assert.Equal(t, selection.Position{Row: 0, Col: 0}, *c.State().SelectEnd)
}

func TestRowDrag_ShiftUnionsMetaToggles(t *testing.T) {
	c := newTestController(t)

	drag(c, gutter(0), gutter(2), false, false)
	assert.Equal(t, []int{0, 1, 2}, c.SelectedRows())

	drag(c, gutter(2), gutter(3), true, false)
	assert.Equal(t, []int{0, 1, 2, 3}, c.SelectedRows(), "shift: R ∪ R'")

	drag(c, gutter(1), gutter(4), false, true)
	assert.Equal(t, []int{0, 4}, c.SelectedRows(), "meta: R ⊕ R'")
}

func TestCellDrag_ClearsTransientRows(t *testing.T) {
	c := newTestController(t)

	c.Update(PointerDown{Target: gutter(1)})
	require.NotNil(t, c.State().SelectRows)

	c.Update(PointerDown{Target: cell(0, 0)})
	s := c.State()
	assert.Nil(t, s.SelectRows)
	assert.NotNil(t, s.SelectStart)
}

func TestView_ShowsTransientSelection(t *testing.T) {
	c := newTestController(t)

	c.Update(PointerDown{Target: gutter(1)})
	c.Update(PointerMove{Target: cell(3, 1), Held: true})

	v := c.View()
	assert.Equal(t, []int{1, 2, 3}, v.SelectingRows)
	assert.True(t, v.IsCellSelected(2, 2))
	require.NotNil(t, v.Bounds)
	assert.Equal(t, selection.Position{Row: 3, Col: 2}, v.Bounds.End)
}

func TestEditing_ClickOtherCellEndsEdit(t *testing.T) {
	c := newTestController(t)

	msgs := collect(c.Update(DoubleClick{Target: cell(1, 0)}))
	require.Len(t, msgs, 1)
	assert.Equal(t, StartEditingMsg{GridID: "test", Pos: selection.Position{Row: 1, Col: 0}}, msgs[0])
	assert.True(t, c.Editing())
	assert.Equal(t, ModeEditing, c.Mode())

	msgs = collect(c.Update(PointerDown{Target: cell(1, 1)}))
	require.Len(t, msgs, 1)
	assert.Equal(t, EndEditingMsg{GridID: "test", Pos: selection.Position{Row: 1, Col: 0}}, msgs[0])
	assert.False(t, c.Editing())

	c.Update(PointerUp{})
	assert.False(t, c.Editing(), "a plain click never starts editing")
	assert.Equal(t, selection.Position{Row: 1, Col: 1}, c.SelectedCells().Start)
}

func TestEditing_PressInsideEditorKeepsSession(t *testing.T) {
	c := newTestController(t)
	c.Update(DoubleClick{Target: cell(0, 0)})

	assert.Nil(t, c.Update(PointerDown{Target: cell(0, 0)}))
	assert.True(t, c.Editing())
}

func TestEditing_RowGutterResolvesEdit(t *testing.T) {
	c := newTestController(t)
	c.Update(DoubleClick{Target: cell(2, 1)})

	msgs := collect(c.Update(PointerDown{Target: gutter(4)}))
	require.Len(t, msgs, 1)
	assert.IsType(t, EndEditingMsg{}, msgs[0])
	assert.Equal(t, ModeDraggingRows, c.Mode())
}

func TestDoubleClick_RespectsEditability(t *testing.T) {
	c := newTestController(t)

	assert.Nil(t, c.Update(DoubleClick{Target: cell(0, 2)}), "column 2 is read-only")
	assert.Nil(t, c.Update(DoubleClick{Target: gutter(0)}))
	assert.False(t, c.Editing())

	c = newTestController(t, func(cfg *Config) { cfg.Editable = nil })
	assert.Nil(t, c.Update(DoubleClick{Target: cell(0, 0)}))
}

func TestDoubleClick_SwitchesEditedCell(t *testing.T) {
	c := newTestController(t)
	c.Update(DoubleClick{Target: cell(0, 0)})

	requireSequence(t, c.Update(DoubleClick{Target: cell(3, 1)}),
		EndEditingMsg{GridID: "test", Pos: selection.Position{Row: 0, Col: 0}},
		StartEditingMsg{GridID: "test", Pos: selection.Position{Row: 3, Col: 1}},
	)
}

func TestPointerDownOutside_ClearsEverything(t *testing.T) {
	c := newTestController(t)
	drag(c, gutter(0), gutter(1), false, false)
	c.Update(DoubleClick{Target: cell(4, 0)})

	requireSequence(t, c.Update(PointerDown{Target: Target{Node: outside}}),
		EndEditingMsg{GridID: "test", Pos: selection.Position{Row: 4, Col: 0}},
		SelectionChangedMsg{GridID: "test", Rows: []int{}},
	)
	assert.Empty(t, c.SelectedRows())
	assert.Nil(t, c.SelectedCells())
	assert.False(t, c.Editing())

	assert.Nil(t, c.Update(PointerDown{Target: Target{Node: outside}}), "nothing to clear")
}

func TestDelete_SortsAndFiltersRows(t *testing.T) {
	c := newTestController(t)
	c.state.SelectedRows = []int{3, 7, 2}

	msgs := collect(c.Update(Delete{}))
	require.Len(t, msgs, 1)
	assert.Equal(t, DeleteRowsMsg{GridID: "test", Rows: []int{2, 3}}, msgs[0])
}

func TestDelete_CellsClampedAndNeverEmpty(t *testing.T) {
	c := newTestController(t)
	assert.Nil(t, c.Update(Delete{}), "no selection, no notification")

	c.state.SelectedCells = &selection.CellRange{
		Start: selection.Position{Row: 9, Col: 9},
		End:   selection.Position{Row: 3, Col: 1},
	}
	msgs := collect(c.Update(Delete{}))
	require.Len(t, msgs, 1)
	assert.Equal(t, DeleteCellsMsg{GridID: "test", Range: selection.CellRange{
		Start: selection.Position{Row: 3, Col: 1},
		End:   selection.Position{Row: 4, Col: 2},
	}}, msgs[0])

	c.state.SelectedRows = []int{42}
	c.state.SelectedCells = nil
	assert.Nil(t, c.Update(Delete{}), "only stale rows selected")
}

func TestDelete_ClearsCellsBeforeDeletingRows(t *testing.T) {
	c := newTestController(t)
	drag(c, gutter(0), gutter(0), false, false)
	drag(c, cell(3, 1), cell(3, 1), true, false)
	require.Equal(t, []int{0}, c.SelectedRows())
	require.NotNil(t, c.SelectedCells())

	requireSequence(t, c.Update(Delete{}),
		DeleteCellsMsg{GridID: "test", Range: selection.CellRange{
			Start: selection.Position{Row: 3, Col: 1},
			End:   selection.Position{Row: 3, Col: 1},
		}},
		DeleteRowsMsg{GridID: "test", Rows: []int{0}},
	)
}

func TestDelete_IgnoredWhileEditing(t *testing.T) {
	c := newTestController(t)
	c.state.SelectedRows = []int{1}
	c.Update(DoubleClick{Target: cell(1, 0)})

	assert.Nil(t, c.Update(Delete{}))
}

func TestCopy_RowsExportFullRows(t *testing.T) {
	mem := clipboard.NewMemory()
	c := newTestController(t, func(cfg *Config) { cfg.Clipboard = mem })
	c.state.SelectedRows = []int{4, 1, 99}

	msgs := collect(c.Update(Copy{}))
	require.Len(t, msgs, 1)
	done, ok := msgs[0].(CopyRowsMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	assert.Equal(t, []int{1, 4}, done.Rows)

	text, err := mem.ReadText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a1\tb1\tc1\na4\tb4\tc4", text)
}

func TestCopy_CellsWithBrokenEncoder(t *testing.T) {
	mem := clipboard.NewMemory()
	c := newTestController(t, func(cfg *Config) {
		cfg.Clipboard = mem
		cfg.Formats = []clipboard.Format{
			{Name: "broken", Encode: func(clipboard.Matrix) (clipboard.Payload, error) {
				return nil, errors.New("boom")
			}},
			clipboard.TSV(),
		}
	})
	drag(c, cell(0, 1), cell(1, 2), false, false)

	msgs := collect(c.Update(Copy{}))
	require.Len(t, msgs, 1)
	done := msgs[0].(CopyCellsMsg)
	require.NoError(t, done.Err)
	assert.Equal(t, []string{"broken"}, done.Result.Skipped)
	assert.Equal(t, []string{clipboard.FormatTSV}, mem.Formats())

	text, _ := mem.ReadText(context.Background())
	assert.Equal(t, "b0\tc0\nb1\tc1", text)
}

func TestCopy_NothingSelectedOrNoClipboard(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.Clipboard = clipboard.NewMemory() })
	assert.Nil(t, c.Update(Copy{}))

	c = newTestController(t)
	c.state.SelectedRows = []int{0}
	assert.Nil(t, c.Update(Copy{}))
}

func TestPaste_HandsRawClipboardToHost(t *testing.T) {
	mem := clipboard.NewMemory()
	c := newTestController(t)

	assert.Nil(t, c.Update(Paste{Clipboard: mem}), "no selection")

	drag(c, cell(2, 0), cell(2, 0), false, false)
	msgs := collect(c.Update(Paste{Clipboard: mem}))
	require.Len(t, msgs, 1)
	pc := msgs[0].(PasteCellsMsg)
	assert.Same(t, mem, pc.Clipboard.(*clipboard.Memory))
	assert.Equal(t, selection.Position{Row: 2, Col: 0}, pc.Range.Start)

	drag(c, gutter(3), gutter(3), false, false)
	msgs = collect(c.Update(Paste{Clipboard: mem}))
	require.Len(t, msgs, 1)
	assert.Equal(t, []int{3}, msgs[0].(PasteRowsMsg).Rows)
}

func TestResizeColumn_ClampsAndReports(t *testing.T) {
	c := newTestController(t, func(cfg *Config) {
		cfg.ColumnWidths = []int{10, 10}
		cfg.MinColumnWidth = 4
		cfg.MaxColumnWidth = 20
	})

	msgs := collect(c.Update(ResizeColumn{Col: 1, Width: 50}))
	require.Len(t, msgs, 1)
	assert.Equal(t, ColumnWidthChangedMsg{GridID: "test", Col: 1, Width: 20}, msgs[0])
	assert.Equal(t, 20, c.ColumnWidth(1))

	assert.Nil(t, c.Update(ResizeColumn{Col: 1, Width: 25}), "same clamped width")

	msgs = collect(c.Update(ResizeColumn{Col: 3, Width: 1}))
	require.Len(t, msgs, 1)
	assert.Equal(t, 4, c.ColumnWidth(3))
}

func TestSetData_StaleRowsFilteredOnExport(t *testing.T) {
	c := newTestController(t)
	drag(c, gutter(1), gutter(4), false, false)

	c.Update(SetData{Data: fiveByThree()[:2]})
	assert.Equal(t, []int{1}, c.SelectedRows())

	msgs := collect(c.Update(Delete{}))
	assert.Equal(t, []tea.Msg{DeleteRowsMsg{GridID: "test", Rows: []int{1}}}, msgs)
}

func TestAllowSelection_Disabled(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.AllowSelection = false })

	assert.Empty(t, drag(c, cell(0, 0), cell(2, 2), false, false))
	assert.Nil(t, c.SelectedCells())

	c.Update(DoubleClick{Target: cell(0, 0)})
	assert.True(t, c.Editing(), "editing does not depend on selection")
}

func TestHandle_ClearSelectionAndEndEditing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := New(Config{Data: fiveByThree(), AllowSelection: true, Editable: func(int, int) bool { return true }})
		defer c.Close()

		steps := rapid.IntRange(0, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			row := rapid.IntRange(0, 6).Draw(rt, "row")
			col := rapid.IntRange(-1, 3).Draw(rt, "col")
			target := CellTarget(nil, row, col)
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				c.Update(PointerDown{Target: target, Shift: rapid.Bool().Draw(rt, "shift"), Meta: rapid.Bool().Draw(rt, "meta")})
			case 1:
				c.Update(PointerMove{Target: target, Held: true})
			case 2:
				c.Update(PointerUp{})
			case 3:
				c.Update(DoubleClick{Target: target})
			}
		}

		var h Handle = c
		h.ClearSelection()
		if rows := h.SelectedRows(); rows == nil || len(rows) != 0 {
			rt.Fatalf("SelectedRows after clear = %v", rows)
		}
		if h.SelectedCells() != nil {
			rt.Fatalf("SelectedCells after clear = %v", h.SelectedCells())
		}
		h.EndEditing()
		if h.Editing() {
			rt.Fatalf("still editing after EndEditing")
		}
	})
}

func TestSubscribe_ReceivesSelectionEvents(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := c.Subscribe(ctx)

	drag(c, gutter(0), gutter(1), false, false)

	select {
	case ev := <-ch:
		assert.Equal(t, pubsub.SelectionChangedEvent, ev.Type)
		assert.Equal(t, []int{0, 1}, ev.Payload.Rows)
	case <-time.After(time.Second):
		require.Fail(t, "no selection event")
	}

	c.Close()
	_, ok := <-ch
	assert.False(t, ok, "Close ends subscriptions")
}

func TestRows_Data(t *testing.T) {
	r := Rows{{1}, {1, 2, 3}}
	assert.Equal(t, 2, r.RowCount())
	assert.Equal(t, 3, r.ColumnCount())
	assert.Nil(t, r.Value(0, 2))
	assert.Equal(t, 3, r.Value(1, 2))
	assert.Nil(t, r.Value(-1, 0))
}
