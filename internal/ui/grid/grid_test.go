package grid

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/interaction"
	"github.com/zjrosen/gridcore/internal/selection"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

func testRows() [][]any {
	return [][]any{
		{"ada", int64(36), `{"lang":"en"}`},
		{"grace", int64(45), `{"lang":"en"}`},
		{"linus", int64(28), `{}`},
	}
}

func newTestGrid(t *testing.T, mutate ...func(*Config)) Model {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ID = "people"
	cfg.Title = "people"
	cfg.Columns = []Column{
		{Key: "name", Header: "Name", Editable: true},
		{Key: "age", Header: "Age", Align: lipgloss.Right},
		{Key: "meta", Header: "Meta", Editable: true, JSON: true},
	}
	cfg.Rows = testRows()
	cfg.Clipboard = clipboard.NewMemory()
	for _, fn := range mutate {
		fn(&cfg)
	}
	m := New(cfg).SetSize(60, 10)
	t.Cleanup(m.Close)
	return m
}

// sequenced unpacks the unexported message of a tea.Sequence command.
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

// run executes a command and flattens batches and sequences.
func run(cmd tea.Cmd) []tea.Msg {
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
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// zoneAt renders m and waits for the zone to be registered.
func zoneAt(t *testing.T, m Model, id string) *zone.ZoneInfo {
	t.Helper()
	var z *zone.ZoneInfo
	for retries := 0; retries < 20; retries++ {
		zone.Scan(m.View())
		z = zone.Get(id)
		if z != nil && !z.IsZero() {
			return z
		}
		// Zone registration is asynchronous via a channel worker in bubblezone.
		time.Sleep(time.Millisecond)
	}
	require.FailNow(t, "zone not registered", id)
	return nil
}

func mouse(z *zone.ZoneInfo, action tea.MouseAction, button tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: z.StartX, Y: z.StartY, Action: action, Button: button}
}

func press(m Model, z *zone.ZoneInfo) (Model, []tea.Msg) {
	m, cmd := m.Update(mouse(z, tea.MouseActionPress, tea.MouseButtonLeft))
	return m, run(cmd)
}

func release(m Model) (Model, []tea.Msg) {
	m, cmd := m.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	return m, run(cmd)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestValidateConfig(t *testing.T) {
	require.ErrorIs(t, ValidateConfig(Config{}), ErrNoColumns)
	require.Error(t, ValidateConfig(Config{Columns: []Column{{Key: "a"}, {Key: "a"}}}))
	require.Error(t, ValidateConfig(Config{Columns: []Column{{Key: "a"}}, MinColumnWidth: 10, MaxColumnWidth: 5}))
	require.NoError(t, ValidateConfig(Config{Columns: []Column{{Key: "a"}, {Key: "b"}}}))
	require.Panics(t, func() { New(Config{}) })
}

func TestZoneIDs(t *testing.T) {
	m := newTestGrid(t)
	require.True(t, strings.HasSuffix(m.CellZoneID(2, 1), "r2c1"))
	require.True(t, strings.HasSuffix(m.GutterZoneID(2), "r2g"))
	require.NotEqual(t, m.CellZoneID(0, 0), newTestGrid(t).CellZoneID(0, 0), "prefixes are per grid")
}

func TestView_RendersHeaderRowsAndNumbers(t *testing.T) {
	m := newTestGrid(t, func(c *Config) { c.StartRowNumber = 10 })
	out := ansi.Strip(zone.Scan(m.View()))
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 10)
	require.Contains(t, lines[0], "people")
	require.Contains(t, lines[1], "Name")
	require.Contains(t, lines[1], "Meta")
	require.Contains(t, lines[2], "10 ada")
	require.Contains(t, lines[4], "12 linus")
	require.Contains(t, lines[9], "3 rows")
	for _, l := range lines {
		require.Equal(t, 60, ansi.StringWidth(l))
	}
}

func TestView_EmptyAndTiny(t *testing.T) {
	m := newTestGrid(t, func(c *Config) { c.Rows = nil })
	require.Contains(t, ansi.Strip(zone.Scan(m.View())), "No rows")
	require.Empty(t, m.SetSize(2, 2).View())
}

func TestView_NarrowFrameHidesColumns(t *testing.T) {
	m := newTestGrid(t).SetSize(12, 6)
	require.Equal(t, []int{0}, m.visibleColumns())
	out := ansi.Strip(zone.Scan(m.View()))
	for _, l := range strings.Split(out, "\n") {
		require.Equal(t, 12, ansi.StringWidth(l))
	}
}

func TestView_HighlightColorPerGrid(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.TrueColor)
	t.Cleanup(func() { lipgloss.SetColorProfile(prev) })

	selected := func(color string) string {
		m := newTestGrid(t, func(c *Config) {
			c.ID = "grid-" + color
			c.HighlightColor = lipgloss.Color(color)
		})
		m, _ = m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 1, 0)})
		m, _ = m.Update(interaction.PointerUp{})
		require.NotNil(t, m.Controller().SelectedCells())
		return m.View()
	}

	red, green := selected("#FF0000"), selected("#00FF00")
	require.Contains(t, red, "48;2;255;0;0")
	require.NotContains(t, red, "48;2;0;255;0")
	require.Contains(t, green, "48;2;0;255;0")
	require.NotContains(t, green, "48;2;255;0;0")
}

func TestMouse_DragSelectsCells(t *testing.T) {
	m := newTestGrid(t)

	m, _ = press(m, zoneAt(t, m, m.CellZoneID(0, 0)))
	m, _ = m.Update(mouse(zoneAt(t, m, m.CellZoneID(1, 1)), tea.MouseActionMotion, tea.MouseButtonLeft))
	m, msgs := release(m)

	changed, ok := find[interaction.SelectionChangedMsg](msgs)
	require.True(t, ok)
	require.Equal(t, "people", changed.GridID)
	require.Equal(t, &selection.CellRange{
		Start: selection.Position{Row: 0, Col: 0},
		End:   selection.Position{Row: 1, Col: 1},
	}, m.Handle().SelectedCells())

	out := ansi.Strip(zone.Scan(m.View()))
	require.Contains(t, out, "2×2 cells")
}

func TestMouse_GutterSelectsRowsWithModifiers(t *testing.T) {
	m := newTestGrid(t)

	m, _ = press(m, zoneAt(t, m, m.GutterZoneID(0)))
	m, _ = release(m)
	require.Equal(t, []int{0}, m.Handle().SelectedRows())

	z := zoneAt(t, m, m.GutterZoneID(2))
	msg := mouse(z, tea.MouseActionPress, tea.MouseButtonLeft)
	msg.Ctrl = true
	m, _ = m.Update(msg)
	m, _ = release(m)
	require.Equal(t, []int{0, 2}, m.Handle().SelectedRows())
}

func TestMouse_PressOutsideClears(t *testing.T) {
	m := newTestGrid(t)
	m, _ = press(m, zoneAt(t, m, m.GutterZoneID(1)))
	m, _ = release(m)
	require.NotEmpty(t, m.Handle().SelectedRows())

	m, cmd := m.Update(tea.MouseMsg{X: 500, Y: 500, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	_, ok := find[interaction.SelectionChangedMsg](run(cmd))
	require.True(t, ok)
	require.Empty(t, m.Handle().SelectedRows())
}

func TestMouse_DoubleClickOpensEditor(t *testing.T) {
	m := newTestGrid(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	z := zoneAt(t, m, m.CellZoneID(1, 0))
	m, _ = press(m, z)
	m, _ = release(m)
	clock = clock.Add(200 * time.Millisecond)
	m, msgs := press(m, z)

	start, ok := find[interaction.StartEditingMsg](msgs)
	require.True(t, ok)
	require.Equal(t, selection.Position{Row: 1, Col: 0}, start.Pos)
	require.True(t, m.Editing())
	require.Equal(t, "grace", m.EditorValue())

	m, _ = release(m)
	require.True(t, m.Editing(), "release after a double click keeps the editor")
}

func TestMouse_SlowSecondPressIsNotDoubleClick(t *testing.T) {
	m := newTestGrid(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	z := zoneAt(t, m, m.CellZoneID(0, 0))
	m, _ = press(m, z)
	m, _ = release(m)
	clock = clock.Add(time.Second)
	m, _ = press(m, z)
	require.False(t, m.Editing())
}

func doubleClick(m Model, row, col int) (Model, []tea.Msg) {
	m, cmd := m.Update(interaction.DoubleClick{Target: interaction.CellTarget(m.node, row, col)})
	return m, run(cmd)
}

func TestEditor_EnterCommitsValidValue(t *testing.T) {
	m := newTestGrid(t)
	m, _ = doubleClick(m, 0, 0)
	require.True(t, m.Editing())

	m, _ = m.Update(keyRunes("!"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	seq, ok := sequenced(cmd())
	require.True(t, ok, "commit and end must be sequenced")
	require.Len(t, seq, 2)
	require.Equal(t, EditCommittedMsg{GridID: "people", Pos: selection.Position{Row: 0, Col: 0}, Value: "ada!"}, seq[0]())
	require.Equal(t, interaction.EndEditingMsg{GridID: "people", Pos: selection.Position{Row: 0, Col: 0}}, seq[1]())
	require.False(t, m.Editing())

	msgs := run(cmd)

	// No second commit from the editor sync.
	count := 0
	for _, msg := range msgs {
		if _, ok := msg.(EditCommittedMsg); ok {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestEditor_InvalidJSONStaysOpen(t *testing.T) {
	m := newTestGrid(t)
	m, _ = doubleClick(m, 2, 2)
	require.Equal(t, "{}", m.EditorValue())

	m, _ = m.Update(keyRunes("x"))
	require.ErrorIs(t, m.EditorErr(), ErrInvalidJSON)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, ok := find[EditCommittedMsg](run(cmd))
	require.False(t, ok)
	require.True(t, m.Editing(), "invalid value keeps the session open")
	require.Contains(t, ansi.Strip(zone.Scan(m.View())), "invalid: invalid JSON")
}

func TestEditor_EscCancels(t *testing.T) {
	m := newTestGrid(t)
	m, _ = doubleClick(m, 0, 0)
	m, _ = m.Update(keyRunes("zzz"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	msgs := run(cmd)
	_, committed := find[EditCommittedMsg](msgs)
	require.False(t, committed)
	end, ok := find[interaction.EndEditingMsg](msgs)
	require.True(t, ok)
	require.Equal(t, selection.Position{Row: 0, Col: 0}, end.Pos)
	require.False(t, m.Editing())
}

func TestEditor_ClickAwayCommitsChangedValue(t *testing.T) {
	m := newTestGrid(t)
	m, _ = doubleClick(m, 0, 0)
	m, _ = m.Update(keyRunes("?"))

	m, cmd := m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 1, 1)})
	require.NotNil(t, cmd)
	_, ok := sequenced(cmd())
	require.True(t, ok, "commit must be sequenced ahead of the end notification")
	msgs := run(cmd)

	require.Len(t, msgs, 2)
	committed, ok := msgs[0].(EditCommittedMsg)
	require.True(t, ok, "commit comes first, got %T", msgs[0])
	require.Equal(t, "ada?", committed.Value)
	end, ok := msgs[1].(interaction.EndEditingMsg)
	require.True(t, ok, "end comes second, got %T", msgs[1])
	require.Equal(t, selection.Position{Row: 0, Col: 0}, end.Pos)
	require.False(t, m.Editing())
}

func TestEditor_ClickAwayDropsUnchangedOrInvalid(t *testing.T) {
	m := newTestGrid(t)
	m, _ = doubleClick(m, 0, 0)
	m, cmd := m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 1, 1)})
	_, ok := find[EditCommittedMsg](run(cmd))
	require.False(t, ok, "unchanged value")

	m, _ = m.Update(interaction.PointerUp{})
	m, _ = doubleClick(m, 0, 2)
	m, _ = m.Update(keyRunes("]"))
	_, cmd = m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 1, 1)})
	_, ok = find[EditCommittedMsg](run(cmd))
	require.False(t, ok, "invalid JSON")
}

func TestEditor_ReadOnlyColumn(t *testing.T) {
	m := newTestGrid(t)
	m, msgs := doubleClick(m, 0, 1)
	require.Empty(t, msgs)
	require.False(t, m.Editing())
}

func TestEditor_KeysGoToEditor(t *testing.T) {
	m := newTestGrid(t)
	m.Handle().ClearSelection()
	m, _ = m.Update(interaction.PointerDown{Target: interaction.RowTarget(m.node, 0)})
	m, _ = m.Update(interaction.PointerUp{})
	m, _ = doubleClick(m, 1, 0)

	m, cmd := m.Update(keyRunes("y"))
	_, copied := find[interaction.CopyRowsMsg](run(cmd))
	require.False(t, copied)
	require.Equal(t, "gracey", m.EditorValue())
}

func TestKeys_EnterEditsSelectedCell(t *testing.T) {
	m := newTestGrid(t)
	m, _ = m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 2, 0)})
	m, _ = m.Update(interaction.PointerUp{})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, ok := find[interaction.StartEditingMsg](run(cmd))
	require.True(t, ok)
	require.Equal(t, "linus", m.EditorValue())
}

func TestKeys_DeleteCopyPaste(t *testing.T) {
	mem := clipboard.NewMemory()
	m := newTestGrid(t, func(c *Config) { c.Clipboard = mem })
	m, _ = m.Update(interaction.PointerDown{Target: interaction.RowTarget(m.node, 2)})
	m, _ = m.Update(interaction.PointerMove{Target: interaction.RowTarget(m.node, 1), Held: true})
	m, _ = m.Update(interaction.PointerUp{})

	m, cmd := m.Update(keyRunes("y"))
	copied, ok := find[interaction.CopyRowsMsg](run(cmd))
	require.True(t, ok)
	require.NoError(t, copied.Err)
	text, err := mem.ReadText(context.Background())
	require.NoError(t, err)
	require.Equal(t, "grace\t45\t\"{\"\"lang\"\":\"\"en\"\"}\"\nlinus\t28\t{}", text)

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlV})
	paste, ok := find[interaction.PasteRowsMsg](run(cmd))
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, paste.Rows)
	require.NotNil(t, paste.Clipboard)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	del, ok := find[interaction.DeleteRowsMsg](run(cmd))
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, del.Rows)
}

func TestKeys_ResizeActiveColumn(t *testing.T) {
	m := newTestGrid(t, func(c *Config) { c.Columns[1].Width = 6 })
	m, _ = m.Update(interaction.PointerDown{Target: interaction.CellTarget(m.node, 0, 1)})
	m, _ = m.Update(interaction.PointerUp{})

	m, cmd := m.Update(keyRunes(">"))
	changed, ok := find[interaction.ColumnWidthChangedMsg](run(cmd))
	require.True(t, ok)
	require.Equal(t, interaction.ColumnWidthChangedMsg{GridID: "people", Col: 1, Width: 7}, changed)
	require.Equal(t, 7, m.ColumnWidth(1))

	m, _ = m.Update(keyRunes("<"))
	require.Equal(t, 6, m.ColumnWidth(1))
}

func TestSetRows_FiltersStaleSelection(t *testing.T) {
	m := newTestGrid(t)
	m, _ = m.Update(interaction.PointerDown{Target: interaction.RowTarget(m.node, 2)})
	m, _ = m.Update(interaction.PointerUp{})

	m = m.SetRows(testRows()[:2])
	require.Empty(t, m.Handle().SelectedRows())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDelete})
	require.Empty(t, run(cmd))
}

func TestWheelScrolls(t *testing.T) {
	rows := make([][]any, 30)
	for i := range rows {
		rows[i] = []any{"n", int64(i), "{}"}
	}
	m := newTestGrid(t, func(c *Config) { c.Rows = rows })

	m, _ = m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	m, _ = m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	first, last := m.visibleRows()
	require.Equal(t, 2, first)
	require.Equal(t, 9, last)

	for range 10 {
		m, _ = m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	}
	first, _ = m.visibleRows()
	require.Equal(t, 0, first)
}

func TestJSONValidatorChainsCustom(t *testing.T) {
	errShort := errors.New("too short")
	col := Column{JSON: true, Validate: func(s string) error {
		if len(s) < 3 {
			return errShort
		}
		return nil
	}}
	v := col.validator()
	require.ErrorIs(t, v("{"), ErrInvalidJSON)
	require.ErrorIs(t, v("{}"), errShort)
	require.NoError(t, v(`{"a":1}`))
	require.Nil(t, Column{}.validator())
}
