// Package grid provides the Bubble Tea façade of the data grid.
//
// The façade renders rows with lipgloss, marks every cell with a bubblezone
// zone, and translates mouse and key input into interaction messages for the
// grid's Controller. Everything it reports to the host arrives as tea.Msg
// values: the Controller's output messages plus EditCommittedMsg.
//
// Quick Start:
//
//	g := grid.New(grid.Config{
//	    ID:      "people",
//	    Columns: []grid.Column{{Key: "name", Header: "Name", Editable: true}},
//	    Rows:    rows,
//	}).SetSize(80, 20)
//
// The host's root View must pass its output through zone.Scan so pointer
// events can be resolved to cells.
package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/keys"
)

// DefaultDoubleClickInterval is the longest gap between two presses on the
// same cell that still counts as a double click.
const DefaultDoubleClickInterval = 400 * time.Millisecond

var (
	// ErrNoColumns is returned by ValidateConfig for a config without columns.
	ErrNoColumns = errors.New("grid config: at least one column is required")

	// ErrInvalidJSON is the validation error of JSON columns.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// Column defines a single grid column.
type Column struct {
	Key    string // Unique identifier
	Header string // Header text; defaults to Key
	Width  int    // Initial width (0 = fit content)
	Align  lipgloss.Position

	// Editable allows double click or enter to open the cell editor.
	Editable bool

	// JSON marks the column as holding JSON text; edits must parse.
	JSON bool

	// Validate checks an edited value before it is committed. It runs on
	// every keystroke so the editor can show the error state.
	Validate func(string) error
}

// Config defines the complete grid configuration.
type Config struct {
	ID      string // Tags every output message; defaults to "grid"
	Title   string // Shown in the top border
	Columns []Column
	Rows    [][]any

	// AllowSelection enables pointer selection.
	AllowSelection bool

	// StartRowNumber is the number shown in the gutter for the first row.
	StartRowNumber int

	// Editable overrides Column.Editable when set.
	Editable func(row, col int) bool

	MinColumnWidth int
	MaxColumnWidth int

	// HighlightColor is the background of selected cells. Nil uses the
	// theme's selection background.
	HighlightColor lipgloss.TerminalColor

	// Clipboard receives copy exports in Formats. Paste reads from
	// PasteSource, falling back to Clipboard when it can also read.
	Clipboard   clipboard.Writer
	PasteSource clipboard.Reader
	Formats     []clipboard.Format

	Keys                keys.GridKeyMap
	DoubleClickInterval time.Duration
}

// DefaultConfig returns a config with selection enabled and the default
// keymap.
func DefaultConfig() Config {
	return Config{
		ID:                  "grid",
		AllowSelection:      true,
		StartRowNumber:      1,
		MinColumnWidth:      3,
		MaxColumnWidth:      40,
		Formats:             clipboard.DefaultFormats(),
		Keys:                keys.Grid,
		DoubleClickInterval: DefaultDoubleClickInterval,
	}
}

// ValidateConfig validates the grid configuration.
// Returns an error if Columns is empty or two columns share a key.
func ValidateConfig(cfg Config) error {
	if len(cfg.Columns) == 0 {
		return ErrNoColumns
	}
	seen := make(map[string]int, len(cfg.Columns))
	for i, col := range cfg.Columns {
		if col.Key == "" {
			continue
		}
		if j, ok := seen[col.Key]; ok {
			return fmt.Errorf("grid config: columns %d and %d share key %q", j, i, col.Key)
		}
		seen[col.Key] = i
	}
	if cfg.MaxColumnWidth > 0 && cfg.MinColumnWidth > cfg.MaxColumnWidth {
		return fmt.Errorf("grid config: min column width %d exceeds max %d", cfg.MinColumnWidth, cfg.MaxColumnWidth)
	}
	return nil
}

// validator returns the edit validator of a column, or nil.
func (c Column) validator() func(string) error {
	if c.JSON {
		custom := c.Validate
		return func(s string) error {
			if s != "" && !gjson.Valid(s) {
				return ErrInvalidJSON
			}
			if custom != nil {
				return custom(s)
			}
			return nil
		}
	}
	return c.Validate
}

func (c Column) header() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Key
}
