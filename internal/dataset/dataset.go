// Package dataset loads and edits the local tables shown by the gridcore
// host. Rows are addressed by their index in the last Load.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zjrosen/gridcore/internal/selection"
)

var (
	// ErrReadOnly is returned by every mutation of a store opened read-only.
	ErrReadOnly = errors.New("dataset: table is read-only")

	// ErrUnsupported is returned by Open for an unknown file type.
	ErrUnsupported = errors.New("dataset: unsupported file type")
)

// Table is a loaded snapshot.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Store is a local table that the host edits in response to grid messages.
type Store interface {
	// Name identifies the table in saved column widths.
	Name() string
	// Path is the file to watch for external changes.
	Path() string
	ReadOnly() bool

	Load(ctx context.Context) (Table, error)
	DeleteRows(ctx context.Context, rows []int) error
	ClearCells(ctx context.Context, r selection.CellRange) error
	SetCell(ctx context.Context, pos selection.Position, value string) error
	// Paste overwrites cells starting at a position. Values past the last
	// column are dropped and rows past the end are appended.
	Paste(ctx context.Context, at selection.Position, values [][]string) error

	Close() error
}

// Options configures Open.
type Options struct {
	// Table selects the SQLite table; defaults to the first table by name.
	Table    string
	ReadOnly bool
}

// Open opens a store by file extension: .csv and .tsv are delimited text,
// .db, .sqlite and .sqlite3 are SQLite databases.
func Open(ctx context.Context, path string, opts Options) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return OpenCSV(path, ',', opts.ReadOnly)
	case ".tsv":
		return OpenCSV(path, '\t', opts.ReadOnly)
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(ctx, path, opts.Table, opts.ReadOnly)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}
