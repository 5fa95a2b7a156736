package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/selection"
)

// SQLiteStore is one table of a SQLite database. Rows are ordered by rowid;
// the rowids of the last Load map grid row indices to database rows.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	table    string
	readOnly bool

	mu      sync.Mutex
	columns []string
	rowids  []int64
}

// OpenSQLite opens a table of a SQLite database. An empty table name selects
// the first table by name.
func OpenSQLite(ctx context.Context, path, table string, readOnly bool) (*SQLiteStore, error) {
	dsn := "file:" + path
	if readOnly {
		dsn += "?mode=ro"
	}
	log.Debug(log.CatData, "Opening database", "path", path, "read_only", readOnly)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.ErrorErr(log.CatData, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatData, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	table, err = resolveTable(ctx, db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info(log.CatData, "Connected to database", "path", path, "table", table)
	return &SQLiteStore{db: db, path: path, table: table, readOnly: readOnly}, nil
}

func resolveTable(ctx context.Context, db *sql.DB, table string) (string, error) {
	var name string
	var err error
	if table == "" {
		err = db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`,
		).Scan(&name)
	} else {
		err = db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if table == "" {
			return "", errors.New("database has no tables")
		}
		return "", fmt.Errorf("table %q not found", table)
	}
	if err != nil {
		return "", fmt.Errorf("resolving table: %w", err)
	}
	return name, nil
}

func (s *SQLiteStore) Name() string { return s.table }
func (s *SQLiteStore) Path() string { return s.path }
func (s *SQLiteStore) ReadOnly() bool { return s.readOnly }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Load(ctx context.Context) (Table, error) {
	//nolint:gosec // G202: the table name is quoted, not interpolated raw
	rows, err := s.db.QueryContext(ctx, "SELECT rowid, * FROM "+quoteIdent(s.table)+" ORDER BY rowid")
	if err != nil {
		return Table{}, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return Table{}, fmt.Errorf("reading columns: %w", err)
	}
	columns := names[1:]

	var (
		ids  []int64
		data [][]any
	)
	for rows.Next() {
		var id int64
		values := make([]any, len(columns))
		dest := make([]any, len(names))
		dest[0] = &id
		for i := range values {
			dest[i+1] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return Table{}, fmt.Errorf("scanning %s: %w", s.table, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		ids = append(ids, id)
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("iterating %s: %w", s.table, err)
	}

	s.mu.Lock()
	s.columns, s.rowids = columns, ids
	s.mu.Unlock()

	log.Debug(log.CatData, "Loaded table", "table", s.table, "rows", len(data))
	return Table{Name: s.table, Columns: append([]string(nil), columns...), Rows: data}, nil
}

// snapshot returns the columns and rowids of the last Load.
func (s *SQLiteStore) snapshot() ([]string, []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columns, s.rowids
}

func (s *SQLiteStore) DeleteRows(ctx context.Context, rows []int) error {
	if s.readOnly {
		return ErrReadOnly
	}
	_, ids := s.snapshot()
	rows = selection.SanitizeRows(rows, len(ids))
	if len(rows) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt := "DELETE FROM " + quoteIdent(s.table) + " WHERE rowid = ?"
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, stmt, ids[r]); err != nil {
				return fmt.Errorf("deleting row %d: %w", r, err)
			}
		}
		log.Debug(log.CatData, "Deleted rows", "table", s.table, "rows", rows)
		return nil
	})
}

func (s *SQLiteStore) ClearCells(ctx context.Context, r selection.CellRange) error {
	if s.readOnly {
		return ErrReadOnly
	}
	columns, ids := s.snapshot()
	n, ok := selection.ClampCells(r, len(ids), len(columns))
	if !ok {
		return nil
	}

	sets := make([]string, 0, n.End.Col-n.Start.Col+1)
	for col := n.Start.Col; col <= n.End.Col; col++ {
		sets = append(sets, quoteIdent(columns[col])+" = NULL")
	}
	stmt := "UPDATE " + quoteIdent(s.table) + " SET " + strings.Join(sets, ", ") + " WHERE rowid = ?"

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for row := n.Start.Row; row <= n.End.Row; row++ {
			if _, err := tx.ExecContext(ctx, stmt, ids[row]); err != nil {
				return fmt.Errorf("clearing row %d: %w", row, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SetCell(ctx context.Context, pos selection.Position, value string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	columns, ids := s.snapshot()
	if pos.Row < 0 || pos.Row >= len(ids) || pos.Col < 0 || pos.Col >= len(columns) {
		return fmt.Errorf("set cell %s: out of range", pos)
	}
	stmt := "UPDATE " + quoteIdent(s.table) + " SET " + quoteIdent(columns[pos.Col]) + " = ? WHERE rowid = ?"
	if _, err := s.db.ExecContext(ctx, stmt, value, ids[pos.Row]); err != nil {
		return fmt.Errorf("updating %s: %w", pos, err)
	}
	return nil
}

func (s *SQLiteStore) Paste(ctx context.Context, at selection.Position, values [][]string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	columns, ids := s.snapshot()
	if at.Row < 0 || at.Col < 0 || at.Col >= len(columns) || len(values) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i, fields := range values {
			fields = fields[:min(len(fields), len(columns)-at.Col)]
			if len(fields) == 0 {
				continue
			}
			names := make([]string, len(fields))
			args := make([]any, len(fields))
			for j, v := range fields {
				names[j] = quoteIdent(columns[at.Col+j])
				args[j] = v
			}

			row := at.Row + i
			var err error
			if row < len(ids) {
				stmt := "UPDATE " + quoteIdent(s.table) + " SET " + strings.Join(names, " = ?, ") + " = ? WHERE rowid = ?"
				_, err = tx.ExecContext(ctx, stmt, append(args, ids[row])...)
			} else {
				stmt := "INSERT INTO " + quoteIdent(s.table) + " (" + strings.Join(names, ", ") +
					") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"
				_, err = tx.ExecContext(ctx, stmt, args...)
			}
			if err != nil {
				return fmt.Errorf("pasting row %d: %w", row, err)
			}
		}
		log.Debug(log.CatData, "Pasted values", "table", s.table, "at", at.String(), "rows", len(values))
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
