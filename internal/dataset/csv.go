package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/selection"
)

// CSVStore is a delimited text file. The first record is the header.
// Mutations rewrite the whole file atomically.
type CSVStore struct {
	mu       sync.Mutex
	path     string
	comma    rune
	readOnly bool
	header   []string
	records  [][]string
}

// OpenCSV reads a delimited file.
func OpenCSV(path string, comma rune, readOnly bool) (*CSVStore, error) {
	s := &CSVStore{path: path, comma: comma, readOnly: readOnly}
	if err := s.read(); err != nil {
		return nil, err
	}
	log.Info(log.CatData, "Opened delimited file", "path", path, "rows", len(s.records))
	return s, nil
}

func (s *CSVStore) Name() string {
	return strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
}

func (s *CSVStore) Path() string { return s.path }
func (s *CSVStore) ReadOnly() bool { return s.readOnly }
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) read() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}

	s.header, s.records = nil, nil
	if len(records) > 0 {
		s.header = records[0]
		s.records = records[1:]
	}
	// Ragged rows are padded to the header width.
	for i, rec := range s.records {
		if len(rec) < len(s.header) {
			s.records[i] = append(rec, make([]string, len(s.header)-len(rec))...)
		}
	}
	return nil
}

// Load re-reads the file so external edits are picked up.
func (s *CSVStore) Load(_ context.Context) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.read(); err != nil {
		return Table{}, err
	}
	rows := make([][]any, len(s.records))
	for i, rec := range s.records {
		row := make([]any, len(s.header))
		for j := range row {
			row[j] = inferValue(rec[j])
		}
		rows[i] = row
	}
	return Table{Name: s.Name(), Columns: slices.Clone(s.header), Rows: rows}, nil
}

// inferValue types numeric fields so they align and sort as numbers.
func inferValue(field string) any {
	if field == "" {
		return nil
	}
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}
	return field
}

func (s *CSVStore) DeleteRows(_ context.Context, rows []int) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := selection.SanitizeRows(rows, len(s.records))
	if len(drop) == 0 {
		return nil
	}
	kept := s.records[:0]
	for i, rec := range s.records {
		if _, found := slices.BinarySearch(drop, i); !found {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	log.Debug(log.CatData, "Deleted rows", "path", s.path, "rows", drop)
	return s.write()
}

func (s *CSVStore) ClearCells(_ context.Context, r selection.CellRange) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := selection.ClampCells(r, len(s.records), len(s.header))
	if !ok {
		return nil
	}
	for row := n.Start.Row; row <= n.End.Row; row++ {
		for col := n.Start.Col; col <= n.End.Col; col++ {
			s.records[row][col] = ""
		}
	}
	return s.write()
}

func (s *CSVStore) SetCell(_ context.Context, pos selection.Position, value string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos.Row < 0 || pos.Row >= len(s.records) || pos.Col < 0 || pos.Col >= len(s.header) {
		return fmt.Errorf("set cell %s: out of range", pos)
	}
	s.records[pos.Row][pos.Col] = value
	return s.write()
}

func (s *CSVStore) Paste(_ context.Context, at selection.Position, values [][]string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.Row < 0 || at.Col < 0 || at.Col >= len(s.header) || len(values) == 0 {
		return nil
	}
	for i, fields := range values {
		row := at.Row + i
		for row >= len(s.records) {
			s.records = append(s.records, make([]string, len(s.header)))
		}
		for j, v := range fields {
			col := at.Col + j
			if col >= len(s.header) {
				break
			}
			s.records[row][col] = v
		}
	}
	log.Debug(log.CatData, "Pasted values", "path", s.path, "at", at.String(), "rows", len(values))
	return s.write()
}

// write replaces the file atomically (write to temp, then rename).
func (s *CSVStore) write() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = s.comma
	if err := w.Write(s.header); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	if err := w.WriteAll(s.records); err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(s.path), ".gridcore.csv.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
