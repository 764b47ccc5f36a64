// Package table holds the in-memory, read-only row sets commands are resolved against.
package table

import (
	"fmt"
	"strings"

	tabulaErrors "github.com/harunnryd/tabula/internal/errors"

	"github.com/cespare/xxhash/v2"
)

// Row is an ordered, fixed-width sequence of cells. Cell i belongs to column i
// of the owning table.
type Row []string

// IsEmpty reports whether every cell is the empty string.
func (r Row) IsEmpty() bool {
	for _, cell := range r {
		if cell != "" {
			return false
		}
	}
	return true
}

// Table is an immutable set of rows with named columns. It is safe for
// concurrent use because nothing mutates it after New returns.
type Table struct {
	id      string
	columns []string
	rows    []Row
	source  Source
}

// Option configures a Table at construction.
type Option func(*Table)

// WithSource sets the randomness used by RandomRow.
func WithSource(src Source) Option {
	return func(t *Table) {
		if src != nil {
			t.source = src
		}
	}
}

// New builds a table from column names and raw rows. Wholly empty rows are
// discarded; width is the loader's responsibility.
func New(id string, columns []string, rows [][]string, opts ...Option) *Table {
	t := &Table{
		id:      id,
		columns: append([]string(nil), columns...),
		rows:    RemoveEmptyRows(rows),
		source:  DefaultSource(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RemoveEmptyRows drops rows whose cells are all empty, preserving the order
// of the rest. Spreadsheets commonly report trailing blank rows.
func RemoveEmptyRows(raw [][]string) []Row {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row := Row(r)
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, append(Row(nil), row...))
	}
	return rows
}

func (t *Table) ID() string { return t.id }

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.columns {
		if col == name {
			return i
		}
	}
	return -1
}

// RowsMatching returns, in table order, every row whose cell in column equals
// value. Matching is byte-exact when caseSensitive is set, case-folded otherwise.
func (t *Table) RowsMatching(column, value string, caseSensitive bool) ([]Row, error) {
	idx := t.ColumnIndex(column)
	if idx == -1 {
		return nil, tabulaErrors.ColumnNotFound(column)
	}

	matched := make([]Row, 0)
	for _, row := range t.rows {
		if idx >= len(row) {
			continue
		}
		cell := row[idx]
		if caseSensitive {
			if cell == value {
				matched = append(matched, row)
			}
			continue
		}
		if strings.EqualFold(cell, value) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// RandomRow draws one row uniformly at random.
func (t *Table) RandomRow() (Row, error) {
	idx, err := RandomIndex(len(t.rows), t.source)
	if err != nil {
		return nil, tabulaErrors.EmptyTable(fmt.Sprintf("sheet %q has no rows", t.id))
	}
	return t.rows[idx], nil
}

// Record maps column names to the cells of row by position.
func (t *Table) Record(row Row) map[string]string {
	record := make(map[string]string, len(t.columns))
	for i, col := range t.columns {
		if i < len(row) {
			record[col] = row[i]
		} else {
			record[col] = ""
		}
	}
	return record
}

// Fingerprint hashes the columns and rows; two tables with identical content
// share a fingerprint.
func (t *Table) Fingerprint() uint64 {
	d := xxhash.New()
	for _, col := range t.columns {
		d.WriteString(col)
		d.Write([]byte{0x1f})
	}
	d.Write([]byte{0x1e})
	for _, row := range t.rows {
		for _, cell := range row {
			d.WriteString(cell)
			d.Write([]byte{0x1f})
		}
		d.Write([]byte{0x1e})
	}
	return d.Sum64()
}
