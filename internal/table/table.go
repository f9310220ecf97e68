// Package table holds profile rows: an ordered set of nullable columns over
// rows keyed by the original entity index.
package table

import (
	"math"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Row is one output record. A missing or nil cell is null.
type Row struct {
	Key      int
	Geometry geom.T
	cells    map[string]any
}

// NewRow creates an empty row for the given key.
func NewRow(key int) *Row {
	return &Row{Key: key, cells: make(map[string]any)}
}

// Set stores a cell value. NaN floats are stored as null.
func (r *Row) Set(column string, v any) {
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		v = nil
	}
	r.cells[column] = v
}

// Get returns a cell value, nil when null.
func (r *Row) Get(column string) any {
	return r.cells[column]
}

// Has reports whether the column holds a non-null value.
func (r *Row) Has(column string) bool {
	return r.cells[column] != nil
}

// Table is an ordered collection of rows sharing a column order.
type Table struct {
	columns []string
	index   map[string]int
	rows    []*Row
}

// New creates a table with the given initial columns.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int)}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// AddColumn appends a column unless it already exists.
func (t *Table) AddColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Append adds rows, registering any columns they carry that the table
// does not know yet. Unknown columns are added in sorted order per row so
// the result does not depend on map iteration.
func (t *Table) Append(rows ...*Row) {
	for _, r := range rows {
		var extra []string
		for c := range r.cells {
			if !t.HasColumn(c) {
				extra = append(extra, c)
			}
		}
		slices.Sort(extra)
		for _, c := range extra {
			t.AddColumn(c)
		}
		t.rows = append(t.rows, r)
	}
}

// Columns returns the column order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Rows returns the rows in table order.
func (t *Table) Rows() []*Row {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Value returns the cell at (row, column).
func (t *Table) Value(row int, column string) any {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row].Get(column)
}

// Float returns the cell at (row, column) as a float64. The second result
// is false when the cell is null or not numeric.
func (t *Table) Float(row int, column string) (float64, bool) {
	return ToFloat(t.Value(row, column))
}

// RenameColumns renames columns in place, keeping their position.
func (t *Table) RenameColumns(mapping map[string]string) error {
	for from, to := range mapping {
		i, ok := t.index[from]
		if !ok {
			continue
		}
		if _, clash := t.index[to]; clash && to != from {
			return eris.Errorf("table: rename %s to existing column %s", from, to)
		}
		delete(t.index, from)
		t.index[to] = i
		t.columns[i] = to
		for _, r := range t.rows {
			if v, ok := r.cells[from]; ok {
				delete(r.cells, from)
				r.cells[to] = v
			}
		}
	}
	return nil
}

// DropColumns removes columns and their cells.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if drop[c] {
			continue
		}
		kept = append(kept, c)
	}
	t.columns = kept
	t.index = make(map[string]int, len(kept))
	for i, c := range kept {
		t.index[c] = i
	}
	for _, r := range t.rows {
		for n := range drop {
			delete(r.cells, n)
		}
	}
}

// MergeOnKey joins right into left column-wise, matching rows by Key.
// Rows of left keep their order; right columns are appended after left
// columns. Rows only present in right are appended at the end.
func MergeOnKey(left, right *Table) (*Table, error) {
	for _, c := range right.columns {
		if left.HasColumn(c) {
			return nil, eris.Errorf("table: merge column %s present on both sides", c)
		}
	}

	out := New(left.columns...)
	for _, c := range right.columns {
		out.AddColumn(c)
	}

	byKey := make(map[int]*Row, len(right.rows))
	for _, r := range right.rows {
		if _, dup := byKey[r.Key]; dup {
			return nil, eris.Errorf("table: duplicate key %d in merge", r.Key)
		}
		byKey[r.Key] = r
	}

	seen := make(map[int]bool, len(left.rows))
	for _, l := range left.rows {
		row := NewRow(l.Key)
		row.Geometry = l.Geometry
		for k, v := range l.cells {
			row.cells[k] = v
		}
		if r, ok := byKey[l.Key]; ok {
			for k, v := range r.cells {
				row.cells[k] = v
			}
			if row.Geometry == nil {
				row.Geometry = r.Geometry
			}
		}
		seen[l.Key] = true
		out.rows = append(out.rows, row)
	}
	for _, r := range right.rows {
		if seen[r.Key] {
			continue
		}
		row := NewRow(r.Key)
		row.Geometry = r.Geometry
		for k, v := range r.cells {
			row.cells[k] = v
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// ToFloat converts a numeric cell to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// FormatCell renders a cell for text outputs. Null cells render empty.
func FormatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case bool:
		return strconv.FormatBool(n)
	}
	return ""
}
