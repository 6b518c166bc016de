// Package table holds the in-memory tables passed between pipeline stages.
//
// A Table is built once with New and Append, and every transform returns a
// new Table. Stages never modify a table they were handed.
package table

import (
	"fmt"
	"strconv"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a single nullable cell.
type Value struct {
	kind Kind
	s    string
	f    float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: KindNumber, f: f} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric value and whether v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.f, true
}

// Text returns the string form of v; null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "<null>"
	}
	return v.Text()
}

// Table is an ordered set of named columns and rows of values.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New returns an empty table with the given columns. Column names must be unique.
func New(columns ...string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: idx}, nil
}

// MustNew is New for static column sets; it panics on duplicates.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. The row is copied.
func (t *Table) Append(row ...Value) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	r := make([]Value, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns row i.
func (t *Table) Row(i int) Row { return Row{t: t, vals: t.rows[i], n: i} }

// Rows returns every row in order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Column returns a copy of every value in the named column.
func (t *Table) Column(name string) ([]Value, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for i := range t.rows {
		if keep(t.Row(i)) {
			out.rows = append(out.rows, t.rows[i])
		}
	}
	return out
}

// Map returns a new table where each row is replaced by fn's result.
// fn receives a copy of the row values and may modify it.
func (t *Table) Map(fn func(Row, []Value) error) (*Table, error) {
	out := &Table{columns: t.columns, index: t.index, rows: make([][]Value, 0, len(t.rows))}
	for i, row := range t.rows {
		cp := make([]Value, len(row))
		copy(cp, row)
		if err := fn(t.Row(i), cp); err != nil {
			return nil, err
		}
		out.rows = append(out.rows, cp)
	}
	return out, nil
}

// Select returns a new table with only the given columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	pos := make([]int, len(names))
	for i, n := range names {
		p, ok := t.index[n]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		pos[i] = p
	}
	out, err := New(names...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for r, row := range t.rows {
		nr := make([]Value, len(pos))
		for i, p := range pos {
			nr[i] = row[p]
		}
		out.rows[r] = nr
	}
	return out, nil
}

// Insert returns a new table with a column added at position at, filled by fn.
func (t *Table) Insert(at int, name string, fn func(Row) (Value, error)) (*Table, error) {
	if at < 0 || at > len(t.columns) {
		return nil, fmt.Errorf("insert position %d out of range", at)
	}
	cols := make([]string, 0, len(t.columns)+1)
	cols = append(cols, t.columns[:at]...)
	cols = append(cols, name)
	cols = append(cols, t.columns[at:]...)
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for r, row := range t.rows {
		v, err := fn(t.Row(r))
		if err != nil {
			return nil, err
		}
		nr := make([]Value, 0, len(row)+1)
		nr = append(nr, row[:at]...)
		nr = append(nr, v)
		nr = append(nr, row[at:]...)
		out.rows[r] = nr
	}
	return out, nil
}

// Row is a read-only view of one table row.
type Row struct {
	t    *Table
	vals []Value
	n    int
}

// Num is the row's position in its table.
func (r Row) Num() int { return r.n }

// Get returns the value of the named column, or null if it does not exist.
func (r Row) Get(name string) Value {
	i, ok := r.t.index[name]
	if !ok {
		return Null()
	}
	return r.vals[i]
}

// At returns the value at column position i.
func (r Row) At(i int) Value { return r.vals[i] }

// Values returns a copy of the row values.
func (r Row) Values() []Value {
	out := make([]Value, len(r.vals))
	copy(out, r.vals)
	return out
}
