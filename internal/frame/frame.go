// Package frame implements the two row-container variants the engine
// passes between session, executor, planner and facade layers: RowBuffer
// for the delayed assembly path and Frame for the immediate path, both
// satisfying Result.
package frame

import (
	"fmt"

	"github.com/ap-survey/apdb/internal/apdberr"
)

// Value is a normalized column value. Drivers hand back driver-specific
// types (gocql uses native Go types already, database/sql uses
// driver.Value); Value is what survives the trip through RowBuffer/Frame
// so callers never type-switch on a driver package.
type Value any

// Result is satisfied by both RowBuffer and Frame. Callers that only need
// to iterate rows by name can do so without caring which assembly mode
// produced the result.
type Result interface {
	// Columns returns the column names in the result, in order.
	Columns() []string
	// NumRows returns the number of rows.
	NumRows() int
	// At returns the value of column col in row idx. Panics if either
	// index is out of range, matching the teacher's slice-access idiom
	// (callers are expected to range over NumRows/Columns, not guess).
	At(row int, col string) Value
	// Rows yields each row as a column-name -> Value map, for callers
	// that want a assembled view regardless of the underlying mode.
	Rows() []map[string]Value
}

// RowBuffer is the delayed-assembly container: a query returns
// (column_names, raw_rows) and the executor concatenates buffers from
// multiple partitions before anyone inspects a single value. Cheaper than
// Frame when hundreds of partitions are in play, since no per-row map
// allocation happens until Rows() is actually called.
type RowBuffer struct {
	columnNames []string
	colIndex    map[string]int
	rows        [][]Value
}

// NewRowBuffer builds an empty buffer with the given column order.
func NewRowBuffer(columnNames []string) *RowBuffer {
	idx := make(map[string]int, len(columnNames))
	for i, c := range columnNames {
		idx[c] = i
	}
	return &RowBuffer{columnNames: columnNames, colIndex: idx}
}

// Append adds one raw row. len(vals) must equal len(Columns()).
func (b *RowBuffer) Append(vals []Value) {
	b.rows = append(b.rows, vals)
}

func (b *RowBuffer) Columns() []string { return b.columnNames }

func (b *RowBuffer) NumRows() int { return len(b.rows) }

func (b *RowBuffer) At(row int, col string) Value {
	i, ok := b.colIndex[col]
	if !ok {
		panic(fmt.Sprintf("frame: unknown column %q", col))
	}
	return b.rows[row][i]
}

func (b *RowBuffer) Rows() []map[string]Value {
	out := make([]map[string]Value, len(b.rows))
	for i, r := range b.rows {
		m := make(map[string]Value, len(b.columnNames))
		for j, c := range b.columnNames {
			m[c] = r[j]
		}
		out[i] = m
	}
	return out
}

// Concat appends other's rows to b. Column sets must match exactly
// (same names, same order is not required but presence must match) or
// this returns a DataError — mirrors the engine's column-name equality
// check across queries being concatenated.
func (b *RowBuffer) Concat(other *RowBuffer) error {
	if len(b.columnNames) == 0 {
		b.columnNames = other.columnNames
		b.colIndex = other.colIndex
		b.rows = append(b.rows, other.rows...)
		return nil
	}
	if !sameColumnSet(b.columnNames, other.columnNames) {
		return apdberr.NewDataError("frame.Concat", "column mismatch: %v vs %v", b.columnNames, other.columnNames)
	}
	if sameOrder(b.columnNames, other.columnNames) {
		b.rows = append(b.rows, other.rows...)
		return nil
	}
	for _, r := range other.rows {
		reordered := make([]Value, len(b.columnNames))
		for i, c := range b.columnNames {
			reordered[i] = r[other.colIndex[c]]
		}
		b.rows = append(b.rows, reordered)
	}
	return nil
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

func sameOrder(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TypedColumn is one column of an immediate-mode Frame: a name and its
// fully materialized values, one per row.
type TypedColumn struct {
	Name   string
	Values []Value
}

// Frame is the immediate-assembly container: each query already returns
// a fully assembled frame (e.g. the SQL backend scanning rows straight
// into typed columns), and the executor concatenates frames directly.
type Frame struct {
	columns  []TypedColumn
	colIndex map[string]int
	numRows  int
}

// NewFrame builds a Frame from TypedColumns. All columns must have equal
// length.
func NewFrame(columns []TypedColumn) (*Frame, error) {
	idx := make(map[string]int, len(columns))
	n := -1
	for i, c := range columns {
		idx[c.Name] = i
		if n == -1 {
			n = len(c.Values)
		} else if len(c.Values) != n {
			return nil, apdberr.NewDataError("frame.NewFrame", "column %q has %d rows, want %d", c.Name, len(c.Values), n)
		}
	}
	if n == -1 {
		n = 0
	}
	return &Frame{columns: columns, colIndex: idx, numRows: n}, nil
}

// EmptyFrame returns a zero-row frame with the given columns, used for
// the empty-pixel-set and empty-object-id-set shortcuts.
func EmptyFrame(columnNames []string) *Frame {
	cols := make([]TypedColumn, len(columnNames))
	for i, c := range columnNames {
		cols[i] = TypedColumn{Name: c}
	}
	f, _ := NewFrame(cols)
	return f
}

func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnsTyped returns the frame's columns as TypedColumn values, for
// callers that need both the name and the full value slice (e.g. to
// rebuild a frame with one column replaced).
func (f *Frame) ColumnsTyped() []TypedColumn {
	out := make([]TypedColumn, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) NumRows() int { return f.numRows }

func (f *Frame) At(row int, col string) Value {
	i, ok := f.colIndex[col]
	if !ok {
		panic(fmt.Sprintf("frame: unknown column %q", col))
	}
	return f.columns[i].Values[row]
}

func (f *Frame) Rows() []map[string]Value {
	out := make([]map[string]Value, f.numRows)
	for r := 0; r < f.numRows; r++ {
		m := make(map[string]Value, len(f.columns))
		for _, c := range f.columns {
			m[c.Name] = c.Values[r]
		}
		out[r] = m
	}
	return out
}

// Concat appends other's rows column-wise. Column sets must match.
func (f *Frame) Concat(other *Frame) error {
	if !sameColumnSet(f.Columns(), other.Columns()) {
		return apdberr.NewDataError("frame.Concat", "column mismatch: %v vs %v", f.Columns(), other.Columns())
	}
	for i := range f.columns {
		other := other.columns[other.colIndex[f.columns[i].Name]]
		f.columns[i].Values = append(f.columns[i].Values, other.Values...)
	}
	f.numRows += other.numRows
	return nil
}

// ToRowBuffer converts a Frame to a RowBuffer, used when an immediate-mode
// result (e.g. from the SQL backend) needs to be merged into a
// delayed-mode accumulation.
func (f *Frame) ToRowBuffer() *RowBuffer {
	names := f.Columns()
	b := NewRowBuffer(names)
	for r := 0; r < f.numRows; r++ {
		row := make([]Value, len(names))
		for i, c := range names {
			row[i] = f.At(r, c)
		}
		b.Append(row)
	}
	return b
}

var (
	_ Result = (*RowBuffer)(nil)
	_ Result = (*Frame)(nil)
)
