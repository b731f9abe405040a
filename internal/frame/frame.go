// Package frame holds the in-memory tabular dataset the sync engine reads
// from. A Frame is column-oriented: an ordered set of named columns, each
// an equal-length slice of values. The engine only ever reads a frame,
// except for writing back store-generated key values by row index.
package frame

import (
	"github.com/framesync/framesync/internal/errs"
)

// Column is one named column of values. A nil value means SQL NULL.
// Supported value types: bool, signed/unsigned integers, float32/64,
// string, []byte, time.Time.
type Column struct {
	Name   string
	Values []any
}

// Frame is an ordered collection of equal-length columns.
type Frame struct {
	cols   []Column
	byName map[string]int
	rows   int

	// stringSource marks frames whose every value is a raw string
	// (CSV and object-store input); inference will parse them.
	stringSource bool
}

// New builds a Frame from columns. All columns must have the same length
// and unique, non-empty names.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{byName: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := f.AddColumn(c.Name, c.Values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddColumn appends a column. The first column fixes the row count;
// subsequent columns must match it.
func (f *Frame) AddColumn(name string, values []any) error {
	if name == "" {
		return errs.New(errs.KindInvalidInput, "column name is empty")
	}
	if _, dup := f.byName[name]; dup {
		return errs.Newf(errs.KindInvalidInput, "duplicate column %q", name)
	}
	if len(f.cols) > 0 && len(values) != f.rows {
		return errs.Newf(errs.KindInvalidInput,
			"column %q has %d values, frame has %d rows", name, len(values), f.rows)
	}
	if len(f.cols) == 0 {
		f.rows = len(values)
	}
	f.byName[name] = len(f.cols)
	f.cols = append(f.cols, Column{Name: name, Values: values})
	return nil
}

// AppendRow adds one row of values in column order.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.cols) {
		return errs.Newf(errs.KindInvalidInput,
			"row has %d values, frame has %d columns", len(values), len(f.cols))
	}
	for i := range f.cols {
		f.cols[i].Values = append(f.cols[i].Values, values[i])
	}
	f.rows++
	return nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumColumns returns the column count.
func (f *Frame) NumColumns() int { return len(f.cols) }

// Names returns column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is shared; callers
// must not mutate it.
func (f *Frame) Columns() []Column { return f.cols }

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.byName[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// HasColumn reports whether the frame contains name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Value returns the value at (column, row).
func (f *Frame) Value(name string, row int) (any, bool) {
	i, ok := f.byName[name]
	if !ok || row < 0 || row >= f.rows {
		return nil, false
	}
	return f.cols[i].Values[row], true
}

// Set writes a value at (column, row). Used to merge store-generated
// values (identity keys) back into the caller's dataset.
func (f *Frame) Set(name string, row int, v any) error {
	i, ok := f.byName[name]
	if !ok {
		return errs.Newf(errs.KindInvalidInput, "no column %q", name)
	}
	if row < 0 || row >= f.rows {
		return errs.Newf(errs.KindInvalidInput, "row %d out of range", row)
	}
	f.cols[i].Values[row] = v
	return nil
}

// Row returns one row of values in column order, freshly allocated.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.cols))
	for c := range f.cols {
		row[c] = f.cols[c].Values[i]
	}
	return row
}

// StringSource reports whether the frame was loaded from a textual source
// (CSV), meaning every value is a raw string that inference should parse.
func (f *Frame) StringSource() bool { return f.stringSource }
