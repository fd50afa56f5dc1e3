// Package dataframe provides the native eager table of the Arrow backend
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
	"github.com/paveg/polyframe/internal/validation"
)

// DataFrame represents a table of data with typed columns.
// Every frame owns a reference on each of its columns.
type DataFrame struct {
	columns map[string]*series.Series
	order   []string // Maintains column order
}

// New creates a new DataFrame from columns of equal length and distinct names.
// The frame takes its own reference on every column.
func New(cols ...*series.Series) (*DataFrame, error) {
	columns := make(map[string]*series.Series, len(cols))
	order := make([]string, 0, len(cols))

	for _, s := range cols {
		name := s.Name()
		if _, dup := columns[name]; dup {
			releaseAll(columns)
			return nil, errors.NewInvalidInputError("new", fmt.Sprintf("duplicate column name %q", name))
		}
		if len(order) > 0 {
			if err := validation.ValidateLength(columns[order[0]].Len(), s.Len(), "new", name); err != nil {
				releaseAll(columns)
				return nil, err
			}
		}
		columns[name] = s.Clone()
		order = append(order, name)
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}, nil
}

func releaseAll(columns map[string]*series.Series) {
	for _, s := range columns {
		s.Release()
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// DTypes returns the column data types in column order
func (df *DataFrame) DTypes() []dtypes.DType {
	out := make([]dtypes.DType, len(df.order))
	for i, name := range df.order {
		out[i] = df.columns[name].DType()
	}
	return out
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.order)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (*series.Series, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// ColumnAt returns the series at a positional index
func (df *DataFrame) ColumnAt(i int) *series.Series {
	return df.columns[df.order[i]]
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns, in the given order
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "select", names...); err != nil {
		return nil, err
	}
	cols := make([]*series.Series, 0, len(names))
	for _, name := range names {
		cols = append(cols, df.columns[name])
	}
	return New(cols...)
}

// WithColumns returns a new DataFrame where each given column replaces the
// column of the same name or is appended after the existing ones.
func (df *DataFrame) WithColumns(cols ...*series.Series) (*DataFrame, error) {
	replaced := make(map[string]*series.Series, len(cols))
	appended := make([]*series.Series, 0, len(cols))
	for _, s := range cols {
		if df.HasColumn(s.Name()) {
			replaced[s.Name()] = s
		} else {
			appended = append(appended, s)
		}
	}

	out := make([]*series.Series, 0, len(df.order)+len(appended))
	for _, name := range df.order {
		if s, ok := replaced[name]; ok {
			out = append(out, s)
		} else {
			out = append(out, df.columns[name])
		}
	}
	out = append(out, appended...)
	return New(out...)
}

// Take gathers the given rows into a new DataFrame
func (df *DataFrame) Take(indices []int, mem memory.Allocator) (*DataFrame, error) {
	cols := make([]*series.Series, 0, len(df.order))
	defer func() {
		for _, s := range cols {
			s.Release()
		}
	}()
	for _, name := range df.order {
		s, err := df.columns[name].Take(indices, mem)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return New(cols...)
}

// Row returns the boxed values of row i in column order
func (df *DataFrame) Row(i int) []any {
	row := make([]any, len(df.order))
	for j, name := range df.order {
		row[j] = df.columns[name].Value(i)
	}
	return row
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, df.columns[name].DType()))
	}

	return strings.Join(parts, "\n")
}

// Release releases memory for all series in the DataFrame
func (df *DataFrame) Release() {
	releaseAll(df.columns)
}
