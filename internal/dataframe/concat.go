package dataframe

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
)

// Concat stacks frames vertically. Every frame must have the same column
// names in the same order; null-typed columns adopt the type of their peers.
func Concat(frames []*DataFrame, mem memory.Allocator) (*DataFrame, error) {
	if len(frames) == 0 {
		return nil, errors.NewInvalidInputError("concat", "no frames to concatenate")
	}

	first := frames[0]
	for i, other := range frames[1:] {
		if !sameNames(first.order, other.order) {
			return nil, errors.NewInvalidInputError("concat",
				fmt.Sprintf("frame %d has columns %v, expected %v", i+1, other.order, first.order))
		}
	}

	return stack(first.order, frames, mem, false)
}

// DiagonalConcat stacks frames vertically over the union of their columns.
// Columns missing from a frame are filled with nulls.
func DiagonalConcat(frames []*DataFrame, mem memory.Allocator) (*DataFrame, error) {
	if len(frames) == 0 {
		return nil, errors.NewInvalidInputError("concat", "no frames to concatenate")
	}

	seen := make(map[string]bool)
	var names []string
	for _, f := range frames {
		for _, name := range f.order {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return stack(names, frames, mem, true)
}

// HConcat places frames side by side. Heights must match and names must be distinct.
func HConcat(frames []*DataFrame) (*DataFrame, error) {
	if len(frames) == 0 {
		return nil, errors.NewInvalidInputError("concat", "no frames to concatenate")
	}

	height := frames[0].Len()
	var cols []*series.Series
	for i, f := range frames {
		if f.Width() > 0 && f.Len() != height {
			return nil, errors.NewInvalidInputError("concat",
				fmt.Sprintf("frame %d has height %d, expected %d", i, f.Len(), height))
		}
		for _, name := range f.order {
			cols = append(cols, f.columns[name])
		}
	}
	return New(cols...)
}

func stack(names []string, frames []*DataFrame, mem memory.Allocator, fill bool) (*DataFrame, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	cols := make([]*series.Series, 0, len(names))
	defer func() {
		for _, s := range cols {
			s.Release()
		}
	}()

	for _, name := range names {
		dt := dtypes.Null
		for _, f := range frames {
			if s, ok := f.columns[name]; ok {
				next := dtypes.Promote(dt, s.DType())
				if next == dtypes.Unknown || (!fill && dt != dtypes.Null && s.DType() != dtypes.Null && s.DType() != dt) {
					return nil, &errors.DataFrameError{
						Op:      "concat",
						Column:  name,
						Message: fmt.Sprintf("cannot stack %s onto %s", s.DType(), dt),
						Cause:   errors.ErrInvalidInput,
					}
				}
				dt = next
			}
		}

		parts := make([]*series.Series, 0, len(frames))
		uniform := true
		for _, f := range frames {
			s, ok := f.columns[name]
			if !ok {
				s = series.Nulls(name, dt, f.Len(), mem)
				defer s.Release()
			}
			if s.DType() != dt {
				uniform = false
			}
			parts = append(parts, s)
		}

		col, err := concatColumn(name, parts, dt, uniform, mem)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return New(cols...)
}

func concatColumn(name string, parts []*series.Series, dt dtypes.DType, uniform bool, mem memory.Allocator) (*series.Series, error) {
	if uniform {
		return series.Concat(name, parts, mem)
	}
	var values []any
	for _, p := range parts {
		values = append(values, p.Values()...)
	}
	return series.FromValues(name, values, dt, mem)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
