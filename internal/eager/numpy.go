package eager

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/tensor"
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
)

func boxed[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// oneDimensional boxes a 1-D array-like and reports its natural type
func oneDimensional(data any) ([]any, dtypes.DType, error) {
	switch d := data.(type) {
	case []float64:
		return boxed(d), dtypes.Float64, nil
	case []int64:
		return boxed(d), dtypes.Int64, nil
	case []int:
		return boxed(d), dtypes.Int64, nil
	case []string:
		return boxed(d), dtypes.String, nil
	case []bool:
		return boxed(d), dtypes.Boolean, nil
	case tensor.Interface:
		if d.NumDims() != 1 {
			return nil, dtypes.Unknown, errors.NewInvalidInputError("from_numpy",
				fmt.Sprintf("expected a 1-D array, got %d dimensions", d.NumDims()))
		}
		n := d.Shape()[0]
		values := make([]any, n)
		for i := int64(0); i < n; i++ {
			v, err := tensorValue(d, []int64{i})
			if err != nil {
				return nil, dtypes.Unknown, err
			}
			values[i] = v
		}
		return values, dtypes.FromArrow(d.DataType()), nil
	default:
		return nil, dtypes.Unknown, errors.NewTypeMismatchError("from_numpy", data)
	}
}

func tensorValue(t tensor.Interface, index []int64) (any, error) {
	switch tt := t.(type) {
	case *tensor.Float64:
		return tt.Value(index), nil
	case *tensor.Int64:
		return tt.Value(index), nil
	default:
		return nil, errors.NewUnsupportedError("from_numpy", fmt.Sprintf("tensor of %s", t.DataType()))
	}
}

func columnsOf[T any](rows [][]T) ([][]any, error) {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	cols := make([][]any, width)
	for j := range cols {
		cols[j] = make([]any, len(rows))
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, errors.NewInvalidInputError("from_numpy",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), width))
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}
	return cols, nil
}

// twoDimensional boxes a 2-D array-like column by column
func twoDimensional(data any) ([][]any, dtypes.DType, error) {
	switch d := data.(type) {
	case [][]float64:
		cols, err := columnsOf(d)
		return cols, dtypes.Float64, err
	case [][]int64:
		cols, err := columnsOf(d)
		return cols, dtypes.Int64, err
	case [][]int:
		cols, err := columnsOf(d)
		return cols, dtypes.Int64, err
	case [][]string:
		cols, err := columnsOf(d)
		return cols, dtypes.String, err
	case [][]bool:
		cols, err := columnsOf(d)
		return cols, dtypes.Boolean, err
	case tensor.Interface:
		rows, width := compliant.ArrayShape(d)
		cols := make([][]any, width)
		for j := range cols {
			cols[j] = make([]any, rows)
			for i := range cols[j] {
				v, err := tensorValue(d, []int64{int64(i), int64(j)})
				if err != nil {
					return nil, dtypes.Unknown, err
				}
				cols[j][i] = v
			}
		}
		return cols, dtypes.FromArrow(d.DataType()), nil
	default:
		return nil, dtypes.Unknown, errors.NewTypeMismatchError("from_numpy", data)
	}
}

func seriesFromArray(name string, data any, dt dtypes.DType, ns *Namespace) (*series.Series, error) {
	values, natural, err := oneDimensional(data)
	if err != nil {
		return nil, err
	}
	if dt == dtypes.Unknown {
		dt = natural
	}
	return series.FromValues(name, values, dt, ns.mem)
}

// schemaFields resolves column names and types for a frame of width columns
func schemaFields(schema any, width int, natural dtypes.DType) (compliant.Schema, error) {
	fields := make(compliant.Schema, width)
	switch s := schema.(type) {
	case nil:
		for j := range fields {
			fields[j] = compliant.Field{Name: fmt.Sprintf("column_%d", j), DType: natural}
		}
	case []string:
		if len(s) != width {
			return nil, errors.NewInvalidInputError("from_numpy",
				fmt.Sprintf("%d column names for %d columns", len(s), width))
		}
		for j, name := range s {
			fields[j] = compliant.Field{Name: name, DType: natural}
		}
	case compliant.Schema:
		if len(s) != width {
			return nil, errors.NewInvalidInputError("from_numpy",
				fmt.Sprintf("schema has %d fields for %d columns", len(s), width))
		}
		for j, f := range s {
			if f.DType == dtypes.Unknown {
				f.DType = natural
			}
			fields[j] = f
		}
	default:
		return nil, errors.NewTypeMismatchError("from_numpy", schema)
	}
	return fields, nil
}

func frameFromArray(data any, schema any, ns *Namespace) (*dataframe.DataFrame, error) {
	cols, natural, err := twoDimensional(data)
	if err != nil {
		return nil, err
	}
	fields, err := schemaFields(schema, len(cols), natural)
	if err != nil {
		return nil, err
	}

	built := make([]*series.Series, 0, len(cols))
	defer func() { releaseSeries(built) }()
	for j, values := range cols {
		s, err := series.FromValues(fields[j].Name, values, fields[j].DType, ns.mem)
		if err != nil {
			return nil, err
		}
		built = append(built, s)
	}
	return dataframe.New(built...)
}
