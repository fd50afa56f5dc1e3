// Package series provides the native Arrow-backed column type of the eager backend
package series

import (
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
)

// Series represents a named data column with Apache Arrow backend
type Series struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values
func New[T any](name string, values []T, mem memory.Allocator) *Series {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	// Use type switching to create appropriate Arrow array
	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []int:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, val := range v {
			builder.Append(int64(val))
		}
		arr = builder.NewArray()
	case []int32:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, val := range v {
			builder.Append(int64(val))
		}
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []float32:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, val := range v {
			builder.Append(float64(val))
		}
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series{
		name:  name,
		array: arr,
	}
}

// FromArray wraps an existing Arrow array. The series takes its own reference.
func FromArray(name string, arr arrow.Array) *Series {
	arr.Retain()
	return &Series{name: name, array: arr}
}

// FromValues builds a series from boxed values; nil entries become nulls.
// When dt is Unknown the type is inferred from the non-null values.
func FromValues(name string, values []any, dt dtypes.DType, mem memory.Allocator) (*Series, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if dt == dtypes.Unknown {
		dt = dtypes.Null
		for _, v := range values {
			if v == nil {
				continue
			}
			dt = dtypes.Promote(dt, dtypes.Infer(v))
		}
		if dt == dtypes.Unknown {
			return nil, errors.NewInvalidInputError("series", fmt.Sprintf("column %q mixes incompatible value types", name))
		}
	}

	if dt == dtypes.Null {
		for _, v := range values {
			if v != nil {
				return nil, errors.NewTypeMismatchError("series", v)
			}
		}
		return &Series{name: name, array: array.NewNull(len(values))}, nil
	}

	builder := array.NewBuilder(mem, dt.Arrow())
	defer builder.Release()
	builder.Reserve(len(values))

	for _, v := range values {
		if v == nil {
			builder.AppendNull()
			continue
		}
		if err := appendBoxed(builder, v); err != nil {
			return nil, err
		}
	}

	return &Series{name: name, array: builder.NewArray()}, nil
}

// Nulls creates a series of n nulls of the given type
func Nulls(name string, dt dtypes.DType, n int, mem memory.Allocator) *Series {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Series{name: name, array: array.MakeArrayOfNull(mem, dt.Arrow(), n)}
}

func appendBoxed(builder array.Builder, v any) error {
	switch b := builder.(type) {
	case *array.Int64Builder:
		n, ok := ToInt64(v)
		if !ok {
			return errors.NewTypeMismatchError("series", v)
		}
		b.Append(n)
	case *array.Float64Builder:
		f, ok := ToFloat64(v)
		if !ok {
			return errors.NewTypeMismatchError("series", v)
		}
		b.Append(f)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return errors.NewTypeMismatchError("series", v)
		}
		b.Append(s)
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return errors.NewTypeMismatchError("series", v)
		}
		b.Append(bv)
	default:
		return errors.NewUnsupportedError("series", fmt.Sprintf("builder %T", builder))
	}
	return nil
}

// Name returns the column name
func (s *Series) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series) Len() int {
	return s.array.Len()
}

// NullCount returns the number of null entries
func (s *Series) NullCount() int {
	return s.array.NullN()
}

// DataType returns the Arrow data type
func (s *Series) DataType() arrow.DataType {
	return s.array.DataType()
}

// DType returns the backend-neutral data type
func (s *Series) DType() dtypes.DType {
	return dtypes.FromArrow(s.array.DataType())
}

// IsNull checks if the value at index is null
func (s *Series) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// Value returns the value at index boxed as int64, float64, string or bool.
// Nulls and out-of-range indices return nil.
func (s *Series) Value(index int) any {
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return nil
	}

	switch arr := s.array.(type) {
	case *array.Int64:
		return arr.Value(index)
	case *array.Int32:
		return int64(arr.Value(index))
	case *array.Int16:
		return int64(arr.Value(index))
	case *array.Int8:
		return int64(arr.Value(index))
	case *array.Uint32:
		return int64(arr.Value(index))
	case *array.Uint16:
		return int64(arr.Value(index))
	case *array.Uint8:
		return int64(arr.Value(index))
	case *array.Float64:
		return arr.Value(index)
	case *array.Float32:
		return float64(arr.Value(index))
	case *array.String:
		return arr.Value(index)
	case *array.LargeString:
		return arr.Value(index)
	case *array.Boolean:
		return arr.Value(index)
	default:
		return nil
	}
}

// Values returns every value boxed, with nil for nulls
func (s *Series) Values() []any {
	out := make([]any, s.array.Len())
	for i := range out {
		out[i] = s.Value(i)
	}
	return out
}

// GetAsString returns a printable representation for a value, "null" for nulls
func (s *Series) GetAsString(index int) string {
	v := s.Value(index)
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// Rename returns a series sharing the same data under a new name
func (s *Series) Rename(name string) *Series {
	return FromArray(name, s.array)
}

// Clone returns a new handle on the same data; both must be released
func (s *Series) Clone() *Series {
	return FromArray(s.name, s.array)
}

// Take gathers the rows at the given indices into a new series
func (s *Series) Take(indices []int, mem memory.Allocator) (*Series, error) {
	values := make([]any, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= s.Len() {
			return nil, errors.NewInvalidInputError("take", fmt.Sprintf("index %d out of bounds for length %d", idx, s.Len()))
		}
		values[i] = s.Value(idx)
	}
	return FromValues(s.name, values, s.DType(), mem)
}

// Concat joins series of identical type end to end
func Concat(name string, parts []*Series, mem memory.Allocator) (*Series, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if len(parts) == 0 {
		return nil, errors.NewInvalidInputError("concat", "no series to concatenate")
	}
	arrs := make([]arrow.Array, len(parts))
	for i, p := range parts {
		arrs[i] = p.array
	}
	out, err := array.Concatenate(arrs, mem)
	if err != nil {
		return nil, errors.NewBackendError("concat", err)
	}
	return &Series{name: name, array: out}, nil
}

// String returns a string representation of the series
func (s *Series) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.DType(), s.name, s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// ToInt64 converts a Go integer scalar to int64. Unsigned values above
// math.MaxInt64 do not fit and are rejected.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// ToFloat64 converts a Go numeric scalar to float64
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		i, ok := ToInt64(v)
		return float64(i), ok
	}
}
