package eager

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/tensor"
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNumpy(t *testing.T) {
	ns := newTestNamespace(t)

	t.Run("2-D becomes a frame", func(t *testing.T) {
		out, err := ns.FromNumpy([][]float64{{1, 2}, {3, 4}, {5, 6}}, nil)
		require.NoError(t, err)
		df, ok := out.(*DataFrame)
		require.True(t, ok)
		assert.Equal(t, []string{"column_0", "column_1"}, df.Columns())
		assert.Equal(t, 3, df.Len())
		assert.Equal(t, []any{2.0, 4.0, 6.0}, columnValues(t, df, "column_1"))
	})

	t.Run("1-D becomes a series", func(t *testing.T) {
		out, err := ns.FromNumpy([]int64{1, 2, 3}, nil)
		require.NoError(t, err)
		s, ok := out.(*Series)
		require.True(t, ok)
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, dtypes.Int64, s.DType())
	})

	t.Run("names from a string schema", func(t *testing.T) {
		out, err := ns.FromNumpy([][]int{{1, 2}}, []string{"x", "y"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, out.(*DataFrame).Columns())
	})

	t.Run("types from a full schema", func(t *testing.T) {
		schema := compliant.Schema{{Name: "x", DType: dtypes.Float64}, {Name: "y", DType: dtypes.Int64}}
		out, err := ns.FromNumpy([][]int64{{1, 2}}, schema)
		require.NoError(t, err)
		assert.Equal(t, schema, out.(*DataFrame).Schema())
	})

	t.Run("schema width mismatch", func(t *testing.T) {
		_, err := ns.FromNumpy([][]int64{{1, 2}}, []string{"only"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("unsupported schema type", func(t *testing.T) {
		_, err := ns.FromNumpy([][]int64{{1, 2}}, map[string]string{})
		assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	})

	t.Run("schema is not consulted for 1-D input", func(t *testing.T) {
		out, err := ns.FromNumpy([]string{"a"}, map[string]string{})
		require.NoError(t, err)
		assert.IsType(t, &Series{}, out)
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := ns.FromNumpy([][]float64{{1, 2}, {3}}, nil)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := ns.FromNumpy(map[int]int{}, nil)
		assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	})

	t.Run("arrow tensors", func(t *testing.T) {
		mem := memory.NewGoAllocator()
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues([]float64{1, 2, 3, 4, 5, 6}, nil)
		arr := b.NewFloat64Array()
		defer arr.Release()

		matrix := tensor.NewFloat64(arr.Data(), []int64{2, 3}, nil, nil)
		defer matrix.Release()
		out, err := ns.FromNumpy(matrix, nil)
		require.NoError(t, err)
		df := out.(*DataFrame)
		assert.Equal(t, 2, df.Len())
		assert.Equal(t, 3, df.Width())
		assert.Equal(t, []any{1.0, 4.0}, columnValues(t, df, "column_0"))

		vector := tensor.NewFloat64(arr.Data(), []int64{6}, nil, nil)
		defer vector.Release()
		out, err = ns.FromNumpy(vector, nil)
		require.NoError(t, err)
		assert.Equal(t, 6, out.(*Series).Len())
	})
}
