package dataframe

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	dferrors "github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T, mem memory.Allocator) *DataFrame {
	t.Helper()
	a := series.New("a", []int64{1, 2, 3}, mem)
	b := series.New("b", []string{"x", "y", "z"}, mem)
	c := series.New("c", []float64{0.5, 1.5, 2.5}, mem)
	defer a.Release()
	defer b.Release()
	defer c.Release()

	df, err := New(a, b, c)
	require.NoError(t, err)
	return df
}

func mustNew(t *testing.T, cols ...*series.Series) *DataFrame {
	t.Helper()
	df, err := New(cols...)
	require.NoError(t, err)
	return df
}

func TestNew(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("valid columns", func(t *testing.T) {
		df := sampleFrame(t, mem)
		defer df.Release()

		assert.Equal(t, []string{"a", "b", "c"}, df.Columns())
		assert.Equal(t, 3, df.Len())
		assert.Equal(t, 3, df.Width())
		assert.Equal(t, []dtypes.DType{dtypes.Int64, dtypes.String, dtypes.Float64}, df.DTypes())
	})

	t.Run("duplicate names", func(t *testing.T) {
		a := series.New("a", []int64{1}, mem)
		defer a.Release()
		_, err := New(a, a)
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("length mismatch", func(t *testing.T) {
		a := series.New("a", []int64{1}, mem)
		b := series.New("b", []int64{1, 2}, mem)
		defer a.Release()
		defer b.Release()
		_, err := New(a, b)
		require.Error(t, err)

		var dfErr *dferrors.DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "b", dfErr.Column)
	})

	t.Run("empty frame", func(t *testing.T) {
		df := mustNew(t)
		assert.Equal(t, 0, df.Len())
		assert.Equal(t, []string{}, df.Columns())
		assert.Equal(t, "DataFrame[empty]", df.String())
	})
}

func TestSelectWithColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := sampleFrame(t, mem)
	defer df.Release()

	sel, err := df.Select("c", "a")
	require.NoError(t, err)
	defer sel.Release()
	assert.Equal(t, []string{"c", "a"}, sel.Columns())

	_, err = df.Select("a", "missing")
	require.Error(t, err)
	var dfErr *dferrors.DataFrameError
	require.ErrorAs(t, err, &dfErr)
	assert.Equal(t, "select", dfErr.Op)
	assert.Equal(t, "missing", dfErr.Column)
	assert.ErrorIs(t, err, dferrors.ErrInvalidInput)

	b := series.New("b", []int64{7, 8, 9}, mem)
	d := series.New("d", []bool{true, false, true}, mem)
	defer b.Release()
	defer d.Release()

	wc, err := df.WithColumns(b, d)
	require.NoError(t, err)
	defer wc.Release()
	assert.Equal(t, []string{"a", "b", "c", "d"}, wc.Columns())
	col, ok := wc.Column("b")
	require.True(t, ok)
	assert.Equal(t, dtypes.Int64, col.DType())

	// the source frame is unchanged
	orig, _ := df.Column("b")
	assert.Equal(t, dtypes.String, orig.DType())
}

func TestTakeRow(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := sampleFrame(t, mem)
	defer df.Release()

	tk, err := df.Take([]int{2, 0}, mem)
	require.NoError(t, err)
	defer tk.Release()
	assert.Equal(t, []any{int64(3), "z", 2.5}, tk.Row(0))
	assert.Equal(t, []any{int64(1), "x", 0.5}, tk.Row(1))
}

func TestConcat(t *testing.T) {
	mem := memory.NewGoAllocator()
	df1 := sampleFrame(t, mem)
	df2 := sampleFrame(t, mem)
	defer df1.Release()
	defer df2.Release()

	t.Run("vertical", func(t *testing.T) {
		out, err := Concat([]*DataFrame{df1, df2}, mem)
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, 6, out.Len())
		assert.Equal(t, df1.Columns(), out.Columns())
		assert.Equal(t, []any{int64(1), "x", 0.5}, out.Row(3))
	})

	t.Run("vertical schema mismatch", func(t *testing.T) {
		other, err := df2.Select("a", "b")
		require.NoError(t, err)
		defer other.Release()
		_, err = Concat([]*DataFrame{df1, other}, mem)
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("vertical dtype mismatch", func(t *testing.T) {
		a := series.New("a", []float64{1}, mem)
		b := series.New("b", []string{"q"}, mem)
		c := series.New("c", []float64{1}, mem)
		defer a.Release()
		defer b.Release()
		defer c.Release()
		other := mustNew(t, a, b, c)
		defer other.Release()

		_, err := Concat([]*DataFrame{df1, other}, mem)
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("diagonal fills nulls", func(t *testing.T) {
		d := series.New("d", []bool{true}, mem)
		a := series.New("a", []float64{9.5}, mem)
		defer d.Release()
		defer a.Release()
		other := mustNew(t, d, a)
		defer other.Release()

		out, err := DiagonalConcat([]*DataFrame{df1, other}, mem)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"a", "b", "c", "d"}, out.Columns())
		assert.Equal(t, 4, out.Len())
		assert.Equal(t, []any{9.5, nil, nil, true}, out.Row(3))
		assert.Equal(t, []any{1.0, "x", 0.5, nil}, out.Row(0))
	})

	t.Run("horizontal", func(t *testing.T) {
		d := series.New("d", []bool{true, false, true}, mem)
		defer d.Release()
		other := mustNew(t, d)
		defer other.Release()

		out, err := HConcat([]*DataFrame{df1, other})
		require.NoError(t, err)
		defer out.Release()
		assert.Equal(t, []string{"a", "b", "c", "d"}, out.Columns())

		_, err = HConcat([]*DataFrame{df1, df2})
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("horizontal height mismatch", func(t *testing.T) {
		d := series.New("d", []bool{true}, mem)
		defer d.Release()
		other := mustNew(t, d)
		defer other.Release()

		_, err := HConcat([]*DataFrame{df1, other})
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Concat(nil, mem)
		assert.Error(t, err)
		_, err = DiagonalConcat(nil, mem)
		assert.Error(t, err)
		_, err = HConcat(nil)
		assert.Error(t, err)
	})
}

func TestString(t *testing.T) {
	df := sampleFrame(t, memory.NewGoAllocator())
	defer df.Release()
	assert.Equal(t, "DataFrame[3x3]\n  a: int64\n  b: string\n  c: float64", df.String())
}
