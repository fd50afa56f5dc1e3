package eager

import (
	"testing"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFrameBasics(t *testing.T) {
	ns := newTestNamespace(t)
	df := frameOf(t, ns, "a", []any{int64(1), int64(2)}, "b", []any{"x", nil})

	assert.Equal(t, 2, df.Len())
	assert.Equal(t, 2, df.Width())
	assert.Equal(t, compliant.Schema{
		{Name: "a", DType: dtypes.Int64},
		{Name: "b", DType: dtypes.String},
	}, df.Schema())
	assert.Equal(t, compliant.ImplArrow, df.Implementation())
	assert.Same(t, ns, df.Namespace())

	_, err := df.GetColumn("missing")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestSelect(t *testing.T) {
	ns := newTestNamespace(t)
	df := frameOf(t, ns, "a", []any{int64(1), int64(2), int64(3)}, "b", []any{2.0, 4.0, 6.0})

	t.Run("columns and expressions", func(t *testing.T) {
		out, err := df.Select("b", expr.Col("a").Mul(10).Alias("a10"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a10"}, out.Columns())
		assert.Equal(t, []any{int64(10), int64(20), int64(30)}, columnValues(t, out, "a10"))
	})

	t.Run("scalars broadcast against columns", func(t *testing.T) {
		out, err := df.Select(ns.Col("a"), ns.Col("b").Mean().Alias("mean_b"))
		require.NoError(t, err)
		assert.Equal(t, 3, out.Len())
		assert.Equal(t, []any{4.0, 4.0, 4.0}, columnValues(t, out, "mean_b"))
	})

	t.Run("only scalars give one row", func(t *testing.T) {
		out, err := df.Select(ns.Col("a").Sum(), ns.Len())
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
		assert.Equal(t, []any{int64(6)}, columnValues(t, out, "a"))
		assert.Equal(t, []any{int64(3)}, columnValues(t, out, "len"))
	})

	t.Run("duplicate output names", func(t *testing.T) {
		_, err := df.Select("a", ns.Col("a"))
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("parallel evaluation keeps order", func(t *testing.T) {
		parallelNs := New(compliant.Main, WithParallelism(1, 4))
		big := frameOf(t, parallelNs, "a", []any{int64(1), int64(2)}, "b", []any{int64(3), int64(4)})
		out, err := big.Select("b", "a", parallelNs.Col("a").Binary(expr.OpAdd, parallelNs.Col("b")).Alias("c"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, out.Columns())
		assert.Equal(t, []any{int64(4), int64(6)}, columnValues(t, out, "c"))
	})
}

func TestWithColumns(t *testing.T) {
	ns := newTestNamespace(t)
	df := frameOf(t, ns, "a", []any{int64(1), int64(2)}, "b", []any{"x", "y"})

	out, err := df.WithColumns(
		expr.Col("a").Add(1),
		expr.Lit("const").Alias("c"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Columns())
	assert.Equal(t, []any{int64(2), int64(3)}, columnValues(t, out, "a"))
	assert.Equal(t, []any{"const", "const"}, columnValues(t, out, "c"))

	// the input frame is untouched
	assert.Equal(t, []any{int64(1), int64(2)}, columnValues(t, df, "a"))
}

func TestFilter(t *testing.T) {
	ns := newTestNamespace(t)
	df := frameOf(t, ns, "a", []any{int64(1), nil, int64(3), int64(4)})

	out, err := df.Filter(expr.Col("a").Gt(1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(4)}, columnValues(t, out, "a"))

	out, err = df.Filter(ns.Lit(true, dtypes.Boolean))
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())

	_, err = df.Filter(expr.Col("a"))
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}
