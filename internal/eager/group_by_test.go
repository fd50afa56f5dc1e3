package eager

import (
	"testing"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupFrame(t *testing.T, ns *Namespace) *DataFrame {
	t.Helper()
	return frameOf(t, ns,
		"k", []any{"b", "a", "b", nil, "a"},
		"v", []any{int64(1), int64(2), int64(3), int64(4), nil},
		"w", []any{1.0, 2.0, 3.0, 4.0, 5.0},
	)
}

func TestGroupBy(t *testing.T) {
	ns := newTestNamespace(t)
	df := groupFrame(t, ns)

	gb, err := df.GroupBy("k")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, gb.Keys())

	t.Run("simple aggregations keep first-appearance order", func(t *testing.T) {
		out, err := gb.Agg(
			ns.Col("v").Sum(),
			ns.Col("w").Mean().Alias("w_mean"),
			ns.Col("v").Count().Alias("v_count"),
			ns.Len(),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"k", "v", "w_mean", "v_count", "len"}, out.Columns())
		assert.Equal(t, []any{"b", "a", nil}, columnValues(t, out, "k"))
		assert.Equal(t, []any{int64(4), int64(2), int64(4)}, columnValues(t, out, "v"))
		assert.Equal(t, []any{2.0, 3.5, 4.0}, columnValues(t, out, "w_mean"))
		assert.Equal(t, []any{int64(2), int64(1), int64(1)}, columnValues(t, out, "v_count"))
		assert.Equal(t, []any{int64(2), int64(2), int64(1)}, columnValues(t, out, "len"))
	})

	t.Run("implicit selections leave keys out", func(t *testing.T) {
		out, err := gb.Agg(ns.Exclude("w").Max())
		require.NoError(t, err)
		assert.Equal(t, []string{"k", "v"}, out.Columns())
		assert.Equal(t, []any{int64(3), int64(2), int64(4)}, columnValues(t, out, "v"))
	})

	t.Run("multi-column expressions leave keys out", func(t *testing.T) {
		out, err := gb.Agg(ns.Col("k", "v").Count())
		require.NoError(t, err)
		assert.Equal(t, []string{"k", "v"}, out.Columns())
		assert.Equal(t, []any{int64(2), int64(1), int64(1)}, columnValues(t, out, "v"))

		out, err = gb.Agg(ns.Col("k").Count().Alias("k_count"))
		require.NoError(t, err)
		assert.Equal(t, []string{"k", "k_count"}, out.Columns())
	})

	t.Run("complex expressions are evaluated per group", func(t *testing.T) {
		e := ns.Col("w").Binary(expr.OpMul, int64(2)).Sum().Alias("double_w")
		assert.False(t, compliant.IsSimpleAggregation(e))

		out, err := gb.Agg(e)
		require.NoError(t, err)
		assert.Equal(t, []any{8.0, 14.0, 8.0}, columnValues(t, out, "double_w"))
	})

	t.Run("non-reducing expressions are rejected", func(t *testing.T) {
		_, err := gb.Agg(ns.Col("w").Abs())
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := df.GroupBy("zzz")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestGroupByMultipleKeys(t *testing.T) {
	ns := newTestNamespace(t)
	df := frameOf(t, ns,
		"x", []any{int64(1), int64(1), int64(2), int64(1)},
		"y", []any{"a", "b", "a", "a"},
		"v", []any{int64(10), int64(20), int64(30), int64(40)},
	)

	gb, err := df.GroupBy("x", "y")
	require.NoError(t, err)
	out, err := gb.Agg(ns.Col("v").Sum())
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1), int64(1), int64(2)}, columnValues(t, out, "x"))
	assert.Equal(t, []any{"a", "b", "a"}, columnValues(t, out, "y"))
	assert.Equal(t, []any{int64(50), int64(20), int64(30)}, columnValues(t, out, "v"))
}
