package lazy

import (
	"context"
	"testing"

	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupBy(t *testing.T) {
	ns := newTestNamespace(t)
	lf := seedFrame(t, ns)

	t.Run("aggregations", func(t *testing.T) {
		g, err := lf.GroupBy("g")
		require.NoError(t, err)
		assert.Equal(t, []string{"g"}, g.Keys())

		out, err := g.Agg(ns.Col("a").Sum(), ns.Col("b").Mean().Alias("bm"), ns.Len())
		require.NoError(t, err)
		assert.Equal(t, []string{"g", "a", "bm", "len"}, out.Columns())
		assert.Equal(t, []any{"p", "q"}, columnValues(t, out, "g"))
		assert.Equal(t, []any{int64(4), int64(2)}, columnValues(t, out, "a"))
		assert.Equal(t, []any{2.25, 4.5}, columnValues(t, out, "bm"))
		assert.Equal(t, []any{int64(2), int64(2)}, columnValues(t, out, "len"))
	})

	t.Run("compound aggregation", func(t *testing.T) {
		g, err := lf.GroupBy("g")
		require.NoError(t, err)
		out, err := g.Agg(ns.Col("a").Sum().Binary(expr.OpAdd, 1).Alias("a1"))
		require.NoError(t, err)
		assert.Equal(t, []any{int64(5), int64(3)}, columnValues(t, out, "a1"))
	})

	t.Run("multi-column expressions skip keys", func(t *testing.T) {
		g, err := lf.GroupBy("g")
		require.NoError(t, err)
		out, err := g.Agg(ns.All().Aggregate(expr.AggMax))
		require.NoError(t, err)
		assert.Equal(t, []string{"g", "a", "b", "s", "flag"}, out.Columns())
		assert.Equal(t, []any{int64(3), int64(2)}, columnValues(t, out, "a"))
		assert.Equal(t, []any{3.0, 4.5}, columnValues(t, out, "b"))
		assert.Equal(t, []any{"x", "y"}, columnValues(t, out, "s"))
		assert.Equal(t, []any{true, true}, columnValues(t, out, "flag"))
	})

	t.Run("selectors skip keys", func(t *testing.T) {
		g, err := lf.GroupBy("g")
		require.NoError(t, err)
		out, err := g.Agg(ns.Selectors().String().Expr().Aggregate(expr.AggCount))
		require.NoError(t, err)
		assert.Equal(t, []string{"g", "s"}, out.Columns())
		assert.Equal(t, []any{int64(1), int64(2)}, columnValues(t, out, "s"))
	})

	t.Run("null keys form a group", func(t *testing.T) {
		g, err := lf.GroupBy("flag")
		require.NoError(t, err)
		out, err := g.Agg(ns.Len())
		require.NoError(t, err)
		assert.Equal(t, []any{true, false, nil}, columnValues(t, out, "flag"))
		assert.Equal(t, []any{int64(2), int64(1), int64(1)}, columnValues(t, out, "len"))
	})

	t.Run("row-wise expressions are rejected", func(t *testing.T) {
		g, err := lf.GroupBy("g")
		require.NoError(t, err)
		_, err = g.Agg(ns.Col("a"))
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("invalid keys", func(t *testing.T) {
		_, err := lf.GroupBy()
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
		_, err = lf.GroupBy("missing")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	assert.GreaterOrEqual(t, ns.Metrics().GetSummary().OperationCounts["group_by"], 5)
}

func TestGroupByKeyResolutionMatchesEager(t *testing.T) {
	ns := newTestNamespace(t)
	lf := seedFrame(t, ns)
	df, err := lf.Collect(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    expr.Expr
		columns []string
	}{
		{"explicit multi-column", expr.Col("g", "a").Count(), []string{"g", "a"}},
		{"explicit key alone", expr.Col("g").Count().Alias("n"), []string{"g", "n"}},
		{"all columns", expr.All().Max(), []string{"g", "a", "b", "s", "flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lazyExpr, err := ns.Lower(tt.expr)
			require.NoError(t, err)
			lazyGroups, err := lf.GroupBy("g")
			require.NoError(t, err)
			lazyOut, err := lazyGroups.Agg(lazyExpr)
			require.NoError(t, err)
			collected, err := lazyOut.Collect(context.Background())
			require.NoError(t, err)

			eagerExpr, err := df.Namespace().Lower(tt.expr)
			require.NoError(t, err)
			eagerGroups, err := df.GroupBy("g")
			require.NoError(t, err)
			eagerOut, err := eagerGroups.Agg(eagerExpr)
			require.NoError(t, err)

			assert.Equal(t, tt.columns, collected.Columns())
			assert.Equal(t, tt.columns, eagerOut.Columns())
			for _, name := range tt.columns {
				want, err := eagerOut.GetColumn(name)
				require.NoError(t, err)
				got, err := collected.GetColumn(name)
				require.NoError(t, err)
				assert.Equal(t, want.Values(), got.Values(), name)
			}
		})
	}
}
