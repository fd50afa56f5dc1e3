package polyframe_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe"
	"github.com/paveg/polyframe/internal/config"
	"github.com/paveg/polyframe/internal/series"
	"github.com/paveg/polyframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLazy(t *testing.T) *polyframe.LazyNamespace {
	t.Helper()
	return polyframe.NewLazy(testutil.OpenSQLite(t), polyframe.Main)
}

func TestFromNative(t *testing.T) {
	native := testutil.CreateTestDataFrame(t, memory.NewGoAllocator())

	t.Run("frame", func(t *testing.T) {
		out, err := polyframe.FromNative(native)
		require.NoError(t, err)
		df, ok := out.(*polyframe.DataFrame)
		require.True(t, ok)
		assert.Equal(t, []string{"name", "age", "department", "salary"}, df.Columns())
		assert.Equal(t, polyframe.Arrow, df.Implementation())
	})

	t.Run("series", func(t *testing.T) {
		s := series.New("s", []string{"p"}, memory.NewGoAllocator())
		out, err := polyframe.FromNative(s)
		require.NoError(t, err)
		_, ok := out.(*polyframe.Series)
		assert.True(t, ok)
	})

	t.Run("relation", func(t *testing.T) {
		ns := openLazy(t)
		df, err := polyframe.NewEager(polyframe.Main).DataFrames().FromNative(native)
		require.NoError(t, err)
		lf, err := ns.FromEager(context.Background(), df)
		require.NoError(t, err)

		out, err := polyframe.FromNative(lf.Native())
		require.NoError(t, err)
		wrapped, ok := out.(*polyframe.LazyFrame)
		require.True(t, ok)
		assert.Equal(t, polyframe.SQLite, wrapped.Implementation())
		assert.Equal(t, lf.Columns(), wrapped.Columns())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := polyframe.FromNative(map[string]int{"a": 1})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, polyframe.ErrTypeMismatch))

		var dfErr *polyframe.DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "from_native", dfErr.Op)
	})
}

func TestBackends(t *testing.T) {
	assert.Equal(t, []polyframe.Implementation{polyframe.Arrow, polyframe.SQLite}, polyframe.Backends())

	for _, impl := range polyframe.Backends() {
		parsed, err := polyframe.ParseBackend(impl.String())
		require.NoError(t, err)
		assert.Equal(t, impl, parsed)
	}
	parsed, err := polyframe.ParseBackend("SQLite")
	require.NoError(t, err)
	assert.Equal(t, polyframe.SQLite, parsed)
	_, err = polyframe.ParseBackend("duckdb")
	assert.ErrorIs(t, err, polyframe.ErrInvalidInput)
}

func TestFromNativeReusesNamespaces(t *testing.T) {
	mem := memory.NewGoAllocator()
	first, err := polyframe.FromNative(testutil.CreateTestDataFrame(t, mem))
	require.NoError(t, err)
	second, err := polyframe.FromNative(testutil.CreateTestDataFrame(t, mem))
	require.NoError(t, err)
	assert.Same(t, first.(*polyframe.DataFrame).Namespace(), second.(*polyframe.DataFrame).Namespace())

	ns := openLazy(t)
	df, err := first.(*polyframe.DataFrame).Namespace().DataFrames().FromNative(testutil.CreateTestDataFrame(t, mem))
	require.NoError(t, err)
	a, err := ns.FromEager(context.Background(), df)
	require.NoError(t, err)
	b, err := ns.FromEager(context.Background(), df)
	require.NoError(t, err)

	wrappedA, err := polyframe.FromNative(a.Native())
	require.NoError(t, err)
	wrappedB, err := polyframe.FromNative(b.Native())
	require.NoError(t, err)
	assert.Same(t, wrappedA.(*polyframe.LazyFrame).Namespace(), wrappedB.(*polyframe.LazyFrame).Namespace())

	other := openLazy(t)
	c, err := other.FromEager(context.Background(), df)
	require.NoError(t, err)
	wrappedC, err := polyframe.FromNative(c.Native())
	require.NoError(t, err)
	assert.NotSame(t, wrappedA.(*polyframe.LazyFrame).Namespace(), wrappedC.(*polyframe.LazyFrame).Namespace())
}

func TestSameExpressionOnBothBackends(t *testing.T) {
	ctx := context.Background()
	eagerNS := polyframe.NewEager(polyframe.Main)
	frame, err := eagerNS.DataFrames().FromNative(testutil.CreateTestDataFrame(t, eagerNS.Allocator(), testutil.WithNulls()))
	require.NoError(t, err)

	lf, err := openLazy(t).FromEager(ctx, frame)
	require.NoError(t, err)

	exprs := []any{
		polyframe.Col("age").Mul(10).Alias("age10"),
		polyframe.SumHorizontal("age", "salary").Alias("total"),
		polyframe.When(polyframe.Col("department").Eq(polyframe.Lit("Sales"))).Then(1).Else(0).Alias("in_sales"),
		polyframe.Coalesce("age", polyframe.Lit(int64(0))).Alias("age_or_zero"),
	}

	eagerOut, err := frame.Select(exprs...)
	require.NoError(t, err)

	lazyOut, err := lf.Select(exprs...)
	require.NoError(t, err)
	collected, err := lazyOut.Collect(ctx)
	require.NoError(t, err)

	testutil.AssertDataFrameEqual(t, eagerOut.Native(), collected.Native())
}

func TestLoadConfig(t *testing.T) {
	previous := config.GetGlobalConfig()
	t.Cleanup(func() { config.SetGlobalConfig(previous) })

	path := filepath.Join(t.TempDir(), "polyframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_version: v1\nlog_level: error\n"), 0o600))

	cfg, err := polyframe.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.APIVersion)

	v, err := polyframe.DefaultVersion()
	require.NoError(t, err)
	assert.Equal(t, polyframe.V1, v)
	assert.NotNil(t, polyframe.Logger())

	_, err = polyframe.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
