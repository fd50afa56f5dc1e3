package eager

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/series"
	"github.com/stretchr/testify/require"
)

func newTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	return New(compliant.Main, WithAllocator(mem))
}

// frameOf builds a frame from boxed columns given as name, values pairs
func frameOf(t *testing.T, ns *Namespace, pairs ...any) *DataFrame {
	t.Helper()
	require.Zero(t, len(pairs)%2, "frameOf needs name/values pairs")
	cols := make([]*series.Series, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		s, err := series.FromValues(pairs[i].(string), pairs[i+1].([]any), dtypes.Unknown, ns.mem)
		require.NoError(t, err)
		cols = append(cols, s)
	}
	native, err := dataframe.New(cols...)
	require.NoError(t, err)
	for _, c := range cols {
		c.Release()
	}
	return ns.newFrame(native)
}

// columnValues returns the boxed values of a column of df
func columnValues(t *testing.T, df *DataFrame, name string) []any {
	t.Helper()
	s, err := df.GetColumn(name)
	require.NoError(t, err)
	return s.Values()
}

// evalValues evaluates e on df and returns the values of its single output
func evalValues(t *testing.T, df *DataFrame, e *Expr) []any {
	t.Helper()
	cols, err := df.Evaluate(e)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	defer releaseSeries(cols)
	return cols[0].Values()
}
