package lazy

import (
	"context"
	"testing"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/monitoring"
	"github.com/stretchr/testify/require"
)

const seedSQL = `
CREATE TABLE t (a INTEGER, b REAL, s TEXT, flag BOOLEAN, g TEXT);
INSERT INTO t VALUES
	(1, 1.5, 'x', 1, 'p'),
	(2, NULL, 'y', 0, 'q'),
	(3, 3.0, NULL, NULL, 'p'),
	(NULL, 4.5, 'w', 1, 'q');
`

func newTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	ns, err := Open(context.Background(), ":memory:", compliant.Main,
		WithMetrics(monitoring.NewMetricsCollector(true)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ns.Close() })
	return ns
}

// seedFrame returns a frame over a four-row table:
//
//	a    b    s    flag  g
//	1    1.5  x    true  p
//	2    nil  y    false q
//	3    3.0  nil  nil   p
//	nil  4.5  w    true  q
func seedFrame(t *testing.T, ns *Namespace) *LazyFrame {
	t.Helper()
	_, err := ns.DB().ExecContext(context.Background(), seedSQL)
	require.NoError(t, err)
	lf, err := ns.Table(context.Background(), "t")
	require.NoError(t, err)
	return lf
}

// columnValues collects lf and returns the values of one column
func columnValues(t *testing.T, lf *LazyFrame, name string) []any {
	t.Helper()
	df, err := lf.Collect(context.Background())
	require.NoError(t, err)
	s, err := df.GetColumn(name)
	require.NoError(t, err)
	return s.Values()
}

// selectValues selects e and returns the values of its single output
func selectValues(t *testing.T, lf *LazyFrame, e *Expr) []any {
	t.Helper()
	out, err := lf.Select(e)
	require.NoError(t, err)
	require.Len(t, out.Columns(), 1)
	return columnValues(t, out, out.Columns()[0])
}
