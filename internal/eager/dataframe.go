package eager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/parallel"
	"github.com/paveg/polyframe/internal/series"
	"github.com/paveg/polyframe/internal/validation"
)

// DataFrame wraps one native Arrow frame
type DataFrame struct {
	native *dataframe.DataFrame
	ns     *Namespace
}

var _ compliant.DataFrame[*dataframe.DataFrame, *Series] = (*DataFrame)(nil)

// Native returns the wrapped frame unchanged
func (df *DataFrame) Native() *dataframe.DataFrame { return df.native }

// Columns returns the column names in order
func (df *DataFrame) Columns() []string { return df.native.Columns() }

// Len returns the number of rows
func (df *DataFrame) Len() int { return df.native.Len() }

// Width returns the number of columns
func (df *DataFrame) Width() int { return df.native.Width() }

// Implementation returns the Arrow implementation tag
func (df *DataFrame) Implementation() compliant.Implementation { return compliant.ImplArrow }

// Version returns the API dialect of the owning namespace
func (df *DataFrame) Version() compliant.Version { return df.ns.version }

// Namespace returns the namespace that owns the frame
func (df *DataFrame) Namespace() *Namespace { return df.ns }

// String describes the frame
func (df *DataFrame) String() string { return df.native.String() }

// Schema returns the column names and types in order
func (df *DataFrame) Schema() compliant.Schema {
	names := df.native.Columns()
	types := df.native.DTypes()
	schema := make(compliant.Schema, len(names))
	for i, name := range names {
		schema[i] = compliant.Field{Name: name, DType: types[i]}
	}
	return schema
}

// GetColumn returns the named column as a series
func (df *DataFrame) GetColumn(name string) (*Series, error) {
	s, ok := df.native.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("get_column", name)
	}
	return &Series{native: s, ns: df.ns}, nil
}

func (df *DataFrame) columnsByName(names []string) ([]*series.Series, error) {
	out := make([]*series.Series, len(names))
	for i, name := range names {
		s, ok := df.native.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("col", name)
		}
		out[i] = s.Clone()
	}
	return out, nil
}

// Evaluate runs an expression against the frame.
// Each result is named after the corresponding output name of e.
func (df *DataFrame) Evaluate(e *Expr) ([]*series.Series, error) {
	return e.evaluate(df)
}

func (df *DataFrame) intoExprs(op string, inputs []any) ([]*Expr, error) {
	out := make([]*Expr, len(inputs))
	for i, in := range inputs {
		e, err := df.ns.IntoExpr(in)
		if err != nil {
			return nil, err
		}
		if e.Implementation() != compliant.ImplArrow {
			return nil, errors.NewInternalError(op, fmt.Sprintf("expression %s belongs to %s", e, e.Implementation()))
		}
		out[i] = e
	}
	return out, nil
}

func (df *DataFrame) evaluateAll(op string, exprs []*Expr) ([]*series.Series, error) {
	evaluate := func(_ context.Context, _ int, e *Expr) ([]*series.Series, error) {
		return e.evaluate(df)
	}

	var results [][]*series.Series
	var err error
	if len(exprs) > 1 && df.Len() >= df.ns.parallelThreshold {
		df.ns.logger.Debug(op+": parallel evaluation",
			slog.Int("rows", df.Len()), slog.Int("exprs", len(exprs)), slog.Int("limit", df.ns.maxParallelism))
		results, err = parallel.Map(context.Background(), exprs, df.ns.maxParallelism, evaluate)
	} else {
		results, err = parallel.Sequential(context.Background(), exprs, evaluate)
	}
	if err != nil {
		return nil, err
	}

	var flat []*series.Series
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}

// Select evaluates the expressions into a new frame.
// Single-value results are broadcast to the height of the other results.
// Strings name columns; other values must be expressions.
func (df *DataFrame) Select(exprs ...any) (*DataFrame, error) {
	parsed, err := df.intoExprs("select", exprs)
	if err != nil {
		return nil, err
	}

	var out *DataFrame
	err = df.ns.metrics.RecordOperation("select", compliant.ImplArrow.String(), func() (int64, error) {
		cols, err := df.evaluateAll("select", parsed)
		if err != nil {
			return 0, err
		}
		defer releaseSeries(cols)

		height := 0
		if len(cols) > 0 {
			height = 1
		}
		for _, c := range cols {
			if c.Len() != 1 {
				height = c.Len()
				break
			}
		}

		broadcast, err := broadcastTo(cols, height, df.ns)
		if err != nil {
			return 0, err
		}
		defer releaseSeries(broadcast)

		native, err := dataframe.New(broadcast...)
		if err != nil {
			return 0, err
		}
		out = df.ns.newFrame(native)
		return int64(native.Len()), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithColumns adds or replaces columns; single values are broadcast to the frame height
func (df *DataFrame) WithColumns(exprs ...any) (*DataFrame, error) {
	parsed, err := df.intoExprs("with_columns", exprs)
	if err != nil {
		return nil, err
	}
	cols, err := df.evaluateAll("with_columns", parsed)
	if err != nil {
		return nil, err
	}
	defer releaseSeries(cols)

	broadcast, err := broadcastTo(cols, df.Len(), df.ns)
	if err != nil {
		return nil, err
	}
	defer releaseSeries(broadcast)

	native, err := df.native.WithColumns(broadcast...)
	if err != nil {
		return nil, err
	}
	return df.ns.newFrame(native), nil
}

// Filter keeps the rows where predicate is true; null counts as false
func (df *DataFrame) Filter(predicate any) (*DataFrame, error) {
	parsed, err := df.intoExprs("filter", []any{predicate})
	if err != nil {
		return nil, err
	}
	cols, err := parsed[0].evaluate(df)
	if err != nil {
		return nil, err
	}
	defer releaseSeries(cols)
	if len(cols) != 1 {
		return nil, errors.NewInvalidInputError("filter", fmt.Sprintf("predicate must produce one column, got %d", len(cols)))
	}
	mask := cols[0]
	if mask.DType() != dtypes.Boolean && mask.DType() != dtypes.Null {
		return nil, &errors.DataFrameError{
			Op:      "filter",
			Column:  mask.Name(),
			Message: fmt.Sprintf("predicate must be boolean, got %s", mask.DType()),
			Cause:   errors.ErrTypeMismatch,
		}
	}

	if mask.Len() != 1 && mask.Len() != df.Len() {
		return nil, errors.NewInvalidInputError("filter",
			fmt.Sprintf("predicate has %d rows, frame has %d", mask.Len(), df.Len()))
	}

	keep := make([]int, 0, df.Len())
	for i := 0; i < df.Len(); i++ {
		row := i
		if mask.Len() == 1 {
			row = 0
		}
		if v, ok := mask.Value(row).(bool); ok && v {
			keep = append(keep, i)
		}
	}

	native, err := df.native.Take(keep, df.ns.mem)
	if err != nil {
		return nil, err
	}
	return df.ns.newFrame(native), nil
}

// GroupBy groups the frame by the given key columns
func (df *DataFrame) GroupBy(keys ...string) (*GroupBy, error) {
	if err := validation.ValidateKeys(df, "group_by", keys...); err != nil {
		return nil, err
	}
	return &GroupBy{df: df, keys: append([]string(nil), keys...)}, nil
}

// FrameClass admits native Arrow frames
type FrameClass struct {
	ns *Namespace
}

// IsNative reports whether v is a native Arrow frame
func (c FrameClass) IsNative(v any) bool {
	df, ok := v.(*dataframe.DataFrame)
	return ok && df != nil
}

// FromNative wraps a native Arrow frame
func (c FrameClass) FromNative(v any) (*DataFrame, error) {
	if !c.IsNative(v) {
		return nil, c.ns.typeMismatch("from_native", v)
	}
	return c.ns.newFrame(v.(*dataframe.DataFrame)), nil
}

// FromNumpy builds a frame from a two-dimensional array-like.
// schema is nil (columns named column_0, column_1, ...), a []string of
// names or a compliant.Schema whose types the values are cast to.
func (c FrameClass) FromNumpy(data any, schema any) (*DataFrame, error) {
	native, err := frameFromArray(data, schema, c.ns)
	if err != nil {
		return nil, err
	}
	return c.ns.newFrame(native), nil
}

func releaseSeries(cols []*series.Series) {
	for _, s := range cols {
		s.Release()
	}
}
