// Package eager is the Arrow-backed eager backend.
//
// A Namespace builds expressions over *DataFrame values that wrap the native
// dataframe.DataFrame. Expressions are closures evaluated against a frame;
// they carry depth-tracking metadata so group-by can map simple
// aggregations onto a direct per-group reduction.
package eager

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/config"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/logging"
	"github.com/paveg/polyframe/internal/monitoring"
	"github.com/paveg/polyframe/internal/series"
)

// Namespace is the entry point of the eager backend
type Namespace struct {
	compliant.DepthTracking[*DataFrame, *Expr]

	version           compliant.Version
	mem               memory.Allocator
	logger            *slog.Logger
	metrics           *monitoring.MetricsCollector
	parallelThreshold int
	maxParallelism    int

	frames FrameClass
	series SeriesClass
}

var _ compliant.Namespace[*DataFrame, *Expr] = (*Namespace)(nil)

// Option configures a Namespace
type Option func(*Namespace)

// WithAllocator sets the Arrow allocator used for every array the namespace builds
func WithAllocator(mem memory.Allocator) Option {
	return func(ns *Namespace) {
		if mem != nil {
			ns.mem = mem
		}
	}
}

// WithLogger sets the logger used for dispatch decisions
func WithLogger(logger *slog.Logger) Option {
	return func(ns *Namespace) {
		if logger != nil {
			ns.logger = logger
		}
	}
}

// WithMetrics records concat, select and group-by timings in mc
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(ns *Namespace) {
		ns.metrics = mc
	}
}

// WithParallelism overrides the row threshold and concurrency limit of Select
func WithParallelism(threshold, limit int) Option {
	return func(ns *Namespace) {
		if threshold > 0 {
			ns.parallelThreshold = threshold
		}
		if limit > 0 {
			ns.maxParallelism = limit
		}
	}
}

// New creates an eager namespace for the given API version.
// Defaults come from the global configuration.
func New(v compliant.Version, opts ...Option) *Namespace {
	cfg := config.GetGlobalConfig().WithDefaults()
	ns := &Namespace{
		version:           v,
		mem:               memory.NewGoAllocator(),
		logger:            logging.Discard(),
		metrics:           monitoring.NewMetricsCollector(cfg.MetricsCollection),
		parallelThreshold: cfg.ParallelThreshold,
		maxParallelism:    cfg.MaxParallelism,
	}
	for _, opt := range opts {
		opt(ns)
	}
	ns.DepthTracking = compliant.DepthTracking[*DataFrame, *Expr]{Factory: ns}
	ns.frames = FrameClass{ns: ns}
	ns.series = SeriesClass{ns: ns}
	return ns
}

// Implementation returns the Arrow implementation tag
func (ns *Namespace) Implementation() compliant.Implementation {
	return compliant.ImplArrow
}

// Version returns the API dialect of the namespace
func (ns *Namespace) Version() compliant.Version {
	return ns.version
}

// BackendVersion returns the version of the Arrow module in use
func (ns *Namespace) BackendVersion() []int {
	return compliant.ImplArrow.BackendVersion()
}

// Allocator returns the Arrow allocator of the namespace
func (ns *Namespace) Allocator() memory.Allocator {
	return ns.mem
}

// Metrics returns the collector the namespace records into
func (ns *Namespace) Metrics() *monitoring.MetricsCollector {
	return ns.metrics
}

// DataFrames returns the admission class of eager frames
func (ns *Namespace) DataFrames() FrameClass {
	return ns.frames
}

// Series returns the admission class of eager series
func (ns *Namespace) Series() SeriesClass {
	return ns.series
}

// FromColumnNames builds a column-reference expression
func (ns *Namespace) FromColumnNames(names compliant.EvalNames[*DataFrame], functionName string) *Expr {
	meta := compliant.NewExprMeta(names, functionName, compliant.ImplArrow, ns.version)
	return newExpr(ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		resolved, err := names(df)
		if err != nil {
			return nil, err
		}
		return df.columnsByName(resolved)
	})
}

// FromColumnIndices builds a positional column-reference expression
func (ns *Namespace) FromColumnIndices(indices ...int) *Expr {
	return ns.FromColumnNames(compliant.IndexedColumnNames[*DataFrame](indices), "nth")
}

// Len returns the frame height as a single value named "len"
func (ns *Namespace) Len() *Expr {
	meta := compliant.NewExprMeta(compliant.PassthroughColumnNames[*DataFrame]([]string{"len"}), "len", compliant.ImplArrow, ns.version)
	return newExpr(ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		return []*series.Series{series.New("len", []int64{int64(df.Len())}, ns.mem)}, nil
	})
}

// Lit returns a single value named "literal".
// dtypes.Unknown infers the type from value.
func (ns *Namespace) Lit(value any, dtype dtypes.DType) *Expr {
	meta := compliant.NewExprMeta(compliant.PassthroughColumnNames[*DataFrame]([]string{"literal"}), "lit", compliant.ImplArrow, ns.version)
	return newExpr(ns, meta, func(*DataFrame) ([]*series.Series, error) {
		s, err := series.FromValues("literal", []any{value}, dtype, ns.mem)
		if err != nil {
			return nil, err
		}
		return []*series.Series{s}, nil
	})
}

// seriesExpr turns a series into an expression yielding it unchanged
func (ns *Namespace) seriesExpr(s *series.Series) *Expr {
	meta := compliant.NewExprMeta(compliant.PassthroughColumnNames[*DataFrame]([]string{s.Name()}), "series", compliant.ImplArrow, ns.version)
	return newExpr(ns, meta, func(*DataFrame) ([]*series.Series, error) {
		return []*series.Series{s.Clone()}, nil
	})
}

// AllHorizontal is true where every input is true
func (ns *Namespace) AllHorizontal(ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalAll, allReducer(ignoreNulls), exprs)
}

// AnyHorizontal is true where some input is true
func (ns *Namespace) AnyHorizontal(ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalAny, anyReducer(ignoreNulls), exprs)
}

// SumHorizontal adds the inputs row by row, nulls counting as zero
func (ns *Namespace) SumHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalSum, sumReducer, exprs)
}

// MeanHorizontal averages the non-null inputs row by row
func (ns *Namespace) MeanHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMean, meanReducer, exprs)
}

// MinHorizontal takes the smallest non-null input row by row
func (ns *Namespace) MinHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMin, extremeReducer(-1), exprs)
}

// MaxHorizontal takes the largest non-null input row by row
func (ns *Namespace) MaxHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMax, extremeReducer(1), exprs)
}

// Coalesce takes the first non-null input row by row
func (ns *Namespace) Coalesce(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalCoalesce, coalesceReducer, exprs)
}

// ConcatStr joins the inputs as strings row by row
func (ns *Namespace) ConcatStr(separator string, ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalConcatStr, concatStrReducer(separator, ignoreNulls), exprs)
}

// Concat joins frames with the given method
func (ns *Namespace) Concat(items []*DataFrame, how compliant.ConcatMethod) (*DataFrame, error) {
	ns.logger.Debug("concat", slog.String("how", string(how)), slog.Int("frames", len(items)))

	var out *DataFrame
	err := ns.metrics.RecordOperation("concat", compliant.ImplArrow.String(), func() (int64, error) {
		var err error
		out, err = compliant.ConcatEager[*dataframe.DataFrame, *DataFrame](items, how, ns, ns.frames)
		if err != nil {
			return 0, err
		}
		return int64(out.Len()), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConcatHorizontal places native frames side by side
func (ns *Namespace) ConcatHorizontal(natives []*dataframe.DataFrame) (*dataframe.DataFrame, error) {
	return dataframe.HConcat(natives)
}

// ConcatVertical stacks native frames with identical columns
func (ns *Namespace) ConcatVertical(natives []*dataframe.DataFrame) (*dataframe.DataFrame, error) {
	return dataframe.Concat(natives, ns.mem)
}

// ConcatDiagonal stacks native frames over the union of their columns
func (ns *Namespace) ConcatDiagonal(natives []*dataframe.DataFrame) (*dataframe.DataFrame, error) {
	return dataframe.DiagonalConcat(natives, ns.mem)
}

// When starts a conditional expression
func (ns *Namespace) When(predicate *Expr) *compliant.When[*Expr] {
	return compliant.NewWhen[*Expr](ns, predicate)
}

// Selectors returns the selector namespace of the backend
func (ns *Namespace) Selectors() *compliant.SelectorNamespace[*DataFrame, *Expr] {
	return compliant.NewSelectorNamespace[*DataFrame, *Expr](ns, func(df *DataFrame) (compliant.Schema, error) {
		return df.Schema(), nil
	})
}

// ParseIntoExpr classifies data. Eager series and one-dimensional
// array-likes become expressions directly.
func (ns *Namespace) ParseIntoExpr(data any, strAsLit bool) (any, error) {
	switch d := data.(type) {
	case *Series:
		return ns.seriesExpr(d.Native()), nil
	case *series.Series:
		return ns.seriesExpr(d), nil
	}
	if compliant.Is1DArray(data) {
		s, err := ns.series.FromNumpy(data, nil)
		if err != nil {
			return nil, err
		}
		return ns.seriesExpr(s.Native()), nil
	}
	return compliant.ParseIntoExpr[*DataFrame, *Expr](ns, data, strAsLit)
}

// Lower translates an expression-language tree into an eager expression
func (ns *Namespace) Lower(e expr.Expr) (*Expr, error) {
	return compliant.Lower[*DataFrame, *Expr](ns, e)
}

// IntoExpr turns any accepted input into an eager expression.
// Strings are column names.
func (ns *Namespace) IntoExpr(data any) (*Expr, error) {
	return compliant.IntoExpr[*DataFrame, *Expr](ns, data, false)
}

// FromNative wraps a native frame or series; the result is a *DataFrame or a *Series
func (ns *Namespace) FromNative(data any) (any, error) {
	return compliant.FromNativeEager[*DataFrame, *Series](ns.frames, ns.series, data)
}

// FromNumpy builds a *DataFrame from a 2-D array-like and a *Series from a 1-D one
func (ns *Namespace) FromNumpy(data any, schema any) (any, error) {
	return compliant.FromNumpy[*DataFrame, *Series](ns.frames, ns.series, data, schema)
}

// newFrame wraps a native frame produced by the namespace
func (ns *Namespace) newFrame(native *dataframe.DataFrame) *DataFrame {
	return &DataFrame{native: native, ns: ns}
}

func (ns *Namespace) typeMismatch(op string, value any) error {
	return errors.NewTypeMismatchError(op, value)
}
