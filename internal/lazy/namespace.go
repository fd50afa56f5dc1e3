// Package lazy is the SQLite-backed lazy backend.
//
// Frames are relation.Relation query plans; expressions render to SQL
// fragments that are only executed when a frame is collected. Collected
// results come back as frames of the eager backend.
package lazy

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/config"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/eager"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/logging"
	"github.com/paveg/polyframe/internal/monitoring"
	"github.com/paveg/polyframe/internal/relation"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver the backend opens
const DriverName = "sqlite"

// Namespace is the entry point of the lazy backend
type Namespace struct {
	compliant.Columns[*LazyFrame, *Expr]

	version compliant.Version
	db      *sql.DB
	owned   bool
	eager   *eager.Namespace
	logger  *slog.Logger
	metrics *monitoring.MetricsCollector

	frames FrameClass
}

var _ compliant.Namespace[*LazyFrame, *Expr] = (*Namespace)(nil)

// Option configures a Namespace
type Option func(*Namespace)

// WithEager sets the eager namespace collected frames belong to
func WithEager(ns *eager.Namespace) Option {
	return func(n *Namespace) {
		if ns != nil {
			n.eager = ns
		}
	}
}

// WithLogger sets the logger used for rendered queries
func WithLogger(logger *slog.Logger) Option {
	return func(n *Namespace) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithMetrics records collect, concat and group-by timings in mc
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(n *Namespace) {
		n.metrics = mc
	}
}

// New creates a lazy namespace over an open database
func New(db *sql.DB, v compliant.Version, opts ...Option) *Namespace {
	ns := &Namespace{
		version: v,
		db:      db,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(ns)
	}
	if ns.metrics == nil {
		ns.metrics = monitoring.NewMetricsCollector(config.GetGlobalConfig().WithDefaults().MetricsCollection)
	}
	if ns.eager == nil {
		ns.eager = eager.New(v, eager.WithLogger(ns.logger), eager.WithMetrics(ns.metrics))
	}
	ns.Columns = compliant.Columns[*LazyFrame, *Expr]{Factory: ns}
	ns.frames = FrameClass{ns: ns}
	return ns
}

// Open connects to dsn and returns a namespace that owns the connection.
// In-memory databases live on a single connection.
func Open(ctx context.Context, dsn string, v compliant.Version, opts ...Option) (*Namespace, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.NewBackendError("open", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewBackendError("open", err)
	}
	ns := New(db, v, opts...)
	ns.owned = true
	return ns, nil
}

// Close releases the database when the namespace opened it
func (ns *Namespace) Close() error {
	if !ns.owned {
		return nil
	}
	return ns.db.Close()
}

// DB returns the database the namespace runs against
func (ns *Namespace) DB() *sql.DB {
	return ns.db
}

// Implementation returns the SQLite implementation tag
func (ns *Namespace) Implementation() compliant.Implementation {
	return compliant.ImplSQLite
}

// Version returns the API dialect of the namespace
func (ns *Namespace) Version() compliant.Version {
	return ns.version
}

// BackendVersion returns the version of the SQLite driver module in use
func (ns *Namespace) BackendVersion() []int {
	return compliant.ImplSQLite.BackendVersion()
}

// Eager returns the namespace collected frames belong to
func (ns *Namespace) Eager() *eager.Namespace {
	return ns.eager
}

// Metrics returns the collector the namespace records into
func (ns *Namespace) Metrics() *monitoring.MetricsCollector {
	return ns.metrics
}

// LazyFrames returns the admission class of lazy frames
func (ns *Namespace) LazyFrames() FrameClass {
	return ns.frames
}

// FromColumnNames builds a column-reference expression
func (ns *Namespace) FromColumnNames(names compliant.EvalNames[*LazyFrame], functionName string) *Expr {
	meta := compliant.NewExprMeta(names, functionName, compliant.ImplSQLite, ns.version)
	out := newExpr(ns, meta, func(lf *LazyFrame, _ bool) ([]fragment, error) {
		resolved, err := names(lf)
		if err != nil {
			return nil, err
		}
		frags := make([]fragment, len(resolved))
		for i, name := range resolved {
			c, ok := lf.native.Lookup(name)
			if !ok {
				return nil, errors.NewColumnNotFoundError("col", name)
			}
			frags[i] = fragment{sql: relation.QuoteIdent(name), dtype: c.Type}
		}
		return frags, nil
	})
	out.implicit = functionName == "selector"
	return out
}

// FromColumnIndices builds a positional column-reference expression
func (ns *Namespace) FromColumnIndices(indices ...int) *Expr {
	return ns.FromColumnNames(compliant.IndexedColumnNames[*LazyFrame](indices), "")
}

// Len counts the rows of the frame as a single value named "len"
func (ns *Namespace) Len() *Expr {
	meta := compliant.NewExprMeta(compliant.PassthroughColumnNames[*LazyFrame]([]string{"len"}), "", compliant.ImplSQLite, ns.version)
	return newExpr(ns, meta, func(_ *LazyFrame, window bool) ([]fragment, error) {
		return []fragment{{sql: aggregateCall("COUNT(*)", window), dtype: dtypes.Int64, scalar: true, aggregate: true}}, nil
	})
}

// Lit returns a single value named "literal".
// dtypes.Unknown infers the type from value.
func (ns *Namespace) Lit(value any, dtype dtypes.DType) *Expr {
	meta := compliant.NewExprMeta(compliant.PassthroughColumnNames[*LazyFrame]([]string{"literal"}), "", compliant.ImplSQLite, ns.version)
	return newExpr(ns, meta, func(*LazyFrame, bool) ([]fragment, error) {
		sql, inferred, err := relation.Literal(value)
		if err != nil {
			return nil, errors.NewTypeMismatchError("lit", value)
		}
		if dtype != dtypes.Unknown && dtype != inferred {
			if inferred != dtypes.Null && dtypes.Promote(inferred, dtype) != dtype {
				return nil, errors.NewTypeMismatchError("lit", value)
			}
			sql, inferred = relation.Cast(sql, dtype), dtype
		}
		return []fragment{{sql: sql, dtype: inferred, scalar: true}}, nil
	})
}

// AllHorizontal is true where every input is true
func (ns *Namespace) AllHorizontal(ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalAll, logicalSQL("AND", ignoreNulls), exprs)
}

// AnyHorizontal is true where some input is true
func (ns *Namespace) AnyHorizontal(ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalAny, logicalSQL("OR", ignoreNulls), exprs)
}

// SumHorizontal adds the inputs row by row, nulls counting as zero
func (ns *Namespace) SumHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalSum, sumSQL, exprs)
}

// MeanHorizontal averages the non-null inputs row by row
func (ns *Namespace) MeanHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMean, meanSQL, exprs)
}

// MinHorizontal takes the smallest non-null input row by row
func (ns *Namespace) MinHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMin, extremeSQL("MIN"), exprs)
}

// MaxHorizontal takes the largest non-null input row by row
func (ns *Namespace) MaxHorizontal(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalMax, extremeSQL("MAX"), exprs)
}

// Coalesce takes the first non-null input row by row
func (ns *Namespace) Coalesce(exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalCoalesce, coalesceSQL, exprs)
}

// ConcatStr joins the inputs as text row by row
func (ns *Namespace) ConcatStr(separator string, ignoreNulls bool, exprs ...*Expr) *Expr {
	return ns.horizontal(expr.HorizontalConcatStr, concatStrSQL(separator, ignoreNulls), exprs)
}

// When starts a conditional expression
func (ns *Namespace) When(predicate *Expr) *compliant.When[*Expr] {
	return compliant.NewWhen[*Expr](ns, predicate)
}

// Selectors returns the selector namespace of the backend
func (ns *Namespace) Selectors() *compliant.SelectorNamespace[*LazyFrame, *Expr] {
	return compliant.NewSelectorNamespace[*LazyFrame, *Expr](ns, func(lf *LazyFrame) (compliant.Schema, error) {
		return lf.Schema(), nil
	})
}

// ParseIntoExpr classifies data with the shared rules
func (ns *Namespace) ParseIntoExpr(data any, strAsLit bool) (any, error) {
	return compliant.ParseIntoExpr[*LazyFrame, *Expr](ns, data, strAsLit)
}

// Lower translates an expression-language tree into a lazy expression
func (ns *Namespace) Lower(e expr.Expr) (*Expr, error) {
	return compliant.Lower[*LazyFrame, *Expr](ns, e)
}

// IntoExpr turns any accepted input into a lazy expression.
// Strings are column names.
func (ns *Namespace) IntoExpr(data any) (*Expr, error) {
	return compliant.IntoExpr[*LazyFrame, *Expr](ns, data, false)
}

// FromNative admits a native relation and nothing else
func (ns *Namespace) FromNative(data any) (*LazyFrame, error) {
	return compliant.FromNativeLazy[*LazyFrame](ns.frames, data)
}

// Table returns a lazy frame over an existing table
func (ns *Namespace) Table(ctx context.Context, name string) (*LazyFrame, error) {
	rel, err := relation.FromTable(ctx, ns.db, name)
	if err != nil {
		return nil, err
	}
	return ns.newFrame(rel), nil
}

// Query returns a lazy frame over a SELECT statement with known result columns
func (ns *Namespace) Query(query string, schema compliant.Schema) *LazyFrame {
	columns := make([]relation.Column, len(schema))
	for i, f := range schema {
		columns[i] = relation.Column{Name: f.Name, Type: f.DType}
	}
	return ns.newFrame(relation.New(ns.db, query, columns))
}

// FromEager copies an eager frame into the database
func (ns *Namespace) FromEager(ctx context.Context, df *eager.DataFrame) (*LazyFrame, error) {
	var out *LazyFrame
	err := ns.metrics.RecordOperation("from_eager", compliant.ImplSQLite.String(), func() (int64, error) {
		rel, err := relation.Materialize(ctx, ns.db, df.Native())
		if err != nil {
			return 0, err
		}
		ns.logger.Debug("from_eager", slog.String("query", rel.SQL()), slog.Int("rows", df.Len()))
		out = ns.newFrame(rel)
		return int64(df.Len()), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Concat joins lazy frames. Horizontal concatenation has no row order to
// align on and is rejected.
func (ns *Namespace) Concat(items []*LazyFrame, how compliant.ConcatMethod) (*LazyFrame, error) {
	ns.logger.Debug("concat", slog.String("how", string(how)), slog.Int("frames", len(items)))

	switch how {
	case compliant.ConcatVertical, compliant.ConcatDiagonal:
	case compliant.ConcatHorizontal:
		return nil, errors.NewInvalidInputError("concat", "horizontal concatenation is not supported for lazy frames")
	default:
		return nil, errors.NewUnreachableError("concat", how)
	}

	var out *LazyFrame
	err := ns.metrics.RecordOperation("concat", compliant.ImplSQLite.String(), func() (int64, error) {
		rels := make([]*relation.Relation, len(items))
		for i, item := range items {
			rels[i] = item.Native()
		}
		if how == compliant.ConcatDiagonal {
			var err error
			if rels, err = padToUnion(rels); err != nil {
				return 0, err
			}
		}
		rel, err := relation.UnionAll(rels)
		if err != nil {
			return 0, err
		}
		out = ns.newFrame(rel)
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// padToUnion projects every relation onto the union of all columns in
// first-seen order, filling missing columns with NULL
func padToUnion(rels []*relation.Relation) ([]*relation.Relation, error) {
	var names []string
	types := make(map[string]dtypes.DType)
	for _, rel := range rels {
		for _, c := range rel.Schema() {
			if _, seen := types[c.Name]; !seen {
				names = append(names, c.Name)
				types[c.Name] = c.Type
			}
		}
	}

	out := make([]*relation.Relation, len(rels))
	for i, rel := range rels {
		items := make([]relation.Projection, len(names))
		for j, name := range names {
			if c, ok := rel.Lookup(name); ok {
				items[j] = relation.Projection{SQL: relation.QuoteIdent(name), Name: name, Type: c.Type}
			} else {
				items[j] = relation.Projection{SQL: "NULL", Name: name, Type: dtypes.Null}
			}
		}
		padded, err := rel.Project(items)
		if err != nil {
			return nil, err
		}
		out[i] = padded
	}
	return out, nil
}

func (ns *Namespace) newFrame(rel *relation.Relation) *LazyFrame {
	return &LazyFrame{native: rel, ns: ns}
}
