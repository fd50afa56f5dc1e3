// Package polyframe runs one expression language over interchangeable
// dataframe backends: an eager Arrow engine and a lazy SQLite engine.
//
// Expressions are built with the constructors of this package and handed to
// any frame; each backend lowers them through its own namespace. This package
// is the sole public API of the library.
package polyframe

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/config"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/eager"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/lazy"
	"github.com/paveg/polyframe/internal/logging"
	"github.com/paveg/polyframe/internal/relation"
)

type (
	// Expr is a backend-neutral expression
	Expr = expr.Expr
	// DType is a column data type
	DType = dtypes.DType
	// Implementation identifies a backend
	Implementation = compliant.Implementation
	// Version is the API dialect a namespace speaks
	Version = compliant.Version
	// ConcatMethod selects how frames are concatenated
	ConcatMethod = compliant.ConcatMethod
	// Schema is an ordered list of named column types
	Schema = compliant.Schema
	// Field is a named column type
	Field = compliant.Field

	// EagerNamespace builds expressions and frames on the Arrow backend
	EagerNamespace = eager.Namespace
	// DataFrame is an eager Arrow-backed frame
	DataFrame = eager.DataFrame
	// Series is an eager Arrow-backed column
	Series = eager.Series

	// LazyNamespace builds expressions and frames on the SQLite backend
	LazyNamespace = lazy.Namespace
	// LazyFrame is a SQL plan that runs on Collect
	LazyFrame = lazy.LazyFrame

	// Config holds library-wide settings
	Config = config.Config
	// DataFrameError is the error type every operation returns
	DataFrameError = errors.DataFrameError
)

const (
	Arrow  = compliant.ImplArrow
	SQLite = compliant.ImplSQLite

	V1   = compliant.V1
	Main = compliant.Main

	Vertical   = compliant.ConcatVertical
	Horizontal = compliant.ConcatHorizontal
	Diagonal   = compliant.ConcatDiagonal

	Null    = dtypes.Null
	Boolean = dtypes.Boolean
	Int64   = dtypes.Int64
	Float64 = dtypes.Float64
	String  = dtypes.String
)

// Error sentinels, usable with errors.Is
var (
	ErrTypeMismatch = errors.ErrTypeMismatch
	ErrInvalidInput = errors.ErrInvalidInput
	ErrInternal     = errors.ErrInternal
	ErrUnreachable  = errors.ErrUnreachable
	ErrUnsupported  = errors.ErrUnsupported
)

// Expression constructors

// Col references columns by name
func Col(names ...string) *expr.ColumnExpr { return expr.Col(names...) }

// All references every column
func All() *expr.AllExpr { return expr.All() }

// Exclude references every column except names
func Exclude(names ...string) *expr.ExcludeExpr { return expr.Exclude(names...) }

// Nth references columns by position
func Nth(indices ...int) *expr.NthExpr { return expr.Nth(indices...) }

// Lit creates a literal with an inferred type
func Lit(value any) *expr.LiteralExpr { return expr.Lit(value) }

// LitAs creates a literal with an explicit type
func LitAs(value any, dtype DType) *expr.LiteralExpr { return expr.LitAs(value, dtype) }

// Len counts rows
func Len() *expr.LenExpr { return expr.Len() }

// Sum creates a sum aggregation
func Sum(input Expr) *expr.AggregationExpr { return expr.Sum(input) }

// Mean creates a mean aggregation
func Mean(input Expr) *expr.AggregationExpr { return expr.Mean(input) }

// Min creates a min aggregation
func Min(input Expr) *expr.AggregationExpr { return expr.Min(input) }

// Max creates a max aggregation
func Max(input Expr) *expr.AggregationExpr { return expr.Max(input) }

// Count creates a count of non-null values
func Count(input Expr) *expr.AggregationExpr { return expr.Count(input) }

// AllHorizontal is true where every input is true
func AllHorizontal(ignoreNulls bool, inputs ...any) *expr.HorizontalExpr {
	return expr.AllHorizontal(ignoreNulls, inputs...)
}

// AnyHorizontal is true where some input is true
func AnyHorizontal(ignoreNulls bool, inputs ...any) *expr.HorizontalExpr {
	return expr.AnyHorizontal(ignoreNulls, inputs...)
}

// SumHorizontal adds the inputs row by row
func SumHorizontal(inputs ...any) *expr.HorizontalExpr { return expr.SumHorizontal(inputs...) }

// MeanHorizontal averages the non-null inputs row by row
func MeanHorizontal(inputs ...any) *expr.HorizontalExpr { return expr.MeanHorizontal(inputs...) }

// MinHorizontal takes the smallest non-null input row by row
func MinHorizontal(inputs ...any) *expr.HorizontalExpr { return expr.MinHorizontal(inputs...) }

// MaxHorizontal takes the largest non-null input row by row
func MaxHorizontal(inputs ...any) *expr.HorizontalExpr { return expr.MaxHorizontal(inputs...) }

// Coalesce takes the first non-null input row by row
func Coalesce(inputs ...any) *expr.HorizontalExpr { return expr.Coalesce(inputs...) }

// ConcatStr joins the inputs as strings row by row
func ConcatStr(separator string, ignoreNulls bool, inputs ...any) *expr.HorizontalExpr {
	return expr.ConcatStr(separator, ignoreNulls, inputs...)
}

// When starts a conditional chain
func When(condition any) *expr.PendingCase { return expr.When(condition) }

// Namespaces

// LoadConfig reads defaults, the YAML file at path and POLYFRAME_ variables,
// and installs the result as the process-wide configuration.
func LoadConfig(path string) (Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Config{}, err
	}
	config.SetGlobalConfig(cfg)
	return cfg, nil
}

// DefaultVersion is the API dialect configured for the process
func DefaultVersion() (Version, error) {
	return compliant.ParseVersion(config.GetGlobalConfig().WithDefaults().APIVersion)
}

// Logger builds the logger described by the process-wide configuration.
// An unusable setting yields a logger that discards everything.
func Logger() *slog.Logger {
	cfg := config.GetGlobalConfig().WithDefaults()
	logger, err := logging.FromSettings(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return logging.Discard()
	}
	return logger
}

// NewEager creates an Arrow namespace for v
func NewEager(v Version, opts ...eager.Option) *EagerNamespace {
	opts = append([]eager.Option{eager.WithLogger(Logger())}, opts...)
	return eager.New(v, opts...)
}

// NewLazy creates a SQLite namespace for v over an open database
func NewLazy(db *sql.DB, v Version, opts ...lazy.Option) *LazyNamespace {
	opts = append([]lazy.Option{lazy.WithLogger(Logger())}, opts...)
	return lazy.New(db, v, opts...)
}

// OpenLazy opens the configured SQLite database and creates a namespace
// owning it. Close the namespace to release the database.
func OpenLazy(ctx context.Context, v Version, opts ...lazy.Option) (*LazyNamespace, error) {
	dsn := config.GetGlobalConfig().WithDefaults().SQLiteDSN
	opts = append([]lazy.Option{lazy.WithLogger(Logger())}, opts...)
	return lazy.Open(ctx, dsn, v, opts...)
}

// backend admits the native objects of one implementation.
// admit reports false when data is not native to the backend.
type backend struct {
	impl  Implementation
	admit func(v Version, data any) (any, bool, error)
}

var backends = []backend{
	{
		impl: Arrow,
		admit: func(v Version, data any) (any, bool, error) {
			ns := eagerNamespace(v)
			if !ns.DataFrames().IsNative(data) && !ns.Series().IsNative(data) {
				return nil, false, nil
			}
			out, err := ns.FromNative(data)
			return out, true, err
		},
	},
	{
		impl: SQLite,
		admit: func(v Version, data any) (any, bool, error) {
			if !(lazy.FrameClass{}).IsNative(data) {
				return nil, false, nil
			}
			rel := data.(*relation.Relation)
			lf, err := lazyNamespace(v, rel.DB()).LazyFrames().FromNative(rel)
			if err != nil {
				return nil, true, err
			}
			return lf, true, nil
		},
	},
}

// namespaceKey identifies a cached namespace; db is nil for Arrow
type namespaceKey struct {
	impl Implementation
	v    Version
	db   *sql.DB
}

// namespaces built by FromNative, one per backend, version and database.
// They keep the logger configured when they were first built.
var (
	namespacesMu sync.Mutex
	namespaces   = make(map[namespaceKey]any)
)

func cachedNamespace[N any](key namespaceKey, build func() N) N {
	namespacesMu.Lock()
	defer namespacesMu.Unlock()
	if ns, ok := namespaces[key]; ok {
		return ns.(N)
	}
	ns := build()
	namespaces[key] = ns
	return ns
}

func eagerNamespace(v Version) *EagerNamespace {
	return cachedNamespace(namespaceKey{impl: Arrow, v: v}, func() *EagerNamespace {
		return NewEager(v)
	})
}

func lazyNamespace(v Version, db *sql.DB) *LazyNamespace {
	return cachedNamespace(namespaceKey{impl: SQLite, v: v, db: db}, func() *LazyNamespace {
		return NewLazy(db, v)
	})
}

// ParseBackend maps a backend name such as "arrow" or "sqlite" onto its
// Implementation, ignoring case.
func ParseBackend(name string) (Implementation, error) {
	return compliant.ParseImplementation(name)
}

// Backends lists the registered implementations in admission order
func Backends() []Implementation {
	out := make([]Implementation, len(backends))
	for i, b := range backends {
		out[i] = b.impl
	}
	return out
}

// FromNative wraps a native frame, series or relation in the namespace of
// the first backend that recognises it, using the configured API version.
// The result is a *DataFrame, *Series or *LazyFrame.
func FromNative(data any) (any, error) {
	v, err := DefaultVersion()
	if err != nil {
		return nil, err
	}
	for _, b := range backends {
		if out, ok, err := b.admit(v, data); ok {
			return out, err
		}
	}
	return nil, errors.NewTypeMismatchError("from_native", data)
}
