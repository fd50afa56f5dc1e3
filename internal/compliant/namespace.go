package compliant

import (
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
)

// Namespace is the single entry point that turns expression-language calls
// into backend expressions of type E over frames of type F.
//
// A namespace never holds data. It is built once per backend and version
// and referenced, not owned, by the frames and expressions it produces.
type Namespace[F any, E any] interface {
	Implementation() Implementation
	Version() Version

	Col(names ...string) E
	All() E
	Exclude(names ...string) E
	Nth(indices ...int) E
	Len() E
	Lit(value any, dtype dtypes.DType) E

	AllHorizontal(ignoreNulls bool, exprs ...E) E
	AnyHorizontal(ignoreNulls bool, exprs ...E) E
	SumHorizontal(exprs ...E) E
	MeanHorizontal(exprs ...E) E
	MinHorizontal(exprs ...E) E
	MaxHorizontal(exprs ...E) E
	Coalesce(exprs ...E) E
	ConcatStr(separator string, ignoreNulls bool, exprs ...E) E

	Concat(items []F, how ConcatMethod) (F, error)
	When(predicate E) *When[E]
	Selectors() *SelectorNamespace[F, E]

	// ParseIntoExpr resolves data into an E, or returns it unchanged when it
	// is a literal to be wrapped downstream.
	ParseIntoExpr(data any, strAsLit bool) (any, error)
}

// Columns implements the column-reference primitives of a plain namespace
type Columns[F NamedFrame, E any] struct {
	Factory ExprFactory[F, E]
}

// Col references the given columns
func (c Columns[F, E]) Col(names ...string) E {
	return c.Factory.FromColumnNames(PassthroughColumnNames[F](names), "")
}

// All references every column, resolved when the expression is evaluated
func (c Columns[F, E]) All() E {
	return c.Factory.FromColumnNames(AllColumnNames[F], "")
}

// Exclude references every column except names
func (c Columns[F, E]) Exclude(names ...string) E {
	return c.Factory.FromColumnNames(ExcludeColumnNames[F](names), "")
}

// Nth references columns by position
func (c Columns[F, E]) Nth(indices ...int) E {
	return c.Factory.FromColumnIndices(indices...)
}

// DepthTracking implements the column-reference primitives of a namespace
// whose expressions record the function that created them, at depth zero.
type DepthTracking[F NamedFrame, E any] struct {
	Factory ExprFactory[F, E]
}

// Col references the given columns
func (d DepthTracking[F, E]) Col(names ...string) E {
	return d.Factory.FromColumnNames(PassthroughColumnNames[F](names), "col")
}

// All references every column, resolved when the expression is evaluated
func (d DepthTracking[F, E]) All() E {
	return d.Factory.FromColumnNames(AllColumnNames[F], "all")
}

// Exclude references every column except names
func (d DepthTracking[F, E]) Exclude(names ...string) E {
	return d.Factory.FromColumnNames(ExcludeColumnNames[F](names), "exclude")
}

// Nth references columns by position
func (d DepthTracking[F, E]) Nth(indices ...int) E {
	return d.Factory.FromColumnIndices(indices...)
}

// ParseIntoExpr is the shared classification of heterogeneous inputs:
// expression-language values are lowered onto ns, strings become column
// references unless strAsLit is set, and anything else is returned as is.
func ParseIntoExpr[F any, E ComposableExpr[F, E]](ns Namespace[F, E], data any, strAsLit bool) (any, error) {
	if e, ok := data.(expr.Expr); ok {
		return Lower[F, E](ns, e)
	}
	if s, ok := data.(string); ok && !strAsLit {
		return ns.Col(s), nil
	}
	return data, nil
}

// FromNativeLazy admits data as the backend's native lazy frame
func FromNativeLazy[LF any](frames Admitter[LF], data any) (LF, error) {
	return Admit("from_native", frames, data)
}

// FromNativeEager admits data as a native frame first, then as a native series.
// The result is either a DF or an S.
func FromNativeEager[DF any, S any](frames Admitter[DF], series Admitter[S], data any) (any, error) {
	if frames.IsNative(data) {
		return frames.FromNative(data)
	}
	if series.IsNative(data) {
		return series.FromNative(data)
	}
	return nil, errors.NewTypeMismatchError("from_native", data)
}

// FromNumpy builds a frame from a 2-D array-like and a series otherwise.
// Dimensionality is checked before the schema is looked at.
func FromNumpy[DF any, S any](frames NumpyConstructor[DF], series NumpyConstructor[S], data any, schema any) (any, error) {
	if Is2DArray(data) {
		return frames.FromNumpy(data, schema)
	}
	return series.FromNumpy(data, nil)
}

// EagerConcat are the native concatenation primitives of an eager backend
type EagerConcat[N any] interface {
	ConcatHorizontal(natives []N) (N, error)
	ConcatVertical(natives []N) (N, error)
	ConcatDiagonal(natives []N) (N, error)
}

// ConcatEager unwraps items, runs exactly one native primitive chosen by how
// and wraps the result. An unknown how fails before any native call.
func ConcatEager[N any, DF Frame[N]](items []DF, how ConcatMethod, prims EagerConcat[N], frames Admitter[DF]) (DF, error) {
	var zero DF
	var concat func([]N) (N, error)
	switch how {
	case ConcatHorizontal:
		concat = prims.ConcatHorizontal
	case ConcatVertical:
		concat = prims.ConcatVertical
	case ConcatDiagonal:
		concat = prims.ConcatDiagonal
	default:
		return zero, errors.NewUnreachableError("concat", how)
	}

	natives := make([]N, len(items))
	for i, item := range items {
		natives[i] = item.Native()
	}
	native, err := concat(natives)
	if err != nil {
		return zero, err
	}
	return frames.FromNative(native)
}
