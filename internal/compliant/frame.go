package compliant

import (
	"context"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
)

// Series wraps exactly one native column value of type N.
// Native returns the wrapped value unchanged.
type Series[N any] interface {
	Native() N
	Name() string
	Len() int
	DType() dtypes.DType
	Implementation() Implementation
	Version() Version
}

// Frame wraps exactly one native table value of type N
type Frame[N any] interface {
	Native() N
	Columns() []string
	Schema() Schema
	Implementation() Implementation
	Version() Version
}

// DataFrame is an eager frame whose columns can be read as series of type S
type DataFrame[N any, S any] interface {
	Frame[N]
	Len() int
	Width() int
	GetColumn(name string) (S, error)
}

// LazyFrame is a query plan that materialises into an eager frame DF
type LazyFrame[N any, DF any] interface {
	Frame[N]
	Collect(ctx context.Context) (DF, error)
}

// Admitter recognises and wraps native values.
// IsNative is the sole admission criterion of FromNative.
type Admitter[W any] interface {
	IsNative(v any) bool
	FromNative(v any) (W, error)
}

// NumpyConstructor builds a wrapper from a raw array-like.
// schema is nil, a []string of column names or a Schema.
type NumpyConstructor[W any] interface {
	FromNumpy(data any, schema any) (W, error)
}

// Admit runs the admission check of a wrapper class and wraps v.
// A rejected value yields a type mismatch naming its runtime type.
func Admit[W any](op string, class Admitter[W], v any) (W, error) {
	if !class.IsNative(v) {
		var zero W
		return zero, errors.NewTypeMismatchError(op, v)
	}
	return class.FromNative(v)
}
