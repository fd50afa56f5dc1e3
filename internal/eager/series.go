package eager

import (
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/series"
)

// Series wraps one native Arrow series
type Series struct {
	native *series.Series
	ns     *Namespace
}

var _ compliant.Series[*series.Series] = (*Series)(nil)

// Native returns the wrapped series unchanged
func (s *Series) Native() *series.Series { return s.native }

// Name returns the series name
func (s *Series) Name() string { return s.native.Name() }

// Len returns the number of values
func (s *Series) Len() int { return s.native.Len() }

// DType returns the backend-neutral type of the values
func (s *Series) DType() dtypes.DType { return s.native.DType() }

// Implementation returns the Arrow implementation tag
func (s *Series) Implementation() compliant.Implementation { return compliant.ImplArrow }

// Version returns the API dialect of the owning namespace
func (s *Series) Version() compliant.Version { return s.ns.version }

// Values returns every value boxed, nil for nulls
func (s *Series) Values() []any { return s.native.Values() }

// Expr returns an expression yielding the series
func (s *Series) Expr() *Expr { return s.ns.seriesExpr(s.native) }

// String describes the series
func (s *Series) String() string { return s.native.String() }

// SeriesClass admits native Arrow series
type SeriesClass struct {
	ns *Namespace
}

// IsNative reports whether v is a native Arrow series
func (c SeriesClass) IsNative(v any) bool {
	s, ok := v.(*series.Series)
	return ok && s != nil
}

// FromNative wraps a native Arrow series
func (c SeriesClass) FromNative(v any) (*Series, error) {
	if !c.IsNative(v) {
		return nil, c.ns.typeMismatch("from_native", v)
	}
	return &Series{native: v.(*series.Series), ns: c.ns}, nil
}

// FromNumpy builds an unnamed series from a one-dimensional array-like
func (c SeriesClass) FromNumpy(data any, _ any) (*Series, error) {
	native, err := seriesFromArray("", data, dtypes.Unknown, c.ns)
	if err != nil {
		return nil, err
	}
	return &Series{native: native, ns: c.ns}, nil
}
