package lazy

import (
	"fmt"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
)

// fragment is one rendered output column of an expression
type fragment struct {
	sql   string
	dtype dtypes.DType
	// scalar fragments produce one value whatever the frame height
	scalar bool
	// aggregate fragments contain an aggregate function call
	aggregate bool
}

// renderFunc renders an expression against a frame. With window set,
// aggregates are rendered as window functions over the whole frame so they
// can sit next to row-wise columns.
type renderFunc func(lf *LazyFrame, window bool) ([]fragment, error)

// Expr is a deferred computation rendered to SQL against a *LazyFrame
type Expr struct {
	compliant.ExprMeta[*LazyFrame]

	ns     *Namespace
	render renderFunc

	// implicit expressions pick their columns from the frame, so group-by
	// leaves key columns out of them
	implicit bool
}

var _ compliant.ComposableExpr[*LazyFrame, *Expr] = (*Expr)(nil)

func newExpr(ns *Namespace, meta compliant.ExprMeta[*LazyFrame], render renderFunc) *Expr {
	return &Expr{ExprMeta: meta, ns: ns, render: render}
}

// String describes the expression
func (e *Expr) String() string {
	return fmt.Sprintf("lazy.Expr(%s)", e.FunctionName())
}

// fragments renders e and checks it against its output names
func (e *Expr) fragments(lf *LazyFrame, window bool) ([]string, []fragment, error) {
	frags, err := e.render(lf, window)
	if err != nil {
		return nil, nil, err
	}
	names, err := e.OutputNames(lf)
	if err != nil {
		return nil, nil, err
	}
	if len(names) != len(frags) {
		return nil, nil, errors.NewInternalError("render",
			fmt.Sprintf("%s rendered %d columns for %d output names", e, len(frags), len(names)))
	}
	return names, frags, nil
}

func (e *Expr) single(op string, lf *LazyFrame, window bool) (fragment, error) {
	frags, err := e.render(lf, window)
	if err != nil {
		return fragment{}, err
	}
	if len(frags) != 1 {
		return fragment{}, errors.NewInvalidInputError(op, "expression must produce exactly one column")
	}
	return frags[0], nil
}

// operand wraps a literal so it can be combined with expressions
func (ns *Namespace) operand(v any) *Expr {
	if e, ok := v.(*Expr); ok {
		return e
	}
	return ns.Lit(v, dtypes.Unknown)
}

// Alias renames the single output of the expression
func (e *Expr) Alias(name string) *Expr {
	out := *e
	out.ExprMeta = e.ExprMeta.WithAlias(name)
	return &out
}

// Binary applies op between every output of e and other.
// other is broadcast when it has a single output.
func (e *Expr) Binary(op expr.BinaryOp, other any) *Expr {
	rhs := e.ns.operand(other)
	meta := e.ExprMeta.Combine(op.Name(), rhs.ExprMeta)
	out := newExpr(e.ns, meta, func(lf *LazyFrame, window bool) ([]fragment, error) {
		left, err := e.render(lf, window)
		if err != nil {
			return nil, err
		}
		right, err := rhs.render(lf, window)
		if err != nil {
			return nil, err
		}
		if len(right) != 1 && len(right) != len(left) {
			return nil, errors.NewInvalidInputError(op.Name(),
				fmt.Sprintf("cannot combine %d outputs with %d outputs", len(left), len(right)))
		}

		frags := make([]fragment, len(left))
		for i, l := range left {
			r := right[0]
			if len(right) > 1 {
				r = right[i]
			}
			if frags[i], err = binarySQL(op, l, r); err != nil {
				return nil, err
			}
		}
		return frags, nil
	})
	out.implicit = e.implicit
	return out
}

func (e *Expr) mapEach(name string, fn func(f fragment, window bool) (fragment, error)) *Expr {
	out := newExpr(e.ns, e.ExprMeta.Derive(name), func(lf *LazyFrame, window bool) ([]fragment, error) {
		inputs, err := e.render(lf, window)
		if err != nil {
			return nil, err
		}
		frags := make([]fragment, len(inputs))
		for i, in := range inputs {
			if frags[i], err = fn(in, window); err != nil {
				return nil, err
			}
		}
		return frags, nil
	})
	out.implicit = e.implicit
	return out
}

// Not negates boolean outputs
func (e *Expr) Not() *Expr {
	return e.mapEach("not", func(f fragment, _ bool) (fragment, error) {
		if f.dtype != dtypes.Boolean && f.dtype != dtypes.Null {
			return fragment{}, typeMismatch("not", f.dtype)
		}
		return f.derive("(NOT "+f.sql+")", dtypes.Boolean), nil
	})
}

// Neg negates numeric outputs
func (e *Expr) Neg() *Expr {
	return e.mapEach("neg", func(f fragment, _ bool) (fragment, error) {
		if !isNumericOrNull(f.dtype) {
			return fragment{}, typeMismatch("neg", f.dtype)
		}
		return f.derive("(- "+f.sql+")", f.dtype), nil
	})
}

// Abs takes the absolute value of numeric outputs
func (e *Expr) Abs() *Expr {
	return e.mapEach("abs", func(f fragment, _ bool) (fragment, error) {
		if !isNumericOrNull(f.dtype) {
			return fragment{}, typeMismatch("abs", f.dtype)
		}
		return f.derive("ABS("+f.sql+")", f.dtype), nil
	})
}

// IsNull marks null values
func (e *Expr) IsNull() *Expr {
	return e.mapEach("is_null", func(f fragment, _ bool) (fragment, error) {
		return f.derive("("+f.sql+" IS NULL)", dtypes.Boolean), nil
	})
}

// FillNull replaces nulls with value, an expression or a literal
func (e *Expr) FillNull(value any) *Expr {
	fill := e.ns.operand(value)
	meta := e.ExprMeta.Combine("fill_null", fill.ExprMeta)
	out := newExpr(e.ns, meta, func(lf *LazyFrame, window bool) ([]fragment, error) {
		inputs, err := e.render(lf, window)
		if err != nil {
			return nil, err
		}
		f, err := fill.single("fill_null", lf, window)
		if err != nil {
			return nil, err
		}
		frags := make([]fragment, len(inputs))
		for i, in := range inputs {
			dt := dtypes.Promote(in.dtype, f.dtype)
			if dt == dtypes.Unknown {
				return nil, typeMismatch("fill_null", in.dtype, f.dtype)
			}
			frags[i] = combine("COALESCE("+in.sql+", "+f.sql+")", dt, in, f)
		}
		return frags, nil
	})
	out.implicit = e.implicit
	return out
}

// Aggregate reduces every output to a single value
func (e *Expr) Aggregate(agg expr.AggregationType) *Expr {
	return e.mapEach(agg.String(), func(f fragment, window bool) (fragment, error) {
		return aggregateSQL(agg, f, window)
	})
}

// Sum is Aggregate(expr.AggSum)
func (e *Expr) Sum() *Expr { return e.Aggregate(expr.AggSum) }

// Mean is Aggregate(expr.AggMean)
func (e *Expr) Mean() *Expr { return e.Aggregate(expr.AggMean) }

// Min is Aggregate(expr.AggMin)
func (e *Expr) Min() *Expr { return e.Aggregate(expr.AggMin) }

// Max is Aggregate(expr.AggMax)
func (e *Expr) Max() *Expr { return e.Aggregate(expr.AggMax) }

// Count is Aggregate(expr.AggCount)
func (e *Expr) Count() *Expr { return e.Aggregate(expr.AggCount) }
