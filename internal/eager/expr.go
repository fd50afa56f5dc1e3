package eager

import (
	"fmt"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/series"
)

// Expr is a deferred computation over a *DataFrame yielding one or more series
type Expr struct {
	compliant.ExprMeta[*DataFrame]

	ns   *Namespace
	call func(df *DataFrame) ([]*series.Series, error)

	// reduction is set on the direct result of Aggregate and survives Alias
	reduction *reduction
}

type reduction struct {
	agg   expr.AggregationType
	input *Expr
}

var (
	_ compliant.ComposableExpr[*DataFrame, *Expr] = (*Expr)(nil)
	_ compliant.DepthTrackingExpr[*DataFrame]     = (*Expr)(nil)
)

func newExpr(ns *Namespace, meta compliant.ExprMeta[*DataFrame], call func(df *DataFrame) ([]*series.Series, error)) *Expr {
	return &Expr{ExprMeta: meta, ns: ns, call: call}
}

// String describes the expression by its function chain
func (e *Expr) String() string {
	return fmt.Sprintf("eager.Expr(%s)", e.FunctionName())
}

// evaluate runs the expression and names each result after its output name
func (e *Expr) evaluate(df *DataFrame) ([]*series.Series, error) {
	cols, err := e.call(df)
	if err != nil {
		return nil, err
	}
	defer releaseSeries(cols)

	names, err := e.OutputNames(df)
	if err != nil {
		return nil, err
	}
	if len(names) != len(cols) {
		return nil, errors.NewInternalError("evaluate",
			fmt.Sprintf("%s produced %d columns for %d output names", e, len(cols), len(names)))
	}

	out := make([]*series.Series, len(cols))
	for i, c := range cols {
		out[i] = c.Rename(names[i])
	}
	return out, nil
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
	return newExpr(e.ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		left, err := e.evaluate(df)
		if err != nil {
			return nil, err
		}
		defer releaseSeries(left)
		right, err := rhs.evaluate(df)
		if err != nil {
			return nil, err
		}
		defer releaseSeries(right)

		if len(right) != 1 && len(right) != len(left) {
			return nil, errors.NewInvalidInputError(op.Name(),
				fmt.Sprintf("cannot combine %d outputs with %d outputs", len(left), len(right)))
		}

		out := make([]*series.Series, 0, len(left))
		for i, l := range left {
			r := right[0]
			if len(right) > 1 {
				r = right[i]
			}
			s, err := binaryKernel(op, l, r, e.ns.mem)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	})
}

func (e *Expr) mapEach(name string, fn func(s *series.Series) (*series.Series, error)) *Expr {
	return newExpr(e.ns, e.ExprMeta.Derive(name), func(df *DataFrame) ([]*series.Series, error) {
		inputs, err := e.evaluate(df)
		if err != nil {
			return nil, err
		}
		defer releaseSeries(inputs)

		out := make([]*series.Series, 0, len(inputs))
		for _, in := range inputs {
			s, err := fn(in)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	})
}

// Not negates boolean outputs
func (e *Expr) Not() *Expr {
	return e.mapEach("not", func(s *series.Series) (*series.Series, error) { return notKernel(s, e.ns.mem) })
}

// Neg negates numeric outputs
func (e *Expr) Neg() *Expr {
	return e.mapEach("neg", func(s *series.Series) (*series.Series, error) { return negKernel(s, e.ns.mem) })
}

// Abs takes the absolute value of numeric outputs
func (e *Expr) Abs() *Expr {
	return e.mapEach("abs", func(s *series.Series) (*series.Series, error) { return absKernel(s, e.ns.mem) })
}

// IsNull marks null values
func (e *Expr) IsNull() *Expr {
	return e.mapEach("is_null", func(s *series.Series) (*series.Series, error) { return isNullKernel(s, e.ns.mem) })
}

// FillNull replaces nulls with value, an expression or a literal
func (e *Expr) FillNull(value any) *Expr {
	fill := e.ns.operand(value)
	meta := e.ExprMeta.Combine("fill_null", fill.ExprMeta)
	return newExpr(e.ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		inputs, err := e.evaluate(df)
		if err != nil {
			return nil, err
		}
		defer releaseSeries(inputs)
		fills, err := fill.evaluate(df)
		if err != nil {
			return nil, err
		}
		defer releaseSeries(fills)
		if len(fills) != 1 {
			return nil, errors.NewInvalidInputError("fill_null", "fill value must produce one column")
		}

		out := make([]*series.Series, 0, len(inputs))
		for _, in := range inputs {
			s, err := fillNullKernel(in, fills[0], e.ns.mem)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	})
}

// Aggregate reduces every output to a single value
func (e *Expr) Aggregate(agg expr.AggregationType) *Expr {
	out := e.mapEach(agg.String(), func(s *series.Series) (*series.Series, error) {
		return aggregateSeries(agg, s, e.ns.mem)
	})
	out.reduction = &reduction{agg: agg, input: e}
	return out
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

// heightOf returns the common height of cols, where single values broadcast
func heightOf(op string, cols ...*series.Series) (int, error) {
	height := 1
	for _, c := range cols {
		if c != nil && c.Len() != 1 {
			height = c.Len()
			break
		}
	}
	for _, c := range cols {
		if c != nil && c.Len() != 1 && c.Len() != height {
			return 0, errors.NewInvalidInputError(op,
				fmt.Sprintf("cannot broadcast %d rows against %d rows", c.Len(), height))
		}
	}
	return height, nil
}

// valueAt reads row i of s, broadcasting single values
func valueAt(s *series.Series, i int) any {
	if s == nil {
		return nil
	}
	if s.Len() == 1 {
		return s.Value(0)
	}
	return s.Value(i)
}

// broadcastTo returns new references on cols, each with exactly height rows
func broadcastTo(cols []*series.Series, height int, ns *Namespace) ([]*series.Series, error) {
	out := make([]*series.Series, 0, len(cols))
	for _, c := range cols {
		switch {
		case c.Len() == height:
			out = append(out, c.Clone())
		case c.Len() == 1:
			values := make([]any, height)
			v := c.Value(0)
			for i := range values {
				values[i] = v
			}
			s, err := series.FromValues(c.Name(), values, c.DType(), ns.mem)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
			out = append(out, s)
		default:
			releaseSeries(out)
			return nil, &errors.DataFrameError{
				Op:      "broadcast",
				Column:  c.Name(),
				Message: fmt.Sprintf("has %d rows, expected %d", c.Len(), height),
				Cause:   errors.ErrInvalidInput,
			}
		}
	}
	return out, nil
}
