package eager

import (
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
)

var _ compliant.ConditionalFactory[*Expr] = (*Namespace)(nil)

// Conditional picks then where predicate is true and otherwise elsewhere.
// A nil otherwise yields null. The output is named after then.
func (ns *Namespace) Conditional(predicate *Expr, then any, otherwise any) *Expr {
	thenExpr := ns.operand(then)
	inputs := []compliant.ExprMeta[*DataFrame]{predicate.ExprMeta}
	var otherExpr *Expr
	if otherwise != nil {
		otherExpr = ns.operand(otherwise)
		inputs = append(inputs, otherExpr.ExprMeta)
	}
	meta := thenExpr.ExprMeta.Combine("when_then", inputs...).FirstOutputOnly()

	return newExpr(ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		mask, err := evaluateSingle("when", predicate, df)
		if err != nil {
			return nil, err
		}
		defer mask.Release()
		if mask.DType() != dtypes.Boolean && !isNullish(mask.DType()) {
			return nil, typeMismatch("when", mask.Name(), mask.DType())
		}

		value, err := evaluateSingle("then", thenExpr, df)
		if err != nil {
			return nil, err
		}
		defer value.Release()

		var fallback *series.Series
		dt := value.DType()
		if otherExpr != nil {
			if fallback, err = evaluateSingle("otherwise", otherExpr, df); err != nil {
				return nil, err
			}
			defer fallback.Release()
			dt = dtypes.Promote(dt, fallback.DType())
			if dt == dtypes.Unknown {
				return nil, typeMismatch("otherwise", value.Name(), value.DType(), fallback.DType())
			}
		}

		height, err := heightOf("when_then", mask, value, fallback)
		if err != nil {
			return nil, err
		}
		values := make([]any, height)
		for i := range values {
			if b, ok := valueAt(mask, i).(bool); ok && b {
				values[i] = valueAt(value, i)
			} else {
				values[i] = valueAt(fallback, i)
			}
		}
		s, err := series.FromValues(value.Name(), values, dt, ns.mem)
		if err != nil {
			return nil, err
		}
		return []*series.Series{s}, nil
	})
}

func evaluateSingle(op string, e *Expr, df *DataFrame) (*series.Series, error) {
	cols, err := e.evaluate(df)
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		releaseSeries(cols)
		return nil, errors.NewInvalidInputError(op, "expression must produce exactly one column")
	}
	return cols[0], nil
}
