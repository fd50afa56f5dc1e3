package eager

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/series"
)

// rowReducer checks the input types of a horizontal reducer and returns its
// output type together with the function applied to each row.
type rowReducer func(op string, types []dtypes.DType) (dtypes.DType, func(row []any) any, error)

func (ns *Namespace) horizontal(kind expr.HorizontalKind, reducer rowReducer, exprs []*Expr) *Expr {
	op := kind.String()
	if len(exprs) == 0 {
		noInputs := func(*DataFrame) ([]string, error) {
			return nil, errors.NewInvalidInputError(op, "at least one input is required")
		}
		meta := compliant.NewExprMeta[*DataFrame](noInputs, op, compliant.ImplArrow, ns.version)
		return newExpr(ns, meta, func(df *DataFrame) ([]*series.Series, error) {
			_, err := noInputs(df)
			return nil, err
		})
	}

	others := make([]compliant.ExprMeta[*DataFrame], 0, len(exprs)-1)
	for _, e := range exprs[1:] {
		others = append(others, e.ExprMeta)
	}
	meta := exprs[0].ExprMeta.Combine(op, others...).FirstOutputOnly()

	return newExpr(ns, meta, func(df *DataFrame) ([]*series.Series, error) {
		var cols []*series.Series
		defer func() { releaseSeries(cols) }()
		for _, e := range exprs {
			out, err := e.evaluate(df)
			if err != nil {
				return nil, err
			}
			cols = append(cols, out...)
		}
		if len(cols) == 0 {
			return nil, errors.NewInvalidInputError(op, "inputs resolve to no columns")
		}

		height, err := heightOf(op, cols...)
		if err != nil {
			return nil, err
		}
		types := make([]dtypes.DType, len(cols))
		for i, c := range cols {
			types[i] = c.DType()
		}
		dt, apply, err := reducer(op, types)
		if err != nil {
			return nil, err
		}

		values := make([]any, height)
		row := make([]any, len(cols))
		for i := range values {
			for j, c := range cols {
				row[j] = valueAt(c, i)
			}
			values[i] = apply(row)
		}
		s, err := series.FromValues(cols[0].Name(), values, dt, ns.mem)
		if err != nil {
			return nil, err
		}
		return []*series.Series{s}, nil
	})
}

func requireTypes(op string, types []dtypes.DType, ok func(dtypes.DType) bool) error {
	for _, t := range types {
		if !ok(t) && !isNullish(t) {
			return typeMismatch(op, "", types...)
		}
	}
	return nil
}

func isBoolean(dt dtypes.DType) bool { return dt == dtypes.Boolean }

// logicalReducer folds booleans towards dominant: all stops at false, any at true.
// With ignoreNulls nulls are skipped; otherwise they follow Kleene logic.
func logicalReducer(dominant, ignoreNulls bool) rowReducer {
	return func(op string, types []dtypes.DType) (dtypes.DType, func([]any) any, error) {
		if err := requireTypes(op, types, isBoolean); err != nil {
			return dtypes.Unknown, nil, err
		}
		return dtypes.Boolean, func(row []any) any {
			sawNull := false
			for _, v := range row {
				b, ok := v.(bool)
				if !ok {
					sawNull = true
					continue
				}
				if b == dominant {
					return dominant
				}
			}
			if sawNull && !ignoreNulls {
				return nil
			}
			return !dominant
		}, nil
	}
}

func allReducer(ignoreNulls bool) rowReducer { return logicalReducer(false, ignoreNulls) }

func anyReducer(ignoreNulls bool) rowReducer { return logicalReducer(true, ignoreNulls) }

func numericTypeOf(op string, types []dtypes.DType) (dtypes.DType, error) {
	if err := requireTypes(op, types, dtypes.DType.IsNumeric); err != nil {
		return dtypes.Unknown, err
	}
	for _, t := range types {
		if t == dtypes.Float64 {
			return dtypes.Float64, nil
		}
	}
	return dtypes.Int64, nil
}

func sumReducer(op string, types []dtypes.DType) (dtypes.DType, func([]any) any, error) {
	dt, err := numericTypeOf(op, types)
	if err != nil {
		return dtypes.Unknown, nil, err
	}
	if dt == dtypes.Int64 {
		return dt, func(row []any) any {
			var total int64
			for _, v := range row {
				if x, ok := v.(int64); ok {
					total += x
				}
			}
			return total
		}, nil
	}
	return dt, func(row []any) any {
		var total float64
		for _, v := range row {
			if x, ok := series.ToFloat64(v); ok {
				total += x
			}
		}
		return total
	}, nil
}

func meanReducer(op string, types []dtypes.DType) (dtypes.DType, func([]any) any, error) {
	if _, err := numericTypeOf(op, types); err != nil {
		return dtypes.Unknown, nil, err
	}
	return dtypes.Float64, func(row []any) any {
		var total float64
		n := 0
		for _, v := range row {
			if x, ok := series.ToFloat64(v); ok {
				total += x
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return total / float64(n)
	}, nil
}

// extremeReducer picks the smallest (sign < 0) or largest non-null value per row.
// Inputs are either all numeric or all strings.
func extremeReducer(sign int) rowReducer {
	return func(op string, types []dtypes.DType) (dtypes.DType, func([]any) any, error) {
		dt, err := numericTypeOf(op, types)
		if err != nil {
			if requireTypes(op, types, func(t dtypes.DType) bool { return t == dtypes.String }) != nil {
				return dtypes.Unknown, nil, err
			}
			return dtypes.String, func(row []any) any { return extremeOf[string](row, sign) }, nil
		}
		if dt == dtypes.Int64 {
			return dt, func(row []any) any { return extremeOf[int64](row, sign) }, nil
		}
		return dt, func(row []any) any {
			floats := make([]any, len(row))
			for i, v := range row {
				if x, ok := series.ToFloat64(v); ok {
					floats[i] = x
				}
			}
			return extremeOf[float64](floats, sign)
		}, nil
	}
}

func coalesceReducer(op string, types []dtypes.DType) (dtypes.DType, func([]any) any, error) {
	dt := dtypes.Null
	for _, t := range types {
		dt = dtypes.Promote(dt, t)
	}
	if dt == dtypes.Unknown {
		return dtypes.Unknown, nil, typeMismatch(op, "", types...)
	}
	return dt, func(row []any) any {
		for _, v := range row {
			if v != nil {
				return v
			}
		}
		return nil
	}, nil
}

// concatStrReducer joins values as text. With ignoreNulls a null is dropped
// together with its separator; otherwise any null makes the row null.
func concatStrReducer(separator string, ignoreNulls bool) rowReducer {
	return func(string, []dtypes.DType) (dtypes.DType, func([]any) any, error) {
		return dtypes.String, func(row []any) any {
			parts := make([]string, 0, len(row))
			for _, v := range row {
				if v == nil {
					if !ignoreNulls {
						return nil
					}
					continue
				}
				parts = append(parts, formatValue(v))
			}
			return strings.Join(parts, separator)
		}, nil
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
