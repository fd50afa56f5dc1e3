package eager

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/series"
	"golang.org/x/exp/constraints"
)

func aggregateSeries(agg expr.AggregationType, s *series.Series, mem memory.Allocator) (*series.Series, error) {
	v, dt, err := reduceValues(agg, s.Name(), s.DType(), s.Values())
	if err != nil {
		return nil, err
	}
	return series.FromValues(s.Name(), []any{v}, dt, mem)
}

// reduceValues folds boxed values of type dt into one value.
// sum of no values is 0; mean, min and max of no values are null.
func reduceValues(agg expr.AggregationType, column string, dt dtypes.DType, values []any) (any, dtypes.DType, error) {
	switch agg {
	case expr.AggCount:
		var n int64
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n, dtypes.Int64, nil

	case expr.AggSum:
		switch dt {
		case dtypes.Float64:
			var total float64
			for _, v := range values {
				if f, ok := v.(float64); ok {
					total += f
				}
			}
			return total, dtypes.Float64, nil
		case dtypes.Int64, dtypes.Boolean, dtypes.Null:
			var total int64
			for _, v := range values {
				switch x := v.(type) {
				case int64:
					total += x
				case bool:
					total += boolToInt(x)
				}
			}
			return total, dtypes.Int64, nil
		}

	case expr.AggMean:
		if dt.IsNumeric() || dt == dtypes.Boolean || isNullish(dt) {
			var total float64
			var n int
			for _, v := range values {
				switch x := v.(type) {
				case int64:
					total += float64(x)
				case float64:
					total += x
				case bool:
					total += float64(boolToInt(x))
				default:
					continue
				}
				n++
			}
			if n == 0 {
				return nil, dtypes.Float64, nil
			}
			return total / float64(n), dtypes.Float64, nil
		}

	case expr.AggMin, expr.AggMax:
		sign := -1
		if agg == expr.AggMax {
			sign = 1
		}
		switch dt {
		case dtypes.Int64:
			return extremeOf[int64](values, sign), dt, nil
		case dtypes.Float64:
			return extremeOf[float64](values, sign), dt, nil
		case dtypes.String:
			return extremeOf[string](values, sign), dt, nil
		case dtypes.Boolean:
			ints := make([]any, len(values))
			for i, v := range values {
				if b, ok := v.(bool); ok {
					ints[i] = boolToInt(b)
				}
			}
			if x := extremeOf[int64](ints, sign); x != nil {
				return x.(int64) == 1, dt, nil
			}
			return nil, dt, nil
		case dtypes.Null:
			return nil, dt, nil
		}
	}
	return nil, dtypes.Unknown, typeMismatch(agg.String(), column, dt)
}

// extremeOf returns the smallest (sign < 0) or largest non-null T, or nil
func extremeOf[T constraints.Ordered](values []any, sign int) any {
	var best T
	found := false
	for _, v := range values {
		x, ok := v.(T)
		if !ok {
			continue
		}
		if !found || (sign < 0 && x < best) || (sign > 0 && x > best) {
			best = x
			found = true
		}
	}
	if !found {
		return nil
	}
	return best
}
