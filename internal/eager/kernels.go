package eager

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/series"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func arithmetic[T number](op expr.BinaryOp, a, b T) T {
	switch op {
	case expr.OpAdd:
		return a + b
	case expr.OpSub:
		return a - b
	case expr.OpMul:
		return a * b
	default:
		return a / b
	}
}

func compare[T constraints.Ordered](op expr.BinaryOp, a, b T) bool {
	switch op {
	case expr.OpEq:
		return a == b
	case expr.OpNe:
		return a != b
	case expr.OpLt:
		return a < b
	case expr.OpLe:
		return a <= b
	case expr.OpGt:
		return a > b
	default:
		return a >= b
	}
}

func typeMismatch(op string, column string, types ...dtypes.DType) error {
	return &errors.DataFrameError{
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("unsupported input types %v", types),
		Cause:   errors.ErrTypeMismatch,
	}
}

func isNullish(dt dtypes.DType) bool {
	return dt == dtypes.Null
}

// numericDomain returns the type two numeric (or null) inputs are computed in
func numericDomain(a, b dtypes.DType) (dtypes.DType, bool) {
	if !(a.IsNumeric() || isNullish(a)) || !(b.IsNumeric() || isNullish(b)) {
		return dtypes.Unknown, false
	}
	if a == dtypes.Float64 || b == dtypes.Float64 {
		return dtypes.Float64, true
	}
	return dtypes.Int64, true
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// binaryKernel applies op element-wise; a single-value side is broadcast
func binaryKernel(op expr.BinaryOp, l, r *series.Series, mem memory.Allocator) (*series.Series, error) {
	n, err := heightOf(op.Name(), l, r)
	if err != nil {
		return nil, err
	}
	lt, rt := l.DType(), r.DType()

	var resultType dtypes.DType
	var apply func(a, b any) any

	switch {
	case op.IsLogical():
		if (lt != dtypes.Boolean && !isNullish(lt)) || (rt != dtypes.Boolean && !isNullish(rt)) {
			return nil, typeMismatch(op.Name(), l.Name(), lt, rt)
		}
		resultType = dtypes.Boolean
		apply = func(a, b any) any { return kleene(op, a, b) }

	case op.IsComparison():
		resultType = dtypes.Boolean
		switch domain, numeric := numericDomain(lt, rt); {
		case isNullish(lt) || isNullish(rt):
			apply = func(any, any) any { return nil }
		case numeric && domain == dtypes.Int64:
			apply = func(a, b any) any { return compare(op, a.(int64), b.(int64)) }
		case numeric:
			apply = func(a, b any) any {
				x, _ := series.ToFloat64(a)
				y, _ := series.ToFloat64(b)
				return compare(op, x, y)
			}
		case lt == dtypes.String && rt == dtypes.String:
			apply = func(a, b any) any { return compare(op, a.(string), b.(string)) }
		case lt == dtypes.Boolean && rt == dtypes.Boolean:
			apply = func(a, b any) any { return compare(op, boolToInt(a.(bool)), boolToInt(b.(bool))) }
		default:
			return nil, typeMismatch(op.Name(), l.Name(), lt, rt)
		}

	case op == expr.OpAdd && lt == dtypes.String && rt == dtypes.String:
		resultType = dtypes.String
		apply = func(a, b any) any { return a.(string) + b.(string) }

	default:
		domain, numeric := numericDomain(lt, rt)
		if !numeric {
			return nil, typeMismatch(op.Name(), l.Name(), lt, rt)
		}
		if op == expr.OpDiv {
			domain = dtypes.Float64
		}
		resultType = domain
		if domain == dtypes.Int64 {
			apply = func(a, b any) any { return arithmetic(op, a.(int64), b.(int64)) }
		} else {
			apply = func(a, b any) any {
				x, _ := series.ToFloat64(a)
				y, _ := series.ToFloat64(b)
				return arithmetic(op, x, y)
			}
		}
	}

	values := make([]any, n)
	for i := range values {
		a, b := valueAt(l, i), valueAt(r, i)
		if op.IsLogical() {
			values[i] = apply(a, b)
			continue
		}
		if a == nil || b == nil {
			continue
		}
		values[i] = apply(a, b)
	}
	return series.FromValues(l.Name(), values, resultType, mem)
}

// kleene implements three-valued AND/OR: a known dominant value wins over null
func kleene(op expr.BinaryOp, a, b any) any {
	x, xok := asBool(a)
	y, yok := asBool(b)
	dominant := op == expr.OpOr
	if (xok && x == dominant) || (yok && y == dominant) {
		return dominant
	}
	if !xok || !yok {
		return nil
	}
	return !dominant
}

func notKernel(s *series.Series, mem memory.Allocator) (*series.Series, error) {
	if s.DType() != dtypes.Boolean && !isNullish(s.DType()) {
		return nil, typeMismatch("not", s.Name(), s.DType())
	}
	values := s.Values()
	for i, v := range values {
		if b, ok := asBool(v); ok {
			values[i] = !b
		}
	}
	return series.FromValues(s.Name(), values, dtypes.Boolean, mem)
}

func mapNumeric(op string, s *series.Series, mem memory.Allocator, ints func(int64) int64, floats func(float64) float64) (*series.Series, error) {
	dt := s.DType()
	if !dt.IsNumeric() && !isNullish(dt) {
		return nil, typeMismatch(op, s.Name(), dt)
	}
	values := s.Values()
	for i, v := range values {
		switch x := v.(type) {
		case int64:
			values[i] = ints(x)
		case float64:
			values[i] = floats(x)
		}
	}
	return series.FromValues(s.Name(), values, dt, mem)
}

func negKernel(s *series.Series, mem memory.Allocator) (*series.Series, error) {
	return mapNumeric("neg", s, mem,
		func(x int64) int64 { return -x },
		func(x float64) float64 { return -x })
}

func absKernel(s *series.Series, mem memory.Allocator) (*series.Series, error) {
	return mapNumeric("abs", s, mem,
		func(x int64) int64 {
			if x < 0 {
				return -x
			}
			return x
		},
		math.Abs)
}

func isNullKernel(s *series.Series, mem memory.Allocator) (*series.Series, error) {
	values := make([]bool, s.Len())
	for i := range values {
		values[i] = s.IsNull(i)
	}
	return series.New(s.Name(), values, mem), nil
}

func fillNullKernel(s, fill *series.Series, mem memory.Allocator) (*series.Series, error) {
	n, err := heightOf("fill_null", s, fill)
	if err != nil {
		return nil, err
	}
	dt := dtypes.Promote(s.DType(), fill.DType())
	if dt == dtypes.Unknown {
		return nil, typeMismatch("fill_null", s.Name(), s.DType(), fill.DType())
	}
	values := make([]any, n)
	for i := range values {
		v := valueAt(s, i)
		if v == nil {
			v = valueAt(fill, i)
		}
		values[i] = v
	}
	return series.FromValues(s.Name(), values, dt, mem)
}
