package lazy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/relation"
)

func typeMismatch(op string, types ...dtypes.DType) error {
	return &errors.DataFrameError{
		Op:      op,
		Message: fmt.Sprintf("unsupported input types %v", types),
		Cause:   errors.ErrTypeMismatch,
	}
}

func isNumericOrNull(dt dtypes.DType) bool {
	return dt.IsNumeric() || dt == dtypes.Null
}

// derive keeps the shape of f for a row-wise function of it
func (f fragment) derive(sql string, dt dtypes.DType) fragment {
	return fragment{sql: sql, dtype: dt, scalar: f.scalar, aggregate: f.aggregate}
}

// combine builds a fragment computed row by row from inputs
func combine(sql string, dt dtypes.DType, inputs ...fragment) fragment {
	out := fragment{sql: sql, dtype: dt, scalar: true}
	for _, in := range inputs {
		out.scalar = out.scalar && in.scalar
		out.aggregate = out.aggregate || in.aggregate
	}
	return out
}

// aggregateCall renders an aggregate call, as a window over the frame if asked
func aggregateCall(call string, window bool) string {
	if window {
		return call + " OVER ()"
	}
	return call
}

// numericDomain returns the type two numeric (or null) inputs are computed in
func numericDomain(a, b dtypes.DType) (dtypes.DType, bool) {
	if !isNumericOrNull(a) || !isNumericOrNull(b) {
		return dtypes.Unknown, false
	}
	if a == dtypes.Float64 || b == dtypes.Float64 {
		return dtypes.Float64, true
	}
	return dtypes.Int64, true
}

var sqlOperators = map[expr.BinaryOp]string{
	expr.OpAdd: "+",
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
	expr.OpEq:  "=",
	expr.OpNe:  "<>",
	expr.OpLt:  "<",
	expr.OpLe:  "<=",
	expr.OpGt:  ">",
	expr.OpGe:  ">=",
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
}

func binarySQL(op expr.BinaryOp, l, r fragment) (fragment, error) {
	symbol, ok := sqlOperators[op]
	if !ok {
		return fragment{}, errors.NewUnreachableError("binary", op)
	}
	infix := func(left string) string { return "(" + left + " " + symbol + " " + r.sql + ")" }

	switch {
	case op.IsLogical():
		if (l.dtype != dtypes.Boolean && l.dtype != dtypes.Null) || (r.dtype != dtypes.Boolean && r.dtype != dtypes.Null) {
			return fragment{}, typeMismatch(op.Name(), l.dtype, r.dtype)
		}
		return combine(infix(l.sql), dtypes.Boolean, l, r), nil

	case op.IsComparison():
		_, numeric := numericDomain(l.dtype, r.dtype)
		switch {
		case l.dtype == dtypes.Null || r.dtype == dtypes.Null, numeric, l.dtype == r.dtype:
			return combine(infix(l.sql), dtypes.Boolean, l, r), nil
		default:
			return fragment{}, typeMismatch(op.Name(), l.dtype, r.dtype)
		}

	case op == expr.OpAdd && l.dtype == dtypes.String && r.dtype == dtypes.String:
		return combine("("+l.sql+" || "+r.sql+")", dtypes.String, l, r), nil

	default:
		domain, numeric := numericDomain(l.dtype, r.dtype)
		if !numeric {
			return fragment{}, typeMismatch(op.Name(), l.dtype, r.dtype)
		}
		if op == expr.OpDiv {
			return combine(infix(relation.Cast(l.sql, dtypes.Float64)), dtypes.Float64, l, r), nil
		}
		return combine(infix(l.sql), domain, l, r), nil
	}
}

// aggregateSQL reduces f. A scalar input is already a single value, so it
// is reduced in place instead of once per row.
func aggregateSQL(agg expr.AggregationType, f fragment, window bool) (fragment, error) {
	out := fragment{scalar: true, aggregate: true}
	call := func(fn string) string { return aggregateCall(fn+"("+f.sql+")", window) }
	if f.scalar {
		out.aggregate = f.aggregate
	}

	switch agg {
	case expr.AggCount:
		out.dtype = dtypes.Int64
		if f.scalar {
			out.sql = "(CASE WHEN " + f.sql + " IS NULL THEN 0 ELSE 1 END)"
		} else {
			out.sql = call("COUNT")
		}
		return out, nil

	case expr.AggSum:
		zero := "0"
		switch f.dtype {
		case dtypes.Float64:
			out.dtype, zero = dtypes.Float64, "0.0"
		case dtypes.Int64, dtypes.Boolean, dtypes.Null:
			out.dtype = dtypes.Int64
		default:
			return fragment{}, typeMismatch(agg.String(), f.dtype)
		}
		if f.scalar {
			out.sql = "COALESCE(" + f.sql + ", " + zero + ")"
		} else {
			out.sql = "COALESCE(" + call("SUM") + ", " + zero + ")"
		}
		return out, nil

	case expr.AggMean:
		if !isNumericOrNull(f.dtype) && f.dtype != dtypes.Boolean {
			return fragment{}, typeMismatch(agg.String(), f.dtype)
		}
		out.dtype = dtypes.Float64
		if f.scalar {
			out.sql = relation.Cast(f.sql, dtypes.Float64)
		} else {
			out.sql = call("AVG")
		}
		return out, nil

	case expr.AggMin, expr.AggMax:
		switch f.dtype {
		case dtypes.Int64, dtypes.Float64, dtypes.String, dtypes.Boolean, dtypes.Null:
		default:
			return fragment{}, typeMismatch(agg.String(), f.dtype)
		}
		out.dtype = f.dtype
		if f.scalar {
			out.sql = f.sql
		} else if agg == expr.AggMin {
			out.sql = call("MIN")
		} else {
			out.sql = call("MAX")
		}
		return out, nil

	default:
		return fragment{}, errors.NewUnreachableError("aggregate", agg)
	}
}

// textSQL renders f as text the way the eager backend formats values
func textSQL(f fragment) string {
	switch f.dtype {
	case dtypes.String:
		return f.sql
	case dtypes.Null:
		return "NULL"
	case dtypes.Boolean:
		return "(CASE WHEN " + f.sql + " THEN 'true' WHEN NOT " + f.sql + " THEN 'false' END)"
	case dtypes.Float64:
		return "(CASE WHEN " + f.sql + " = CAST(" + f.sql + " AS INTEGER) THEN CAST(CAST(" + f.sql +
			" AS INTEGER) AS TEXT) ELSE CAST(" + f.sql + " AS TEXT) END)"
	default:
		return "CAST(" + f.sql + " AS TEXT)"
	}
}

func sqlList(frags []fragment, each func(f fragment) string) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = each(f)
	}
	return out
}

func plain(f fragment) string { return f.sql }

func itoa(n int) string { return strconv.Itoa(n) }

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func joinSQL(parts []string, sep string) string {
	return "(" + strings.Join(parts, sep) + ")"
}
