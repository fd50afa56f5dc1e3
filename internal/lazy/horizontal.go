package lazy

import (
	"strings"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
	"github.com/paveg/polyframe/internal/relation"
)

// sqlReducer checks the input types of a horizontal reducer and renders it
type sqlReducer func(op string, frags []fragment) (string, dtypes.DType, error)

func (ns *Namespace) horizontal(kind expr.HorizontalKind, reducer sqlReducer, exprs []*Expr) *Expr {
	op := kind.String()
	if len(exprs) == 0 {
		noInputs := func(*LazyFrame) ([]string, error) {
			return nil, errors.NewInvalidInputError(op, "at least one input is required")
		}
		meta := compliant.NewExprMeta[*LazyFrame](noInputs, "", compliant.ImplSQLite, ns.version)
		return newExpr(ns, meta, func(lf *LazyFrame, _ bool) ([]fragment, error) {
			_, err := noInputs(lf)
			return nil, err
		})
	}

	others := make([]compliant.ExprMeta[*LazyFrame], 0, len(exprs)-1)
	for _, e := range exprs[1:] {
		others = append(others, e.ExprMeta)
	}
	meta := exprs[0].ExprMeta.Combine(op, others...).FirstOutputOnly()

	return newExpr(ns, meta, func(lf *LazyFrame, window bool) ([]fragment, error) {
		var frags []fragment
		for _, e := range exprs {
			out, err := e.render(lf, window)
			if err != nil {
				return nil, err
			}
			frags = append(frags, out...)
		}
		if len(frags) == 0 {
			return nil, errors.NewInvalidInputError(op, "inputs resolve to no columns")
		}
		sql, dt, err := reducer(op, frags)
		if err != nil {
			return nil, err
		}
		return []fragment{combine(sql, dt, frags...)}, nil
	})
}

func requireTypes(op string, frags []fragment, ok func(dtypes.DType) bool) error {
	for _, f := range frags {
		if !ok(f.dtype) && f.dtype != dtypes.Null {
			types := make([]dtypes.DType, len(frags))
			for i, g := range frags {
				types[i] = g.dtype
			}
			return typeMismatch(op, types...)
		}
	}
	return nil
}

func numericTypeOf(op string, frags []fragment) (dtypes.DType, error) {
	if err := requireTypes(op, frags, dtypes.DType.IsNumeric); err != nil {
		return dtypes.Unknown, err
	}
	for _, f := range frags {
		if f.dtype == dtypes.Float64 {
			return dtypes.Float64, nil
		}
	}
	return dtypes.Int64, nil
}

// logicalSQL joins booleans with AND or OR. SQL connectives already follow
// Kleene logic; with ignoreNulls a null is replaced by the neutral value.
func logicalSQL(connective string, ignoreNulls bool) sqlReducer {
	neutral := "TRUE"
	if connective == "OR" {
		neutral = "FALSE"
	}
	return func(op string, frags []fragment) (string, dtypes.DType, error) {
		if err := requireTypes(op, frags, func(dt dtypes.DType) bool { return dt == dtypes.Boolean }); err != nil {
			return "", dtypes.Unknown, err
		}
		parts := sqlList(frags, func(f fragment) string {
			if ignoreNulls {
				return "COALESCE(" + f.sql + ", " + neutral + ")"
			}
			return f.sql
		})
		return joinSQL(parts, " "+connective+" "), dtypes.Boolean, nil
	}
}

func zeroFilled(frags []fragment) string {
	return joinSQL(sqlList(frags, func(f fragment) string { return "COALESCE(" + f.sql + ", 0)" }), " + ")
}

func sumSQL(op string, frags []fragment) (string, dtypes.DType, error) {
	dt, err := numericTypeOf(op, frags)
	if err != nil {
		return "", dtypes.Unknown, err
	}
	return zeroFilled(frags), dt, nil
}

func meanSQL(op string, frags []fragment) (string, dtypes.DType, error) {
	if _, err := numericTypeOf(op, frags); err != nil {
		return "", dtypes.Unknown, err
	}
	present := joinSQL(sqlList(frags, func(f fragment) string { return "(" + f.sql + " IS NOT NULL)" }), " + ")
	return "(" + relation.Cast(zeroFilled(frags), dtypes.Float64) + " / NULLIF(" + present + ", 0))", dtypes.Float64, nil
}

// extremeSQL uses the multi-argument MIN or MAX. Those return null as soon
// as one argument is null, so every argument falls back to the first
// non-null input, which never changes the result.
func extremeSQL(fn string) sqlReducer {
	return func(op string, frags []fragment) (string, dtypes.DType, error) {
		dt, err := numericTypeOf(op, frags)
		if err != nil {
			if requireTypes(op, frags, func(t dtypes.DType) bool { return t == dtypes.String }) != nil {
				return "", dtypes.Unknown, err
			}
			dt = dtypes.String
		}
		if len(frags) == 1 {
			return frags[0].sql, dt, nil
		}
		all := sqlList(frags, plain)
		args := make([]string, len(frags))
		for i, f := range frags {
			args[i] = "COALESCE(" + f.sql + ", " + strings.Join(all, ", ") + ")"
		}
		return fn + "(" + strings.Join(args, ", ") + ")", dt, nil
	}
}

func coalesceSQL(op string, frags []fragment) (string, dtypes.DType, error) {
	dt := dtypes.Null
	for _, f := range frags {
		dt = dtypes.Promote(dt, f.dtype)
	}
	if dt == dtypes.Unknown {
		return "", dtypes.Unknown, requireTypes(op, frags, func(dtypes.DType) bool { return false })
	}
	if len(frags) == 1 {
		return frags[0].sql, dt, nil
	}
	return "COALESCE(" + strings.Join(sqlList(frags, plain), ", ") + ")", dt, nil
}

// concatStrSQL joins the inputs as text. With ignoreNulls every present
// value is prefixed by the separator and the leading one is cut off;
// otherwise || propagates any null.
func concatStrSQL(separator string, ignoreNulls bool) sqlReducer {
	sep := relation.QuoteString(separator)
	return func(_ string, frags []fragment) (string, dtypes.DType, error) {
		texts := sqlList(frags, textSQL)
		if !ignoreNulls {
			glue := " || "
			if separator != "" {
				glue = " || " + sep + " || "
			}
			return joinSQL(texts, glue), dtypes.String, nil
		}

		parts := make([]string, len(texts))
		for i, t := range texts {
			if separator == "" {
				parts[i] = "COALESCE(" + t + ", '')"
			} else {
				parts[i] = "COALESCE(" + sep + " || " + t + ", '')"
			}
		}
		joined := joinSQL(parts, " || ")
		if separator == "" {
			return joined, dtypes.String, nil
		}
		return "SUBSTR(" + joined + ", " + itoa(runeLen(separator)+1) + ")", dtypes.String, nil
	}
}
