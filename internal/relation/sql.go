package relation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/series"
)

// QuoteIdent quotes an identifier for SQLite
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString renders a SQL string literal
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Literal renders a Go scalar as a SQL literal and reports its type
func Literal(v any) (string, dtypes.DType, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", dtypes.Null, nil
	case bool:
		if x {
			return "TRUE", dtypes.Boolean, nil
		}
		return "FALSE", dtypes.Boolean, nil
	case string:
		return QuoteString(x), dtypes.String, nil
	case float32, float64:
		f, _ := series.ToFloat64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", dtypes.Unknown, fmt.Errorf("cannot represent %v in SQL", f)
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s, dtypes.Float64, nil
	default:
		if n, ok := series.ToInt64(v); ok {
			return strconv.FormatInt(n, 10), dtypes.Int64, nil
		}
		return "", dtypes.Unknown, fmt.Errorf("unsupported literal of type %T", v)
	}
}

// DeclType returns the column type used to store values of dt
func DeclType(dt dtypes.DType) string {
	switch dt {
	case dtypes.Boolean:
		return "BOOLEAN"
	case dtypes.Int64:
		return "INTEGER"
	case dtypes.Float64:
		return "REAL"
	case dtypes.String:
		return "TEXT"
	default:
		return ""
	}
}

// TypeFromDecl maps a declared SQLite column type onto a DType
func TypeFromDecl(decl string) dtypes.DType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return dtypes.Boolean
	case strings.Contains(d, "INT"):
		return dtypes.Int64
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return dtypes.String
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return dtypes.Float64
	case d == "":
		return dtypes.Null
	default:
		return dtypes.Float64
	}
}

// Cast renders a conversion of expression sql to dt
func Cast(sql string, dt dtypes.DType) string {
	if decl := DeclType(dt); decl != "" && dt != dtypes.Boolean {
		return "CAST(" + sql + " AS " + decl + ")"
	}
	return sql
}

// fromSQL converts a scanned SQLite value to the boxed form of dt
func fromSQL(raw any, dt dtypes.DType) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch dt {
	case dtypes.Boolean:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case dtypes.Int64:
		switch x := raw.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case dtypes.Float64:
		if f, ok := series.ToFloat64(raw); ok {
			return f, nil
		}
	case dtypes.String:
		switch x := raw.(type) {
		case string:
			return x, nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		}
	case dtypes.Null:
		return nil, fmt.Errorf("non-null value %v in a null column", raw)
	}
	return nil, fmt.Errorf("cannot read %T as %s", raw, dt)
}
