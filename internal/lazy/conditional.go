package lazy

import (
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
)

var _ compliant.ConditionalFactory[*Expr] = (*Namespace)(nil)

// Conditional renders a CASE expression picking then where predicate is
// true and otherwise elsewhere. A nil otherwise yields null. The output is
// named after then.
func (ns *Namespace) Conditional(predicate *Expr, then any, otherwise any) *Expr {
	thenExpr := ns.operand(then)
	inputs := []compliant.ExprMeta[*LazyFrame]{predicate.ExprMeta}
	var otherExpr *Expr
	if otherwise != nil {
		otherExpr = ns.operand(otherwise)
		inputs = append(inputs, otherExpr.ExprMeta)
	}
	meta := thenExpr.ExprMeta.Combine("when_then", inputs...).FirstOutputOnly()

	return newExpr(ns, meta, func(lf *LazyFrame, window bool) ([]fragment, error) {
		mask, err := predicate.single("when", lf, window)
		if err != nil {
			return nil, err
		}
		if mask.dtype != dtypes.Boolean && mask.dtype != dtypes.Null {
			return nil, typeMismatch("when", mask.dtype)
		}
		value, err := thenExpr.single("then", lf, window)
		if err != nil {
			return nil, err
		}

		sql := "(CASE WHEN " + mask.sql + " THEN " + value.sql
		dt := value.dtype
		parts := []fragment{mask, value}
		if otherExpr != nil {
			fallback, err := otherExpr.single("otherwise", lf, window)
			if err != nil {
				return nil, err
			}
			if dt = dtypes.Promote(dt, fallback.dtype); dt == dtypes.Unknown {
				return nil, typeMismatch("otherwise", value.dtype, fallback.dtype)
			}
			sql += " ELSE " + fallback.sql
			parts = append(parts, fallback)
		}
		return []fragment{combine(sql+" END)", dt, parts...)}, nil
	})
}
