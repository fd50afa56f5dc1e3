package compliant

import (
	"fmt"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
)

// Lower translates an expression-language tree into the expression type of ns.
//
// Operands go back through ns.ParseIntoExpr so backend refinements of input
// classification apply at every level: binary right-hand sides and fill
// values treat strings as literals, everything else treats them as columns.
func Lower[F any, E ComposableExpr[F, E]](ns Namespace[F, E], e expr.Expr) (E, error) {
	var zero E

	switch n := e.(type) {
	case *expr.ColumnExpr:
		return ns.Col(n.Names()...), nil
	case *expr.AllExpr:
		return ns.All(), nil
	case *expr.ExcludeExpr:
		return ns.Exclude(n.Names()...), nil
	case *expr.NthExpr:
		return ns.Nth(n.Indices()...), nil
	case *expr.LiteralExpr:
		return ns.Lit(n.Value(), n.DType()), nil
	case *expr.LenExpr:
		return ns.Len(), nil

	case *expr.BinaryExpr:
		left, err := Lower[F, E](ns, n.Left())
		if err != nil {
			return zero, err
		}
		right, err := ns.ParseIntoExpr(n.Right(), true)
		if err != nil {
			return zero, err
		}
		return left.Binary(n.Op(), right), nil

	case *expr.UnaryExpr:
		operand, err := Lower[F, E](ns, n.Operand())
		if err != nil {
			return zero, err
		}
		if n.Op() == expr.UnaryNot {
			return operand.Not(), nil
		}
		return operand.Neg(), nil

	case *expr.FunctionExpr:
		input, err := Lower[F, E](ns, n.Input())
		if err != nil {
			return zero, err
		}
		switch n.Name() {
		case expr.FuncAbs:
			return input.Abs(), nil
		case expr.FuncIsNull:
			return input.IsNull(), nil
		case expr.FuncFillNull:
			if len(n.Args()) != 1 {
				return zero, errors.NewInvalidInputError("fill_null", "fill_null takes exactly one value")
			}
			value, err := ns.ParseIntoExpr(n.Args()[0], true)
			if err != nil {
				return zero, err
			}
			return input.FillNull(value), nil
		default:
			return zero, errors.NewUnreachableError("lower", n.Name())
		}

	case *expr.AggregationExpr:
		input, err := Lower[F, E](ns, n.Input())
		if err != nil {
			return zero, err
		}
		return input.Aggregate(n.AggType()), nil

	case *expr.AliasExpr:
		input, err := Lower[F, E](ns, n.Input())
		if err != nil {
			return zero, err
		}
		return input.Alias(n.Name()), nil

	case *expr.HorizontalExpr:
		return lowerHorizontal[F, E](ns, n)

	case *expr.CaseExpr:
		return lowerCase[F, E](ns, n)

	case *expr.CompiledExpr:
		compiled, ok := n.Value().(E)
		if !ok {
			return zero, errors.NewInternalError("parse_into_expr",
				fmt.Sprintf("compiled expression %s is not a %s expression", errors.TypeName(n.Value()), ns.Implementation()))
		}
		return compiled, nil

	default:
		return zero, errors.NewUnreachableError("lower", errors.TypeName(e))
	}
}

// IntoExpr parses data and wraps a remaining literal with ns.Lit
func IntoExpr[F any, E ComposableExpr[F, E]](ns Namespace[F, E], data any, strAsLit bool) (E, error) {
	var zero E
	parsed, err := ns.ParseIntoExpr(data, strAsLit)
	if err != nil {
		return zero, err
	}
	if e, ok := parsed.(E); ok {
		return e, nil
	}
	return ns.Lit(parsed, dtypes.Unknown), nil
}

func lowerHorizontal[F any, E ComposableExpr[F, E]](ns Namespace[F, E], n *expr.HorizontalExpr) (E, error) {
	var zero E
	if len(n.Inputs()) == 0 {
		return zero, errors.NewInvalidInputError(n.Kind().String(), "at least one input is required")
	}

	inputs := make([]E, len(n.Inputs()))
	for i, in := range n.Inputs() {
		e, err := IntoExpr[F, E](ns, in, false)
		if err != nil {
			return zero, err
		}
		inputs[i] = e
	}

	switch n.Kind() {
	case expr.HorizontalAll:
		return ns.AllHorizontal(n.IgnoreNulls(), inputs...), nil
	case expr.HorizontalAny:
		return ns.AnyHorizontal(n.IgnoreNulls(), inputs...), nil
	case expr.HorizontalSum:
		return ns.SumHorizontal(inputs...), nil
	case expr.HorizontalMean:
		return ns.MeanHorizontal(inputs...), nil
	case expr.HorizontalMin:
		return ns.MinHorizontal(inputs...), nil
	case expr.HorizontalMax:
		return ns.MaxHorizontal(inputs...), nil
	case expr.HorizontalCoalesce:
		return ns.Coalesce(inputs...), nil
	case expr.HorizontalConcatStr:
		return ns.ConcatStr(n.Separator(), n.IgnoreNulls(), inputs...), nil
	default:
		return zero, errors.NewUnreachableError("lower", n.Kind())
	}
}

// lowerCase folds a chain from its last branch:
// when(a).then(x).when(b).then(y).otherwise(z) is
// when(a).then(x).otherwise(when(b).then(y).otherwise(z)).
func lowerCase[F any, E ComposableExpr[F, E]](ns Namespace[F, E], n *expr.CaseExpr) (E, error) {
	var zero E
	whens := n.Whens()
	if len(whens) == 0 {
		return zero, errors.NewInvalidInputError("when", "a conditional needs at least one branch")
	}

	fallback, hasFallback := n.Otherwise()
	var tail any
	if hasFallback {
		parsed, err := ns.ParseIntoExpr(fallback, false)
		if err != nil {
			return zero, err
		}
		tail = parsed
	}

	var out E
	for i := len(whens) - 1; i >= 0; i-- {
		predicate, err := IntoExpr[F, E](ns, whens[i].Condition, false)
		if err != nil {
			return zero, err
		}
		value, err := ns.ParseIntoExpr(whens[i].Value, false)
		if err != nil {
			return zero, err
		}
		then := ns.When(predicate).Then(value)
		if i == len(whens)-1 && !hasFallback {
			out = then.Expr()
		} else {
			out = then.Otherwise(tail)
		}
		tail = out
	}
	return out, nil
}
