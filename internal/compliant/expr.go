package compliant

import (
	"fmt"
	"strings"

	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/expr"
)

// Expr is a deferred, possibly multi-column computation over frames of type F
type Expr[F any] interface {
	OutputNames(df F) ([]string, error)
	Implementation() Implementation
	Version() Version
	String() string
}

// DepthTracked exposes the call-depth bookkeeping of an expression
type DepthTracked interface {
	Depth() int
	FunctionName() string
}

// DepthTrackingExpr is an expression that records how it was composed
type DepthTrackingExpr[F any] interface {
	Expr[F]
	DepthTracked
}

// ComposableExpr is the composition surface shared by backend expressions.
// Every method returns a new expression; the receiver is never modified.
// Operands typed any are either an E or a literal value.
type ComposableExpr[F any, E any] interface {
	Expr[F]
	Alias(name string) E
	Binary(op expr.BinaryOp, other any) E
	Not() E
	Neg() E
	IsNull() E
	FillNull(value any) E
	Abs() E
	Aggregate(agg expr.AggregationType) E
}

// ExprFactory builds backend expressions from column-name resolvers
type ExprFactory[F any, E any] interface {
	FromColumnNames(names EvalNames[F], functionName string) E
	FromColumnIndices(indices ...int) E
}

const functionSeparator = "->"

// ExprMeta is the immutable metadata embedded by backend expressions:
// how output names resolve, and how deep the expression is composed.
type ExprMeta[F any] struct {
	evalNames    EvalNames[F]
	aliasNames   AliasNames
	depth        int
	functionName string
	impl         Implementation
	version      Version
}

// NewExprMeta starts the metadata of a root expression at depth zero
func NewExprMeta[F any](evalNames EvalNames[F], functionName string, impl Implementation, v Version) ExprMeta[F] {
	return ExprMeta[F]{
		evalNames:    evalNames,
		functionName: functionName,
		impl:         impl,
		version:      v,
	}
}

// OutputNames resolves the output column names against df
func (m ExprMeta[F]) OutputNames(df F) ([]string, error) {
	if m.evalNames == nil {
		return nil, errors.NewInternalError("output_names", "expression has no name resolver")
	}
	names, err := m.evalNames(df)
	if err != nil {
		return nil, err
	}
	if m.aliasNames != nil {
		return m.aliasNames(names)
	}
	return names, nil
}

// Depth returns how many transformations wrap the root expression
func (m ExprMeta[F]) Depth() int { return m.depth }

// FunctionName returns the chain of function names, root first, joined by "->"
func (m ExprMeta[F]) FunctionName() string { return m.functionName }

// Implementation returns the backend the expression belongs to
func (m ExprMeta[F]) Implementation() Implementation { return m.impl }

// Version returns the API dialect of the expression
func (m ExprMeta[F]) Version() Version { return m.version }

// LeafName returns the most recent function applied
func (m ExprMeta[F]) LeafName() string { return LeafName(m.functionName) }

// IsElementary reports whether the expression is a bare root (depth zero)
func (m ExprMeta[F]) IsElementary() bool { return m.depth == 0 }

// Derive records one more transformation on top of the expression
func (m ExprMeta[F]) Derive(name string) ExprMeta[F] {
	out := m
	out.depth = m.depth + 1
	if m.functionName == "" {
		out.functionName = name
	} else {
		out.functionName = m.functionName + functionSeparator + name
	}
	return out
}

// Combine derives metadata for a function of several expressions.
// Names come from the receiver, depth from the deepest input.
func (m ExprMeta[F]) Combine(name string, others ...ExprMeta[F]) ExprMeta[F] {
	out := m.Derive(name)
	for _, o := range others {
		if o.depth+1 > out.depth {
			out.depth = o.depth + 1
		}
	}
	return out
}

// WithAlias renames the single output of the expression; depth is unchanged.
// Earlier output renames, such as FirstOutputOnly, apply first.
func (m ExprMeta[F]) WithAlias(name string) ExprMeta[F] {
	out := m
	prev := m.aliasNames
	out.aliasNames = func(names []string) ([]string, error) {
		var err error
		if prev != nil {
			if names, err = prev(names); err != nil {
				return nil, err
			}
		}
		if len(names) != 1 {
			return nil, errors.NewInvalidInputError("alias",
				fmt.Sprintf("cannot alias an expression with %d outputs to %q", len(names), name))
		}
		return []string{name}, nil
	}
	return out
}

// FirstOutputOnly keeps just the first resolved output name
func (m ExprMeta[F]) FirstOutputOnly() ExprMeta[F] {
	out := m
	prev := m.aliasNames
	out.aliasNames = func(names []string) ([]string, error) {
		var err error
		if prev != nil {
			if names, err = prev(names); err != nil {
				return nil, err
			}
		}
		if len(names) == 0 {
			return nil, errors.NewInvalidInputError("output_names", "expression resolves to no columns")
		}
		return names[:1], nil
	}
	return out
}

// LeafName returns the last element of a "->" separated function chain
func LeafName(functionName string) string {
	if i := strings.LastIndex(functionName, functionSeparator); i >= 0 {
		return functionName[i+len(functionSeparator):]
	}
	return functionName
}

// RootName returns the first element of a "->" separated function chain
func RootName(functionName string) string {
	if i := strings.Index(functionName, functionSeparator); i >= 0 {
		return functionName[:i]
	}
	return functionName
}
