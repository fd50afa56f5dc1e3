package compliant

import (
	"fmt"
	"regexp"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
)

// SelectorNamespace builds selectors: expressions that choose columns by
// name, type or pattern rather than computing values.
type SelectorNamespace[F any, E any] struct {
	factory ExprFactory[F, E]
	schema  func(df F) (Schema, error)
}

// NewSelectorNamespace binds selectors to a backend's expression factory and schema lookup
func NewSelectorNamespace[F any, E any](factory ExprFactory[F, E], schema func(df F) (Schema, error)) *SelectorNamespace[F, E] {
	return &SelectorNamespace[F, E]{factory: factory, schema: schema}
}

// Selector picks a subset of a frame's columns, always in frame column order
type Selector[F any, E any] struct {
	ns   *SelectorNamespace[F, E]
	pick func(df F, schema Schema) (map[string]bool, error)
	repr string
}

func (s *SelectorNamespace[F, E]) selector(repr string, pick func(df F, schema Schema) (map[string]bool, error)) *Selector[F, E] {
	return &Selector[F, E]{ns: s, pick: pick, repr: repr}
}

func (s *SelectorNamespace[F, E]) byField(repr string, keep func(Field) bool) *Selector[F, E] {
	return s.selector(repr, func(_ F, schema Schema) (map[string]bool, error) {
		out := make(map[string]bool)
		for _, f := range schema {
			if keep(f) {
				out[f.Name] = true
			}
		}
		return out, nil
	})
}

// ByDType selects columns of any of the given types
func (s *SelectorNamespace[F, E]) ByDType(types ...dtypes.DType) *Selector[F, E] {
	want := make(map[dtypes.DType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	return s.byField(fmt.Sprintf("by_dtype(%v)", types), func(f Field) bool { return want[f.DType] })
}

// Numeric selects integer and floating point columns
func (s *SelectorNamespace[F, E]) Numeric() *Selector[F, E] {
	return s.byField("numeric()", func(f Field) bool { return f.DType.IsNumeric() })
}

// Boolean selects boolean columns
func (s *SelectorNamespace[F, E]) Boolean() *Selector[F, E] {
	return s.ByDType(dtypes.Boolean)
}

// String selects string columns
func (s *SelectorNamespace[F, E]) String() *Selector[F, E] {
	return s.ByDType(dtypes.String)
}

// ByName selects the named columns; each must exist
func (s *SelectorNamespace[F, E]) ByName(names ...string) *Selector[F, E] {
	return s.selector(fmt.Sprintf("by_name(%v)", names), func(_ F, schema Schema) (map[string]bool, error) {
		out := make(map[string]bool, len(names))
		for _, name := range names {
			if _, ok := schema.Lookup(name); !ok {
				return nil, errors.NewColumnNotFoundError("selector", name)
			}
			out[name] = true
		}
		return out, nil
	})
}

// Matches selects columns whose name matches a regular expression
func (s *SelectorNamespace[F, E]) Matches(pattern string) (*Selector[F, E], error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewInvalidInputError("selector", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}
	return s.byField(fmt.Sprintf("matches(%q)", pattern), func(f Field) bool { return re.MatchString(f.Name) }), nil
}

// All selects every column
func (s *SelectorNamespace[F, E]) All() *Selector[F, E] {
	return s.byField("all()", func(Field) bool { return true })
}

// Names resolves the selected columns against df
func (sel *Selector[F, E]) Names(df F) ([]string, error) {
	schema, err := sel.ns.schema(df)
	if err != nil {
		return nil, err
	}
	picked, err := sel.pick(df, schema)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(picked))
	for _, f := range schema {
		if picked[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

// Expr turns the selector into a backend expression over the selected columns
func (sel *Selector[F, E]) Expr() E {
	return sel.ns.factory.FromColumnNames(sel.Names, "selector")
}

// String describes the selector
func (sel *Selector[F, E]) String() string {
	return sel.repr
}

func (sel *Selector[F, E]) combine(repr string, other func(df F, schema Schema) (map[string]bool, error), op func(a, b bool) bool) *Selector[F, E] {
	return sel.ns.selector(repr, func(df F, schema Schema) (map[string]bool, error) {
		left, err := sel.pick(df, schema)
		if err != nil {
			return nil, err
		}
		right, err := other(df, schema)
		if err != nil {
			return nil, err
		}
		out := make(map[string]bool)
		for _, f := range schema {
			if op(left[f.Name], right[f.Name]) {
				out[f.Name] = true
			}
		}
		return out, nil
	})
}

// exprPick picks the columns an expression resolves to; each must exist
func exprPick[F any](other Expr[F]) func(df F, schema Schema) (map[string]bool, error) {
	return func(df F, schema Schema) (map[string]bool, error) {
		names, err := other.OutputNames(df)
		if err != nil {
			return nil, err
		}
		out := make(map[string]bool, len(names))
		for _, name := range names {
			if _, ok := schema.Lookup(name); !ok {
				return nil, errors.NewColumnNotFoundError("selector", name)
			}
			out[name] = true
		}
		return out, nil
	}
}

func union(a, b bool) bool        { return a || b }
func intersection(a, b bool) bool { return a && b }
func difference(a, b bool) bool   { return a && !b }

// Or selects columns picked by either selector
func (sel *Selector[F, E]) Or(other *Selector[F, E]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s | %s)", sel, other), other.pick, union)
}

// And selects columns picked by both selectors
func (sel *Selector[F, E]) And(other *Selector[F, E]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s & %s)", sel, other), other.pick, intersection)
}

// Sub selects columns picked by sel but not by other
func (sel *Selector[F, E]) Sub(other *Selector[F, E]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s - %s)", sel, other), other.pick, difference)
}

// Invert selects every column sel does not pick
func (sel *Selector[F, E]) Invert() *Selector[F, E] {
	return sel.ns.All().Sub(sel)
}

// OrExpr adds the columns of a column-name expression to the selection
func (sel *Selector[F, E]) OrExpr(other Expr[F]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s | %s)", sel, other), exprPick(other), union)
}

// AndExpr keeps only selected columns that the expression also resolves to
func (sel *Selector[F, E]) AndExpr(other Expr[F]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s & %s)", sel, other), exprPick(other), intersection)
}

// SubExpr drops the columns of a column-name expression from the selection
func (sel *Selector[F, E]) SubExpr(other Expr[F]) *Selector[F, E] {
	return sel.combine(fmt.Sprintf("(%s - %s)", sel, other), exprPick(other), difference)
}
