package compliant

// ConditionalFactory builds a backend conditional expression.
// then and otherwise are either an E or a literal; a nil otherwise yields null.
type ConditionalFactory[E any] interface {
	Conditional(predicate E, then any, otherwise any) E
}

// When holds a predicate waiting for its then value
type When[E any] struct {
	predicate E
	factory   ConditionalFactory[E]
}

// NewWhen starts a conditional on predicate
func NewWhen[E any](factory ConditionalFactory[E], predicate E) *When[E] {
	return &When[E]{predicate: predicate, factory: factory}
}

// Predicate returns the condition of the builder
func (w *When[E]) Predicate() E {
	return w.predicate
}

// Then resolves the builder; no further transitions follow
func (w *When[E]) Then(value any) *Then[E] {
	return &Then[E]{when: w, value: value}
}

// Then is a resolved conditional: an expression once Expr or Otherwise is called
type Then[E any] struct {
	when  *When[E]
	value any
}

// Otherwise returns the conditional expression, using value where the predicate is not true
func (t *Then[E]) Otherwise(value any) E {
	return t.when.factory.Conditional(t.when.predicate, t.value, value)
}

// Expr returns the conditional expression with null where the predicate is not true
func (t *Then[E]) Expr() E {
	return t.when.factory.Conditional(t.when.predicate, t.value, nil)
}
