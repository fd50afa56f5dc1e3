package lazy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/eager"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/relation"
	"github.com/paveg/polyframe/internal/validation"
)

// LazyFrame wraps one native relation
type LazyFrame struct {
	native *relation.Relation
	ns     *Namespace
}

var _ compliant.LazyFrame[*relation.Relation, *eager.DataFrame] = (*LazyFrame)(nil)

// Native returns the wrapped relation unchanged
func (lf *LazyFrame) Native() *relation.Relation { return lf.native }

// Columns returns the column names in order
func (lf *LazyFrame) Columns() []string { return lf.native.Columns() }

// Implementation returns the SQLite implementation tag
func (lf *LazyFrame) Implementation() compliant.Implementation { return compliant.ImplSQLite }

// Version returns the API dialect of the owning namespace
func (lf *LazyFrame) Version() compliant.Version { return lf.ns.version }

// Namespace returns the namespace that owns the frame
func (lf *LazyFrame) Namespace() *Namespace { return lf.ns }

// SQL returns the query the frame collects with
func (lf *LazyFrame) SQL() string { return lf.native.SQL() }

// String describes the frame
func (lf *LazyFrame) String() string {
	return fmt.Sprintf("LazyFrame[%d columns]", len(lf.native.Columns()))
}

// Schema returns the column names and types in order
func (lf *LazyFrame) Schema() compliant.Schema {
	columns := lf.native.Schema()
	schema := make(compliant.Schema, len(columns))
	for i, c := range columns {
		schema[i] = compliant.Field{Name: c.Name, DType: c.Type}
	}
	return schema
}

// Collect runs the query and returns the result as an eager frame
func (lf *LazyFrame) Collect(ctx context.Context) (*eager.DataFrame, error) {
	ns := lf.ns
	ns.logger.Debug("collect", slog.String("query", lf.native.SQL()))

	var out *eager.DataFrame
	err := ns.metrics.RecordOperation("collect", compliant.ImplSQLite.String(), func() (int64, error) {
		native, err := lf.native.Collect(ctx, ns.eager.Allocator())
		if err != nil {
			return 0, err
		}
		if out, err = ns.eager.DataFrames().FromNative(native); err != nil {
			return 0, err
		}
		return int64(native.Len()), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (lf *LazyFrame) intoExprs(op string, inputs []any) ([]*Expr, error) {
	out := make([]*Expr, len(inputs))
	for i, in := range inputs {
		e, err := lf.ns.IntoExpr(in)
		if err != nil {
			return nil, err
		}
		if e.Implementation() != compliant.ImplSQLite {
			return nil, errors.NewInternalError(op, fmt.Sprintf("expression %s belongs to %s", e, e.Implementation()))
		}
		out[i] = e
	}
	return out, nil
}

// renderAll renders every expression into one projection per output column
func (lf *LazyFrame) renderAll(exprs []*Expr, window bool) ([]relation.Projection, []fragment, error) {
	var items []relation.Projection
	var frags []fragment
	for _, e := range exprs {
		names, out, err := e.fragments(lf, window)
		if err != nil {
			return nil, nil, err
		}
		for i, f := range out {
			items = append(items, relation.Projection{SQL: f.sql, Name: names[i], Type: f.dtype})
		}
		frags = append(frags, out...)
	}
	return items, frags, nil
}

// Select evaluates the expressions into a new frame. When every result is
// a single value the frame has one row; otherwise aggregates are repeated
// on every row.
func (lf *LazyFrame) Select(exprs ...any) (*LazyFrame, error) {
	parsed, err := lf.intoExprs("select", exprs)
	if err != nil {
		return nil, err
	}
	items, frags, err := lf.renderAll(parsed, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NewInvalidInputError("select", "expressions resolve to no columns")
	}

	allScalar, anyAggregate := true, false
	for _, f := range frags {
		allScalar = allScalar && f.scalar
		anyAggregate = anyAggregate || f.aggregate
	}

	var rel *relation.Relation
	switch {
	case !allScalar:
		if items, _, err = lf.renderAll(parsed, true); err != nil {
			return nil, err
		}
		rel, err = lf.native.Project(items)
	case anyAggregate:
		rel, err = lf.native.Aggregate(nil, items)
	default:
		rel, err = relation.Scalars(lf.ns.db, items)
	}
	if err != nil {
		return nil, err
	}
	lf.ns.logger.Debug("select", slog.String("query", rel.SQL()))
	return lf.ns.newFrame(rel), nil
}

// WithColumns adds or replaces columns; single values are repeated on every row
func (lf *LazyFrame) WithColumns(exprs ...any) (*LazyFrame, error) {
	parsed, err := lf.intoExprs("with_columns", exprs)
	if err != nil {
		return nil, err
	}
	added, _, err := lf.renderAll(parsed, true)
	if err != nil {
		return nil, err
	}

	replaced := make(map[string]relation.Projection, len(added))
	for _, p := range added {
		replaced[p.Name] = p
	}
	items := make([]relation.Projection, 0, len(lf.native.Columns())+len(added))
	for _, c := range lf.native.Schema() {
		if p, ok := replaced[c.Name]; ok {
			items = append(items, p)
			delete(replaced, c.Name)
			continue
		}
		items = append(items, relation.Projection{SQL: relation.QuoteIdent(c.Name), Name: c.Name, Type: c.Type})
	}
	for _, p := range added {
		if _, pending := replaced[p.Name]; pending {
			items = append(items, p)
			delete(replaced, p.Name)
		}
	}

	rel, err := lf.native.Project(items)
	if err != nil {
		return nil, err
	}
	return lf.ns.newFrame(rel), nil
}

// Filter keeps the rows where predicate is true; null counts as false
func (lf *LazyFrame) Filter(predicate any) (*LazyFrame, error) {
	parsed, err := lf.intoExprs("filter", []any{predicate})
	if err != nil {
		return nil, err
	}
	mask, err := parsed[0].single("filter", lf, true)
	if err != nil {
		return nil, err
	}
	if mask.dtype != dtypes.Boolean && mask.dtype != dtypes.Null {
		return nil, &errors.DataFrameError{
			Op:      "filter",
			Message: fmt.Sprintf("predicate must be boolean, got %s", mask.dtype),
			Cause:   errors.ErrTypeMismatch,
		}
	}
	return lf.ns.newFrame(lf.native.Where(mask.sql)), nil
}

// GroupBy groups the frame by the given key columns
func (lf *LazyFrame) GroupBy(keys ...string) (*GroupBy, error) {
	if err := validation.ValidateKeys(lf, "group_by", keys...); err != nil {
		return nil, err
	}
	return &GroupBy{lf: lf, keys: append([]string(nil), keys...)}, nil
}

// FrameClass admits native relations
type FrameClass struct {
	ns *Namespace
}

// IsNative reports whether v is a native relation
func (c FrameClass) IsNative(v any) bool {
	rel, ok := v.(*relation.Relation)
	return ok && rel != nil
}

// FromNative wraps a native relation
func (c FrameClass) FromNative(v any) (*LazyFrame, error) {
	if !c.IsNative(v) {
		return nil, errors.NewTypeMismatchError("from_native", v)
	}
	return c.ns.newFrame(v.(*relation.Relation)), nil
}

