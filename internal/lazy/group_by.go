package lazy

import (
	"fmt"
	"log/slog"

	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/relation"
)

// GroupBy aggregates a lazy frame with a GROUP BY query.
// Groups appear in the order their first row appears in the frame.
type GroupBy struct {
	lf   *LazyFrame
	keys []string
}

var _ compliant.GroupBy[*LazyFrame, *Expr] = (*GroupBy)(nil)

// Keys returns the grouping columns
func (g *GroupBy) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Agg evaluates one aggregation per expression output. Every output must
// reduce to a single value per group. Key columns are left out of
// expressions that resolve to several columns.
func (g *GroupBy) Agg(exprs ...*Expr) (*LazyFrame, error) {
	ns := g.lf.ns
	isKey := make(map[string]bool, len(g.keys))
	for _, k := range g.keys {
		isKey[k] = true
	}

	var out *LazyFrame
	err := ns.metrics.RecordOperation("group_by", compliant.ImplSQLite.String(), func() (int64, error) {
		var items []relation.Projection
		for _, e := range exprs {
			names, frags, err := e.fragments(g.lf, false)
			if err != nil {
				return 0, err
			}
			implicit := e.implicit || len(frags) > 1
			for i, f := range frags {
				if implicit && isKey[names[i]] {
					continue
				}
				if !f.scalar {
					return 0, &errors.DataFrameError{
						Op:      "group_by",
						Column:  names[i],
						Message: fmt.Sprintf("%s does not reduce to one value per group", e),
						Cause:   errors.ErrInvalidInput,
					}
				}
				items = append(items, relation.Projection{SQL: f.sql, Name: names[i], Type: f.dtype})
			}
		}

		rel, err := g.lf.native.Aggregate(g.keys, items)
		if err != nil {
			return 0, err
		}
		ns.logger.Debug("group_by", slog.Any("keys", g.keys), slog.String("query", rel.SQL()))
		out = ns.newFrame(rel)
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
