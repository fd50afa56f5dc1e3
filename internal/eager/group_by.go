package eager

import (
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/paveg/polyframe/internal/compliant"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
)

// GroupBy aggregates an eager frame per distinct combination of key values.
// Groups appear in the order their first row appears in the frame.
type GroupBy struct {
	df   *DataFrame
	keys []string
}

var _ compliant.GroupBy[*DataFrame, *Expr] = (*GroupBy)(nil)

// Keys returns the grouping columns
func (g *GroupBy) Keys() []string {
	return append([]string(nil), g.keys...)
}

// groups partitions the row indices by key; nulls form their own group
func (g *GroupBy) groups() [][]int {
	keyCols := make([]*series.Series, len(g.keys))
	for i, k := range g.keys {
		keyCols[i], _ = g.df.native.Column(k)
	}

	buckets := make(map[uint64][]int) // hash -> group ids
	var groups [][]int
	digest := xxhash.New()

	for row := 0; row < g.df.Len(); row++ {
		digest.Reset()
		for _, c := range keyCols {
			if c.IsNull(row) {
				_, _ = digest.Write([]byte{0})
			} else {
				_, _ = digest.Write([]byte{1})
				_, _ = digest.WriteString(c.GetAsString(row))
			}
			_, _ = digest.Write([]byte{0xff})
		}
		h := digest.Sum64()

		found := -1
		for _, id := range buckets[h] {
			if sameKey(keyCols, groups[id][0], row) {
				found = id
				break
			}
		}
		if found < 0 {
			found = len(groups)
			groups = append(groups, nil)
			buckets[h] = append(buckets[h], found)
		}
		groups[found] = append(groups[found], row)
	}
	return groups
}

func sameKey(cols []*series.Series, a, b int) bool {
	for _, c := range cols {
		if c.Value(a) != c.Value(b) {
			return false
		}
	}
	return true
}

// Agg evaluates one value per group for every expression.
// The result holds the key columns followed by the aggregations.
func (g *GroupBy) Agg(exprs ...*Expr) (*DataFrame, error) {
	ns := g.df.ns
	var out *DataFrame
	err := ns.metrics.RecordOperation("group_by", compliant.ImplArrow.String(), func() (int64, error) {
		groups := g.groups()
		ns.logger.Debug("group_by", slog.Any("keys", g.keys), slog.Int("groups", len(groups)))

		firstRows := make([]int, len(groups))
		for i, rows := range groups {
			firstRows[i] = rows[0]
		}
		keyFrame, err := g.df.native.Select(g.keys...)
		if err != nil {
			return 0, err
		}
		keys, err := keyFrame.Take(firstRows, ns.mem)
		keyFrame.Release()
		if err != nil {
			return 0, err
		}
		defer keys.Release()

		cols := make([]*series.Series, 0, len(g.keys)+len(exprs))
		defer func() { releaseSeries(cols) }()
		for _, k := range g.keys {
			c, _ := keys.Column(k)
			cols = append(cols, c.Clone())
		}

		for _, e := range exprs {
			var aggregated []*series.Series
			if compliant.IsSimpleAggregation(e) && (e.reduction != nil || e.FunctionName() == "len") {
				aggregated, err = g.simple(e, groups)
			} else {
				ns.logger.Debug("group_by: per-group evaluation", slog.String("expr", e.String()))
				aggregated, err = g.complex(e, groups)
			}
			if err != nil {
				return 0, err
			}
			cols = append(cols, aggregated...)
		}

		native, err := dataframe.New(cols...)
		if err != nil {
			return 0, err
		}
		out = ns.newFrame(native)
		return int64(native.Len()), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// outputs resolves the output names of e, leaving key columns out of
// expressions that select columns implicitly or resolve to several columns.
func (g *GroupBy) outputs(e *Expr) (names []string, keep []bool, err error) {
	names, err = e.OutputNames(g.df)
	if err != nil {
		return nil, nil, err
	}
	keep = make([]bool, len(names))
	implicit := len(names) > 1
	switch compliant.RootName(e.FunctionName()) {
	case "all", "exclude", "selector":
		implicit = true
	}
	isKey := make(map[string]bool, len(g.keys))
	for _, k := range g.keys {
		isKey[k] = true
	}
	for i, name := range names {
		keep[i] = !implicit || !isKey[name]
	}
	return names, keep, nil
}

// simple reduces the input of a bare aggregation once per group
func (g *GroupBy) simple(e *Expr, groups [][]int) ([]*series.Series, error) {
	ns := g.df.ns
	if e.reduction == nil {
		counts := make([]int64, len(groups))
		for i, rows := range groups {
			counts[i] = int64(len(rows))
		}
		names, err := e.OutputNames(g.df)
		if err != nil {
			return nil, err
		}
		return []*series.Series{series.New(names[0], counts, ns.mem)}, nil
	}

	names, keep, err := g.outputs(e)
	if err != nil {
		return nil, err
	}
	inputs, err := e.reduction.input.evaluate(g.df)
	if err != nil {
		return nil, err
	}
	defer releaseSeries(inputs)
	if len(inputs) != len(names) {
		return nil, errors.NewInternalError("group_by",
			fmt.Sprintf("%s has %d inputs for %d outputs", e, len(inputs), len(names)))
	}

	var out []*series.Series
	for i, in := range inputs {
		if !keep[i] {
			continue
		}
		if in.Len() != g.df.Len() {
			releaseSeries(out)
			return nil, errors.NewInvalidInputError("group_by",
				fmt.Sprintf("%s has %d rows, frame has %d", in.Name(), in.Len(), g.df.Len()))
		}
		values := make([]any, len(groups))
		dt := in.DType()
		for j, rows := range groups {
			group := make([]any, len(rows))
			for k, row := range rows {
				group[k] = in.Value(row)
			}
			v, resultType, err := reduceValues(e.reduction.agg, names[i], in.DType(), group)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
			values[j] = v
			dt = resultType
		}
		if len(groups) == 0 {
			_, dt, err = reduceValues(e.reduction.agg, names[i], in.DType(), nil)
			if err != nil {
				releaseSeries(out)
				return nil, err
			}
		}
		s, err := series.FromValues(names[i], values, dt, ns.mem)
		if err != nil {
			releaseSeries(out)
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// complex evaluates e on every group; each output must reduce to one value
func (g *GroupBy) complex(e *Expr, groups [][]int) ([]*series.Series, error) {
	ns := g.df.ns
	names, keep, err := g.outputs(e)
	if err != nil {
		return nil, err
	}

	columns := make([][]any, len(names))
	for i := range columns {
		columns[i] = make([]any, len(groups))
	}
	types := make([]dtypes.DType, len(names))
	for i := range types {
		types[i] = dtypes.Null
	}

	for j, rows := range groups {
		native, err := g.df.native.Take(rows, ns.mem)
		if err != nil {
			return nil, err
		}
		results, err := e.evaluate(ns.newFrame(native))
		native.Release()
		if err != nil {
			return nil, err
		}
		if len(results) != len(names) {
			releaseSeries(results)
			return nil, errors.NewInternalError("group_by",
				fmt.Sprintf("%s produced %d columns for %d output names", e, len(results), len(names)))
		}
		for i, r := range results {
			if r.Len() != 1 {
				releaseSeries(results)
				return nil, &errors.DataFrameError{
					Op:      "group_by",
					Column:  names[i],
					Message: fmt.Sprintf("aggregation produced %d values for a group, expected 1", r.Len()),
					Cause:   errors.ErrInvalidInput,
				}
			}
			columns[i][j] = r.Value(0)
			types[i] = dtypes.Promote(types[i], r.DType())
		}
		releaseSeries(results)
	}

	var out []*series.Series
	for i, name := range names {
		if !keep[i] {
			continue
		}
		s, err := series.FromValues(name, columns[i], types[i], ns.mem)
		if err != nil {
			releaseSeries(out)
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
