// Package relation provides the native lazy frame of the SQLite backend.
//
// A Relation is an immutable SELECT statement bound to a database handle
// together with the names and types of its result columns. Transformations
// wrap the statement in a new one; nothing runs until Collect.
package relation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
)

// Column describes one result column of a relation
type Column struct {
	Name string
	Type dtypes.DType
}

// Projection is one output column of a SELECT list
type Projection struct {
	SQL  string
	Name string
	Type dtypes.DType
}

// Relation is a query plan over a SQLite database
type Relation struct {
	db      *sql.DB
	query   string
	columns []Column
}

// New wraps a SELECT statement whose result has the given columns
func New(db *sql.DB, query string, columns []Column) *Relation {
	return &Relation{db: db, query: query, columns: append([]Column(nil), columns...)}
}

// FromTable reads the column layout of a table and returns a relation over it
func FromTable(ctx context.Context, db *sql.DB, table string) (*Relation, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.NewBackendError("table", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, errors.NewBackendError("table", err)
		}
		columns = append(columns, Column{Name: name, Type: TypeFromDecl(declared)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendError("table", err)
	}
	if len(columns) == 0 {
		return nil, errors.NewInvalidInputError("table", fmt.Sprintf("table %q not found", table))
	}

	return New(db, "SELECT * FROM "+QuoteIdent(table), columns), nil
}

// DB returns the database the relation runs against
func (r *Relation) DB() *sql.DB { return r.db }

// SQL returns the SELECT statement of the relation
func (r *Relation) SQL() string { return r.query }

// Schema returns the result columns in order
func (r *Relation) Schema() []Column { return append([]Column(nil), r.columns...) }

// Columns returns the result column names in order
func (r *Relation) Columns() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the column with the given name
func (r *Relation) Lookup(name string) (Column, bool) {
	for _, c := range r.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (r *Relation) subquery() string {
	return "(" + r.query + ") AS t"
}

func selectList(items []Projection) (string, []Column) {
	parts := make([]string, len(items))
	columns := make([]Column, len(items))
	for i, p := range items {
		parts[i] = p.SQL + " AS " + QuoteIdent(p.Name)
		columns[i] = Column{Name: p.Name, Type: p.Type}
	}
	return strings.Join(parts, ", "), columns
}

// Project evaluates one expression per output column
func (r *Relation) Project(items []Projection) (*Relation, error) {
	if err := distinct("select", items); err != nil {
		return nil, err
	}
	list, columns := selectList(items)
	return New(r.db, "SELECT "+list+" FROM "+r.subquery(), columns), nil
}

// maskColumn holds the evaluated condition while filtering
const maskColumn = "__polyframe_mask"

// Where keeps the rows for which condition is true. The condition is
// evaluated in the SELECT list so it may contain window functions.
func (r *Relation) Where(condition string) *Relation {
	quoted := make([]string, len(r.columns))
	for i, c := range r.columns {
		quoted[i] = QuoteIdent(c.Name)
	}
	inner := "(SELECT *, " + condition + " AS " + maskColumn + " FROM " + r.subquery() + ") AS t"
	return New(r.db, "SELECT "+strings.Join(quoted, ", ")+" FROM "+inner+" WHERE "+maskColumn, r.columns)
}

// Scalars evaluates expressions that reference no columns into a one-row relation
func Scalars(db *sql.DB, items []Projection) (*Relation, error) {
	if err := distinct("select", items); err != nil {
		return nil, err
	}
	list, columns := selectList(items)
	return New(db, "SELECT "+list, columns), nil
}

// rowOrder names the column that records input order during aggregation
const rowOrder = "__polyframe_row"

// Aggregate groups by keys and evaluates one aggregate per item.
// Groups come out in the order of their first row.
func (r *Relation) Aggregate(keys []string, items []Projection) (*Relation, error) {
	out := make([]Projection, 0, len(keys)+len(items))
	quoted := make([]string, len(keys))
	for i, k := range keys {
		c, ok := r.Lookup(k)
		if !ok {
			return nil, errors.NewColumnNotFoundError("group_by", k)
		}
		quoted[i] = QuoteIdent(k)
		out = append(out, Projection{SQL: quoted[i], Name: k, Type: c.Type})
	}
	out = append(out, items...)
	if err := distinct("group_by", out); err != nil {
		return nil, err
	}

	list, columns := selectList(out)
	if len(keys) == 0 {
		return New(r.db, "SELECT "+list+" FROM "+r.subquery(), columns), nil
	}
	numbered := "(SELECT *, ROW_NUMBER() OVER () AS " + rowOrder + " FROM " + r.subquery() + ") AS t"
	query := "SELECT " + list + " FROM " + numbered +
		" GROUP BY " + strings.Join(quoted, ", ") +
		" ORDER BY MIN(" + rowOrder + ")"
	return New(r.db, query, columns), nil
}

// UnionAll stacks relations with identical column names.
// Column types are promoted across the inputs.
func UnionAll(rels []*Relation) (*Relation, error) {
	if len(rels) == 0 {
		return nil, errors.NewInvalidInputError("concat", "no frames to concatenate")
	}
	first := rels[0]
	columns := first.Schema()
	parts := make([]string, len(rels))
	for i, rel := range rels {
		if rel.db != first.db {
			return nil, errors.NewInvalidInputError("concat", "frames belong to different databases")
		}
		names := rel.Columns()
		if strings.Join(names, "\x00") != strings.Join(first.Columns(), "\x00") {
			return nil, errors.NewInvalidInputError("concat",
				fmt.Sprintf("frame %d has columns %v, expected %v", i, names, first.Columns()))
		}
		for j, c := range rel.columns {
			promoted := dtypes.Promote(columns[j].Type, c.Type)
			if promoted == dtypes.Unknown {
				return nil, &errors.DataFrameError{
					Op:      "concat",
					Column:  c.Name,
					Message: fmt.Sprintf("cannot stack %s onto %s", c.Type, columns[j].Type),
					Cause:   errors.ErrInvalidInput,
				}
			}
			columns[j].Type = promoted
		}
		parts[i] = "SELECT * FROM (" + rel.query + ")"
	}
	return New(first.db, strings.Join(parts, " UNION ALL "), columns), nil
}

// Collect runs the query and materialises the result as an Arrow frame
func (r *Relation) Collect(ctx context.Context, mem memory.Allocator) (*dataframe.DataFrame, error) {
	rows, err := r.db.QueryContext(ctx, r.query)
	if err != nil {
		return nil, errors.NewBackendError("collect", err)
	}
	defer func() { _ = rows.Close() }()

	values := make([][]any, len(r.columns))
	scan := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range scan {
		dest[i] = &scan[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewBackendError("collect", err)
		}
		for i, raw := range scan {
			v, err := fromSQL(raw, r.columns[i].Type)
			if err != nil {
				return nil, &errors.DataFrameError{
					Op:      "collect",
					Column:  r.columns[i].Name,
					Message: err.Error(),
					Cause:   errors.ErrTypeMismatch,
				}
			}
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendError("collect", err)
	}

	cols := make([]*series.Series, 0, len(r.columns))
	defer func() {
		for _, s := range cols {
			s.Release()
		}
	}()
	for i, c := range r.columns {
		if values[i] == nil {
			values[i] = []any{}
		}
		s, err := series.FromValues(c.Name, values[i], c.Type, mem)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return dataframe.New(cols...)
}

func distinct(op string, items []Projection) error {
	seen := make(map[string]bool, len(items))
	for _, p := range items {
		if seen[p.Name] {
			return errors.NewInvalidInputError(op, fmt.Sprintf("duplicate column name %q", p.Name))
		}
		seen[p.Name] = true
	}
	return nil
}
