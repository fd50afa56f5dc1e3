package relation

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
	"github.com/paveg/polyframe/internal/series"
	"github.com/paveg/polyframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.OpenSQLite(t)
}

func seed(t *testing.T, db *sql.DB) *Relation {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `CREATE TABLE people (name TEXT, age INTEGER, score REAL, active BOOLEAN)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO people VALUES
		('ann', 31, 1.5, 1),
		('bob', 25, NULL, 0),
		('cat', 31, 4.0, 1),
		(NULL, 40, 2.5, NULL)`)
	require.NoError(t, err)

	rel, err := FromTable(ctx, db, "people")
	require.NoError(t, err)
	return rel
}

func collect(t *testing.T, rel *Relation) *dataframe.DataFrame {
	t.Helper()
	df, err := rel.Collect(context.Background(), memory.NewGoAllocator())
	require.NoError(t, err)
	t.Cleanup(df.Release)
	return df
}

func values(t *testing.T, df *dataframe.DataFrame, name string) []any {
	t.Helper()
	s, ok := df.Column(name)
	require.True(t, ok, "missing column %s", name)
	return s.Values()
}

func TestFromTable(t *testing.T) {
	db := openDB(t)
	rel := seed(t, db)

	assert.Equal(t, []string{"name", "age", "score", "active"}, rel.Columns())
	assert.Equal(t, []Column{
		{Name: "name", Type: dtypes.String},
		{Name: "age", Type: dtypes.Int64},
		{Name: "score", Type: dtypes.Float64},
		{Name: "active", Type: dtypes.Boolean},
	}, rel.Schema())
	assert.Same(t, db, rel.DB())

	df := collect(t, rel)
	assert.Equal(t, 4, df.Len())
	assert.Equal(t, []any{"ann", "bob", "cat", nil}, values(t, df, "name"))
	assert.Equal(t, []any{int64(31), int64(25), int64(31), int64(40)}, values(t, df, "age"))
	assert.Equal(t, []any{1.5, nil, 4.0, 2.5}, values(t, df, "score"))
	assert.Equal(t, []any{true, false, true, nil}, values(t, df, "active"))

	_, err := FromTable(context.Background(), db, "missing")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestProjectAndWhere(t *testing.T) {
	rel := seed(t, openDB(t))

	projected, err := rel.Project([]Projection{
		{SQL: `"age" * 2`, Name: "double", Type: dtypes.Int64},
		{SQL: `"name"`, Name: "name", Type: dtypes.String},
	})
	require.NoError(t, err)
	filtered := projected.Where(`"double" > AVG("double") OVER ()`)
	assert.Equal(t, []string{"double", "name"}, filtered.Columns())

	df := collect(t, filtered)
	assert.Equal(t, []any{int64(80)}, values(t, df, "double"))
	assert.Equal(t, []any{nil}, values(t, df, "name"))

	_, err = rel.Project([]Projection{
		{SQL: `"age"`, Name: "x", Type: dtypes.Int64},
		{SQL: `"name"`, Name: "x", Type: dtypes.String},
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestAggregate(t *testing.T) {
	rel := seed(t, openDB(t))

	t.Run("groups in order of first appearance", func(t *testing.T) {
		agg, err := rel.Aggregate([]string{"age"}, []Projection{
			{SQL: `COUNT(*)`, Name: "n", Type: dtypes.Int64},
			{SQL: `COALESCE(SUM("score"), 0.0)`, Name: "total", Type: dtypes.Float64},
		})
		require.NoError(t, err)
		df := collect(t, agg)
		assert.Equal(t, []any{int64(31), int64(25), int64(40)}, values(t, df, "age"))
		assert.Equal(t, []any{int64(2), int64(1), int64(1)}, values(t, df, "n"))
		assert.Equal(t, []any{5.5, 0.0, 2.5}, values(t, df, "total"))
	})

	t.Run("without keys", func(t *testing.T) {
		agg, err := rel.Aggregate(nil, []Projection{{SQL: `MAX("age")`, Name: "oldest", Type: dtypes.Int64}})
		require.NoError(t, err)
		assert.Equal(t, []any{int64(40)}, values(t, collect(t, agg), "oldest"))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := rel.Aggregate([]string{"missing"}, nil)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("key collides with aggregate", func(t *testing.T) {
		_, err := rel.Aggregate([]string{"age"}, []Projection{{SQL: `COUNT(*)`, Name: "age", Type: dtypes.Int64}})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestUnionAll(t *testing.T) {
	db := openDB(t)
	rel := seed(t, db)

	ints, err := rel.Project([]Projection{{SQL: `"age"`, Name: "v", Type: dtypes.Int64}})
	require.NoError(t, err)
	floats, err := rel.Project([]Projection{{SQL: `"score"`, Name: "v", Type: dtypes.Float64}})
	require.NoError(t, err)

	stacked, err := UnionAll([]*Relation{ints, floats})
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "v", Type: dtypes.Float64}}, stacked.Schema())
	assert.Equal(t, []any{31.0, 25.0, 31.0, 40.0, 1.5, nil, 4.0, 2.5}, values(t, collect(t, stacked), "v"))

	names, err := rel.Project([]Projection{{SQL: `"name"`, Name: "v", Type: dtypes.String}})
	require.NoError(t, err)
	_, err = UnionAll([]*Relation{ints, names})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = UnionAll([]*Relation{ints, rel})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = UnionAll(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = UnionAll([]*Relation{ints, New(openDB(t), "SELECT 1 AS v", []Column{{Name: "v", Type: dtypes.Int64}})})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestScalars(t *testing.T) {
	rel, err := Scalars(openDB(t), []Projection{
		{SQL: "1", Name: "one", Type: dtypes.Int64},
		{SQL: "'x'", Name: "x", Type: dtypes.String},
		{SQL: "NULL", Name: "none", Type: dtypes.Null},
	})
	require.NoError(t, err)
	df := collect(t, rel)
	assert.Equal(t, 1, df.Len())
	assert.Equal(t, []any{int64(1)}, values(t, df, "one"))
	assert.Equal(t, []any{"x"}, values(t, df, "x"))
	assert.Equal(t, []any{nil}, values(t, df, "none"))
}

func TestMaterialize(t *testing.T) {
	db := openDB(t)
	mem := memory.NewGoAllocator()

	names, err := series.FromValues("name", []any{"a", nil, "c"}, dtypes.String, mem)
	require.NoError(t, err)
	defer names.Release()
	flags, err := series.FromValues("flag", []any{true, false, nil}, dtypes.Boolean, mem)
	require.NoError(t, err)
	defer flags.Release()
	ratios, err := series.FromValues("ratio", []any{0.5, 1.0, nil}, dtypes.Float64, mem)
	require.NoError(t, err)
	defer ratios.Release()
	src, err := dataframe.New(names, flags, ratios)
	require.NoError(t, err)
	defer src.Release()

	rel, err := Materialize(context.Background(), db, src)
	require.NoError(t, err)
	assert.Contains(t, rel.SQL(), TablePrefix)
	assert.Equal(t, src.Columns(), rel.Columns())

	df := collect(t, rel)
	assert.Equal(t, []any{"a", nil, "c"}, values(t, df, "name"))
	assert.Equal(t, []any{true, false, nil}, values(t, df, "flag"))
	assert.Equal(t, []any{0.5, 1.0, nil}, values(t, df, "ratio"))

	empty, err := dataframe.New()
	require.NoError(t, err)
	_, err = Materialize(context.Background(), db, empty)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestBackendFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("table introspection", func(t *testing.T) {
		mock.ExpectQuery("pragma_table_info").WillReturnError(assert.AnError)
		_, err := FromTable(context.Background(), db, "people")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("collect query", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
		rel := New(db, "SELECT 1 AS one", []Column{{Name: "one", Type: dtypes.Int64}})
		_, err := rel.Collect(context.Background(), memory.NewGoAllocator())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("collect type conversion", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow("text"))
		rel := New(db, "SELECT 1 AS one", []Column{{Name: "one", Type: dtypes.Int64}})
		_, err := rel.Collect(context.Background(), memory.NewGoAllocator())
		assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	})

	t.Run("materialize insert", func(t *testing.T) {
		s := series.New("x", []int64{1}, nil)
		defer s.Release()
		src, err := dataframe.New(s)
		require.NoError(t, err)
		defer src.Release()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectPrepare("INSERT INTO").ExpectExec().WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err = Materialize(context.Background(), db, src)
		assert.ErrorIs(t, err, assert.AnError)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
