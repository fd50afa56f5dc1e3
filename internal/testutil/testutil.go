// Package testutil provides the fixtures shared by backend tests: an
// allocator with cleanup, a standard employee frame, an in-memory SQLite
// database and frame assertions that compare values across backends.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const (
	// defaultRowCount is the default number of rows in test DataFrames.
	defaultRowCount = 4
)

// TestMemoryContext provides a checked allocator that verifies on cleanup
// that every Arrow buffer was released.
type TestMemoryContext struct {
	Allocator *memory.CheckedAllocator
	tb        testing.TB
}

// AssertSize fails the test when buffers are still allocated
func (tmc *TestMemoryContext) AssertSize(size int) {
	tmc.tb.Helper()
	tmc.Allocator.AssertSize(tmc.tb, size)
}

// SetupMemoryTest creates a checked allocator.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	df := testutil.CreateTestDataFrame(t, mem.Allocator)
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewCheckedAllocator(memory.NewGoAllocator()),
		tb:        tb,
	}
}

// TestDataFrameOption configures test DataFrame creation.
type TestDataFrameOption func(*testDataFrameConfig)

type testDataFrameConfig struct {
	includeNulls bool
	rowCount     int
	withActive   bool
}

// WithNulls makes every third age null.
func WithNulls() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.rowCount = count
	}
}

// WithActiveColumn includes an 'active' boolean column.
func WithActiveColumn() TestDataFrameOption {
	return func(cfg *testDataFrameConfig) {
		cfg.withActive = true
	}
}

// CreateTestDataFrame creates a standard test DataFrame with employee data.
// The frame is released when the test ends.
//
// Default DataFrame includes:
// - name (string): ["Alice", "Bob", "Charlie", "David"]
// - age (int64): [25, 30, 35, 28]
// - department (string): ["Engineering", "Sales", "Engineering", "Marketing"]
// - salary (float64): [100000, 80000, 120000, 75000]
func CreateTestDataFrame(tb testing.TB, allocator memory.Allocator, opts ...TestDataFrameOption) *dataframe.DataFrame {
	tb.Helper()
	cfg := &testDataFrameConfig{
		rowCount: defaultRowCount,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var ages *series.Series
	if cfg.includeNulls {
		values := make([]any, cfg.rowCount)
		for i, age := range generateAges(cfg.rowCount) {
			if i%3 != 2 {
				values[i] = age
			}
		}
		var err error
		ages, err = series.FromValues("age", values, dtypes.Int64, allocator)
		require.NoError(tb, err)
	} else {
		ages = series.New("age", generateAges(cfg.rowCount), allocator)
	}

	cols := []*series.Series{
		series.New("name", generateNames(cfg.rowCount), allocator),
		ages,
		series.New("department", generateDepartments(cfg.rowCount), allocator),
		series.New("salary", generateSalaries(cfg.rowCount), allocator),
	}
	if cfg.withActive {
		cols = append(cols, series.New("active", generateActiveFlags(cfg.rowCount), allocator))
	}
	return newFrame(tb, cols...)
}

// CreateSimpleTestDataFrame creates a simple 2-column DataFrame for basic testing.
func CreateSimpleTestDataFrame(tb testing.TB, allocator memory.Allocator) *dataframe.DataFrame {
	tb.Helper()
	return newFrame(tb,
		series.New("name", []string{"Alice", "Bob"}, allocator),
		series.New("age", []int64{25, 30}, allocator),
	)
}

func newFrame(tb testing.TB, cols ...*series.Series) *dataframe.DataFrame {
	tb.Helper()
	df, err := dataframe.New(cols...)
	for _, c := range cols {
		c.Release()
	}
	require.NoError(tb, err)
	tb.Cleanup(df.Release)
	return df
}

// OpenSQLite opens a private in-memory SQLite database closed when the test ends.
// A single connection keeps every statement on the same database.
func OpenSQLite(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(tb, err)
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// AssertDataFrameEqual compares column names, order and values.
// Values compare as the boxed int64/float64/string/bool/nil of Series.Values.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	assert.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")
	require.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")

	for _, colName := range expected.Columns() {
		expectedCol, _ := expected.Column(colName)
		actualCol, _ := actual.Column(colName)
		assert.Equal(t, expectedCol.DType(), actualCol.DType(), "column %s type should match", colName)
		assert.Equal(t, expectedCol.Values(), actualCol.Values(), "column %s data should match", colName)
	}
}

// AssertDataFrameHasColumns verifies that a DataFrame has exactly the expected columns.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Len(t, df.Columns(), len(expectedColumns), "column count should match")
	for _, col := range expectedColumns {
		assert.True(t, df.HasColumn(col), "DataFrame should have column %s", col)
	}
}

// Helper functions for generating test data

func generateNames(count int) []string {
	baseNames := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	names := make([]string, count)
	for i := range count {
		names[i] = baseNames[i%len(baseNames)]
	}
	return names
}

func generateAges(count int) []int64 {
	baseAges := []int64{25, 30, 35, 28, 32, 45, 29, 38}
	ages := make([]int64, count)
	for i := range count {
		ages[i] = baseAges[i%len(baseAges)]
	}
	return ages
}

func generateDepartments(count int) []string {
	baseDepts := []string{"Engineering", "Sales", "Engineering", "Marketing", "HR", "Finance", "Engineering", "Sales"}
	departments := make([]string, count)
	for i := range count {
		departments[i] = baseDepts[i%len(baseDepts)]
	}
	return departments
}

func generateSalaries(count int) []float64 {
	baseSalaries := []float64{100000, 80000, 120000, 75000, 90000, 110000, 95000, 85000}
	salaries := make([]float64, count)
	for i := range count {
		salaries[i] = baseSalaries[i%len(baseSalaries)]
	}
	return salaries
}

func generateActiveFlags(count int) []bool {
	baseFlags := []bool{true, true, false, true, true, false, true, false}
	flags := make([]bool, count)
	for i := range count {
		flags[i] = baseFlags[i%len(baseFlags)]
	}
	return flags
}
