package series

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/polyframe/internal/dtypes"
	dferrors "github.com/paveg/polyframe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name           string
		build          func() *Series
		expectedType   dtypes.DType
		expectedValues []any
	}{
		{
			name:           "string series",
			build:          func() *Series { return New("names", []string{"alice", "bob"}, mem) },
			expectedType:   dtypes.String,
			expectedValues: []any{"alice", "bob"},
		},
		{
			name:           "int series widened to int64",
			build:          func() *Series { return New("ages", []int{25, 30, 35}, mem) },
			expectedType:   dtypes.Int64,
			expectedValues: []any{int64(25), int64(30), int64(35)},
		},
		{
			name:           "float32 series widened to float64",
			build:          func() *Series { return New("scores", []float32{1.5, 2.5}, mem) },
			expectedType:   dtypes.Float64,
			expectedValues: []any{1.5, 2.5},
		},
		{
			name:           "bool series",
			build:          func() *Series { return New("active", []bool{true, false}, mem) },
			expectedType:   dtypes.Boolean,
			expectedValues: []any{true, false},
		},
		{
			name:           "empty series",
			build:          func() *Series { return New("empty", []string{}, mem) },
			expectedType:   dtypes.String,
			expectedValues: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			defer s.Release()

			assert.Equal(t, tt.expectedType, s.DType())
			assert.Equal(t, len(tt.expectedValues), s.Len())
			assert.Equal(t, tt.expectedValues, s.Values())
		})
	}
}

func TestNewSeriesUnsupportedTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		New("bad", []complex64{1}, memory.NewGoAllocator())
	})
}

func TestFromValues(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("infers type and keeps nulls", func(t *testing.T) {
		s, err := FromValues("a", []any{1, nil, 3}, dtypes.Unknown, mem)
		require.NoError(t, err)
		defer s.Release()

		assert.Equal(t, dtypes.Int64, s.DType())
		assert.Equal(t, 1, s.NullCount())
		assert.True(t, s.IsNull(1))
		assert.Equal(t, []any{int64(1), nil, int64(3)}, s.Values())
	})

	t.Run("mixed numerics promote to float64", func(t *testing.T) {
		s, err := FromValues("a", []any{1, 2.5}, dtypes.Unknown, mem)
		require.NoError(t, err)
		defer s.Release()

		assert.Equal(t, dtypes.Float64, s.DType())
		assert.Equal(t, []any{1.0, 2.5}, s.Values())
	})

	t.Run("all nulls give null type", func(t *testing.T) {
		s, err := FromValues("a", []any{nil, nil}, dtypes.Unknown, mem)
		require.NoError(t, err)
		defer s.Release()

		assert.Equal(t, dtypes.Null, s.DType())
		assert.Equal(t, 2, s.Len())
	})

	t.Run("explicit type rejects wrong values", func(t *testing.T) {
		_, err := FromValues("a", []any{"x"}, dtypes.Int64, mem)
		assert.ErrorIs(t, err, dferrors.ErrTypeMismatch)
	})

	t.Run("incompatible values", func(t *testing.T) {
		_, err := FromValues("a", []any{"x", 1}, dtypes.Unknown, mem)
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})
}

func TestNulls(t *testing.T) {
	s := Nulls("n", dtypes.Float64, 3, memory.NewGoAllocator())
	defer s.Release()

	assert.Equal(t, dtypes.Float64, s.DType())
	assert.Equal(t, 3, s.NullCount())
	assert.Equal(t, []any{nil, nil, nil}, s.Values())
}

func TestSeriesOperations(t *testing.T) {
	mem := memory.NewGoAllocator()
	s := New("x", []int64{10, 20, 30, 40}, mem)
	defer s.Release()

	t.Run("rename shares data", func(t *testing.T) {
		r := s.Rename("y")
		defer r.Release()
		assert.Equal(t, "y", r.Name())
		assert.Equal(t, "x", s.Name())
		assert.Equal(t, s.Values(), r.Values())
	})

	t.Run("take", func(t *testing.T) {
		tk, err := s.Take([]int{3, 0, 0}, mem)
		require.NoError(t, err)
		defer tk.Release()
		assert.Equal(t, []any{int64(40), int64(10), int64(10)}, tk.Values())
	})

	t.Run("take out of bounds", func(t *testing.T) {
		_, err := s.Take([]int{4}, mem)
		assert.ErrorIs(t, err, dferrors.ErrInvalidInput)
	})

	t.Run("value out of range is nil", func(t *testing.T) {
		assert.Nil(t, s.Value(-1))
		assert.Nil(t, s.Value(4))
	})

	t.Run("string form", func(t *testing.T) {
		assert.Equal(t, "Series[int64]: x (len=4)", s.String())
		assert.Equal(t, "20", s.GetAsString(1))
	})
}

func TestConcat(t *testing.T) {
	mem := memory.NewGoAllocator()
	a := New("a", []string{"x"}, mem)
	b := New("a", []string{"y", "z"}, mem)
	defer a.Release()
	defer b.Release()

	out, err := Concat("a", []*Series{a, b}, mem)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{"x", "y", "z"}, out.Values())

	_, err = Concat("a", nil, mem)
	assert.ErrorIs(t, err, dferrors.ErrInvalidInput)

	c := New("a", []int64{1}, mem)
	defer c.Release()
	_, err = Concat("a", []*Series{a, c}, mem)
	assert.Error(t, err)
}

func TestNumericConversion(t *testing.T) {
	n, ok := ToInt64(int32(7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = ToInt64(1.5)
	assert.False(t, ok)

	n, ok = ToInt64(uint64(math.MaxInt64))
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), n)

	_, ok = ToInt64(uint64(math.MaxUint64))
	assert.False(t, ok, "values above MaxInt64 must not wrap")
	_, ok = ToInt64(uint(math.MaxUint64))
	assert.False(t, ok)
	_, ok = ToFloat64(uint64(math.MaxUint64))
	assert.False(t, ok)

	_, err := FromValues("big", []any{uint64(math.MaxUint64)}, dtypes.Unknown, memory.NewGoAllocator())
	assert.ErrorIs(t, err, dferrors.ErrTypeMismatch)

	f, ok := ToFloat64(uint8(2))
	assert.True(t, ok)
	assert.InDelta(t, 2.0, f, 1e-9)
}
