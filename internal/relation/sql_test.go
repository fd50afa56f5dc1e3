package relation

import (
	"math"
	"testing"

	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoting(t *testing.T) {
	assert.Equal(t, `"a"`, QuoteIdent("a"))
	assert.Equal(t, `"say ""hi"""`, QuoteIdent(`say "hi"`))
	assert.Equal(t, `'it''s'`, QuoteString("it's"))
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		value any
		sql   string
		dtype dtypes.DType
	}{
		{nil, "NULL", dtypes.Null},
		{true, "TRUE", dtypes.Boolean},
		{false, "FALSE", dtypes.Boolean},
		{"o'k", "'o''k'", dtypes.String},
		{42, "42", dtypes.Int64},
		{int64(-7), "-7", dtypes.Int64},
		{2.0, "2.0", dtypes.Float64},
		{0.25, "0.25", dtypes.Float64},
		{float32(1.5), "1.5", dtypes.Float64},
	}
	for _, tt := range tests {
		sql, dt, err := Literal(tt.value)
		require.NoError(t, err, "%v", tt.value)
		assert.Equal(t, tt.sql, sql, "%v", tt.value)
		assert.Equal(t, tt.dtype, dt, "%v", tt.value)
	}

	for _, bad := range []any{math.NaN(), math.Inf(1), struct{}{}} {
		_, _, err := Literal(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestTypeFromDecl(t *testing.T) {
	tests := map[string]dtypes.DType{
		"INTEGER":     dtypes.Int64,
		"bigint":      dtypes.Int64,
		"BOOLEAN":     dtypes.Boolean,
		"TEXT":        dtypes.String,
		"VARCHAR(20)": dtypes.String,
		"REAL":        dtypes.Float64,
		"DOUBLE":      dtypes.Float64,
		"NUMERIC":     dtypes.Float64,
		"":            dtypes.Null,
	}
	for decl, want := range tests {
		assert.Equal(t, want, TypeFromDecl(decl), decl)
	}
}

func TestDeclTypeRoundTrip(t *testing.T) {
	for _, dt := range []dtypes.DType{dtypes.Boolean, dtypes.Int64, dtypes.Float64, dtypes.String} {
		assert.Equal(t, dt, TypeFromDecl(DeclType(dt)), dt.String())
	}
	assert.Equal(t, "", DeclType(dtypes.Null))
}

func TestCast(t *testing.T) {
	assert.Equal(t, "CAST(x AS REAL)", Cast("x", dtypes.Float64))
	assert.Equal(t, "CAST(x AS TEXT)", Cast("x", dtypes.String))
	assert.Equal(t, "x", Cast("x", dtypes.Boolean))
	assert.Equal(t, "x", Cast("x", dtypes.Null))
}

func TestFromSQL(t *testing.T) {
	tests := []struct {
		raw   any
		dtype dtypes.DType
		want  any
	}{
		{nil, dtypes.Int64, nil},
		{int64(1), dtypes.Boolean, true},
		{int64(0), dtypes.Boolean, false},
		{true, dtypes.Boolean, true},
		{int64(3), dtypes.Int64, int64(3)},
		{3.0, dtypes.Int64, int64(3)},
		{int64(3), dtypes.Float64, 3.0},
		{[]byte("hi"), dtypes.String, "hi"},
		{int64(5), dtypes.String, "5"},
	}
	for _, tt := range tests {
		got, err := fromSQL(tt.raw, tt.dtype)
		require.NoError(t, err, "%v as %s", tt.raw, tt.dtype)
		assert.Equal(t, tt.want, got, "%v as %s", tt.raw, tt.dtype)
	}

	_, err := fromSQL(3.5, dtypes.Int64)
	assert.Error(t, err)
	_, err = fromSQL("x", dtypes.Boolean)
	assert.Error(t, err)
	_, err = fromSQL(int64(1), dtypes.Null)
	assert.Error(t, err)
}
