// Package dtypes defines the backend-neutral data types shared by every
// compliant backend.
package dtypes

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// DType is a backend-neutral column data type
type DType int

const (
	Unknown DType = iota
	Null
	Boolean
	Int64
	Float64
	String
)

// String returns the lower-case name of the data type
func (d DType) String() string {
	switch d {
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the type is an integer or floating point type
func (d DType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// FromArrow maps an Arrow data type onto a DType
func FromArrow(dt arrow.DataType) DType {
	if dt == nil {
		return Unknown
	}
	switch dt.ID() {
	case arrow.NULL:
		return Null
	case arrow.BOOL:
		return Boolean
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return Int64
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return Float64
	case arrow.STRING, arrow.LARGE_STRING:
		return String
	default:
		return Unknown
	}
}

// Arrow returns the Arrow data type used to store values of this type.
// Unknown maps to the Arrow null type.
func (d DType) Arrow() arrow.DataType {
	switch d {
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case String:
		return arrow.BinaryTypes.String
	default:
		return arrow.Null
	}
}

// Infer returns the DType of a Go scalar
func Infer(value any) DType {
	switch value.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int64
	case float32, float64:
		return Float64
	case string:
		return String
	default:
		return Unknown
	}
}

// Promote returns the common supertype of two types
func Promote(a, b DType) DType {
	switch {
	case a == b:
		return a
	case a == Null || a == Unknown && b != Null:
		return b
	case b == Null || b == Unknown:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return Float64
	default:
		return Unknown
	}
}
