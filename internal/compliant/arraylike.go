package compliant

import (
	"github.com/apache/arrow-go/v18/arrow/tensor"
)

// Array-likes are the raw numeric buffers accepted by FromNumpy: Go slices
// and Arrow tensors.

// Is2DArray reports whether data is a two-dimensional array-like
func Is2DArray(data any) bool {
	switch d := data.(type) {
	case [][]float64, [][]int64, [][]int, [][]string, [][]bool:
		return true
	case tensor.Interface:
		return d.NumDims() == 2
	default:
		return false
	}
}

// Is1DArray reports whether data is a one-dimensional array-like
func Is1DArray(data any) bool {
	switch d := data.(type) {
	case []float64, []int64, []int, []string, []bool:
		return true
	case tensor.Interface:
		return d.NumDims() == 1
	default:
		return false
	}
}

// ArrayShape returns rows and columns of a 2-D array-like.
// Ragged slices report the width of their first row.
func ArrayShape(data any) (rows, cols int) {
	switch d := data.(type) {
	case [][]float64:
		return len(d), firstWidth(d)
	case [][]int64:
		return len(d), firstWidth(d)
	case [][]int:
		return len(d), firstWidth(d)
	case [][]string:
		return len(d), firstWidth(d)
	case [][]bool:
		return len(d), firstWidth(d)
	case tensor.Interface:
		shape := d.Shape()
		if len(shape) == 2 {
			return int(shape[0]), int(shape[1])
		}
		if len(shape) == 1 {
			return int(shape[0]), 1
		}
	}
	return 0, 0
}

func firstWidth[T any](rows [][]T) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}
