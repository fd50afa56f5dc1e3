// Package validation provides the argument checks shared by the frames of
// every backend: column existence, key lists, positional indices and
// column lengths. Failures are DataFrameErrors carrying the operation name.
package validation

import (
	"fmt"

	"github.com/paveg/polyframe/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider is anything that can list its columns in order
type ColumnProvider interface {
	Columns() []string
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks that every column exists, reporting the first missing one
func (v *ColumnValidator) Validate() error {
	present := make(map[string]bool)
	for _, name := range v.df.Columns() {
		present[name] = true
	}
	for _, column := range v.columns {
		if !present[column] {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// CountValidator requires at least one item of some kind
type CountValidator struct {
	count int
	what  string
	op    string
}

// NewCountValidator creates a validator requiring count > 0
func NewCountValidator(count int, op, what string) *CountValidator {
	return &CountValidator{count: count, what: what, op: op}
}

// Validate checks the count
func (v *CountValidator) Validate() error {
	if v.count <= 0 {
		return errors.NewInvalidInputError(v.op, fmt.Sprintf("at least one %s is required", v.what))
	}
	return nil
}

// LengthValidator validates that a column matches the frame height
type LengthValidator struct {
	expected int
	actual   int
	op       string
	column   string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, column string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		column:   column,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		return &errors.DataFrameError{
			Op:      v.op,
			Column:  v.column,
			Message: fmt.Sprintf("length %d does not match frame height %d", v.actual, v.expected),
			Cause:   errors.ErrInvalidInput,
		}
	}
	return nil
}

// IndexValidator validates a column position; negative indices count from the end
type IndexValidator struct {
	index int
	width int
	op    string
}

// NewIndexValidator creates a validator for positional column access
func NewIndexValidator(index, width int, op string) *IndexValidator {
	return &IndexValidator{
		index: index,
		width: width,
		op:    op,
	}
}

// Position resolves the index against the width
func (v *IndexValidator) Position() (int, error) {
	pos := v.index
	if pos < 0 {
		pos += v.width
	}
	if pos < 0 || pos >= v.width {
		return 0, errors.NewInvalidInputError(v.op,
			fmt.Sprintf("column index %d out of range for %d columns", v.index, v.width))
	}
	return pos, nil
}

// Validate checks if index is within bounds
func (v *IndexValidator) Validate() error {
	_, err := v.Position()
	return err
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateKeys requires a non-empty key list naming existing columns
func ValidateKeys(df ColumnProvider, op string, keys ...string) error {
	return NewCompoundValidator(
		NewCountValidator(len(keys), op, "key"),
		NewColumnValidator(df, op, keys...),
	).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, column string) error {
	return NewLengthValidator(expected, actual, op, column).Validate()
}

// ResolveIndex maps a possibly negative column index onto a position
func ResolveIndex(index, width int, op string) (int, error) {
	return NewIndexValidator(index, width, op).Position()
}
