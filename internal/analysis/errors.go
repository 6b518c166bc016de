package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange marks an integer column value outside its allowed range.
	ErrOutOfRange = errors.New("value out of range")
	// ErrDuplicateKey marks a join key that occurs more than once on the right side.
	ErrDuplicateKey = errors.New("duplicate join key")
	// ErrNotNumeric marks a non-numeric value in a column that must be numeric.
	ErrNotNumeric = errors.New("value is not numeric")
)

// CastError reports a value that could not be converted after cleaning.
type CastError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }
