package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn indicates an input table lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrDuplicateKey indicates the registry repeats a property Code.
	ErrDuplicateKey = errors.New("duplicate registry key")
)

// MissingColumnError names the table and the column it lacks.
type MissingColumnError struct {
	Table  string
	Column string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: required column %q is missing", e.Table, e.Column)
}

// Is implements errors.Is support
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// DuplicateKeyError reports a registry Code that appears on more than one row.
// Rows are zero-based data row indexes.
type DuplicateKeyError struct {
	Table string
	Key   string
	Rows  []int
}

// Error implements the error interface
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("table %q: Code %q appears on rows %v", e.Table, e.Key, e.Rows)
}

// Is implements errors.Is support
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// requireColumns returns a MissingColumnError for the first absent column.
func requireColumns(name string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnError{Table: name, Column: missing[0]}
}
