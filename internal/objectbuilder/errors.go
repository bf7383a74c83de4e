package objectbuilder

import (
	"errors"
	"fmt"
	"reflect"
)

// Error reports a value that could not be converted into its target.
type Error struct {
	// Type is the type being built.
	Type reflect.Type

	// Column is the column being bound, empty for scalar conversions.
	Column string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("build %v: column %s: %s", e.Type, e.Column, e.Message)
	}
	return fmt.Sprintf("build %v: %s", e.Type, e.Message)
}

// IsBuildError returns true if err is a conversion error.
// Uses errors.As to handle wrapped errors.
func IsBuildError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}
