package render

import (
	"errors"
	"fmt"

	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// NotSupportedError is returned when a node kind has no registered
// translator. It is a configuration error and never transient.
type NotSupportedError struct {
	// Kind is the kind of the node.
	Kind sqlexpr.Kind

	// Type is the concrete Go type of the node.
	Type string
}

// Error implements the error interface.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("NOT_SUPPORTED: no SQL translator registered for %s (%s)", e.Kind, e.Type)
}

// IsNotSupportedError returns true if err reports a missing translator.
// Uses errors.As to handle wrapped errors.
func IsNotSupportedError(err error) bool {
	var ne *NotSupportedError
	return errors.As(err, &ne)
}

func notSupported(e sqlexpr.Expression) *NotSupportedError {
	return &NotSupportedError{Kind: e.Kind(), Type: fmt.Sprintf("%T", e)}
}
