package model

import (
	"errors"
	"fmt"
	"reflect"
)

// Error codes for invalid entity definitions.
const (
	ErrCodeNoPrimaryKey      = "NO_PRIMARY_KEY"
	ErrCodeUnsupportedType   = "UNSUPPORTED_COLUMN_TYPE"
	ErrCodeDuplicateColumn   = "DUPLICATE_COLUMN"
	ErrCodeNotEntity         = "NOT_ENTITY"
	ErrCodeInvalidDefinition = "INVALID_DEFINITION"
)

// Error reports an entity type that cannot be mapped to a table.
type Error struct {
	Code    string
	Type    reflect.Type
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %v.%s: %s", e.Code, e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %v: %s", e.Code, e.Type, e.Message)
}

// IsModelError reports whether err is a model mapping error.
func IsModelError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
