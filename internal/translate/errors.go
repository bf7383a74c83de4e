package translate

import (
	"errors"
	"fmt"

	"github.com/warning-explosive/Core-sub004/internal/expr"
)

// Error represents a failure to translate a host expression.
//
// Translation errors are always fatal to the query being translated and
// are never retried. The message names the offending method or member and
// its declaring type so a recognizer can be added or the query rephrased.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Expression is the textual form of the offending sub-expression.
	Expression string

	// Member is the unrecognized method or member, when there is one.
	Member expr.MemberInfo
}

// ErrorCode categorizes translation errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedExpression indicates a node shape with no translation.
	ErrCodeUnsupportedExpression ErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeAmbiguousMember indicates more than one recognizer matched.
	ErrCodeAmbiguousMember ErrorCode = "AMBIGUOUS_MEMBER"

	// ErrCodeUnresolvedScope indicates a node that could not be attached to
	// an enclosing scope, or a tree left incomplete.
	ErrCodeUnresolvedScope ErrorCode = "UNRESOLVED_SCOPE"

	// ErrCodeUnknownEntity indicates a type the model provider cannot map.
	ErrCodeUnknownEntity ErrorCode = "UNKNOWN_ENTITY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Member.Name != "" {
		msg = fmt.Sprintf("%s (member=%s, declaring=%s)", msg, e.Member.Name, e.Member.Declaring)
	}
	if e.Expression != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Expression)
	}
	return msg
}

// IsTranslationError returns true if err is a translation error.
// Uses errors.As to handle wrapped errors.
func IsTranslationError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// IsAmbiguousMemberError returns true if err reports competing recognizers.
func IsAmbiguousMemberError(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == ErrCodeAmbiguousMember
	}
	return false
}

func unsupported(n expr.Node, format string, args ...any) *Error {
	return &Error{
		Code:       ErrCodeUnsupportedExpression,
		Message:    fmt.Sprintf(format, args...),
		Expression: expr.String(n),
	}
}

func unsupportedMember(n expr.Node, member expr.MemberInfo) *Error {
	return &Error{
		Code:       ErrCodeUnsupportedExpression,
		Message:    "no translation for member",
		Expression: expr.String(n),
		Member:     member,
	}
}

func unresolved(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeUnresolvedScope,
		Message: fmt.Sprintf(format, args...),
	}
}

func unknownEntity(n expr.Node, err error) *Error {
	return &Error{
		Code:       ErrCodeUnknownEntity,
		Message:    err.Error(),
		Expression: expr.String(n),
	}
}
