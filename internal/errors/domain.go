package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindForbidden         Kind = "Forbidden"
	KindInvalidAssignment Kind = "InvalidAssignment"
	KindValidation        Kind = "ValidationError"
	KindConflict          Kind = "Conflict"
	KindDependencyFailure Kind = "DependencyFailure"
)

// Error is a typed failure returned by the service layer. Op names the
// operation that failed and Rule the authorization or validation rule.
type Error struct {
	Kind    Kind
	Op      string
	Rule    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels such as ErrNotFound
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidAssignment = &Error{Kind: KindInvalidAssignment}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrDependencyFailure = &Error{Kind: KindDependencyFailure}
)

func NewNotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func NewForbidden(op, rule, message string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Rule: rule, Message: message}
}

func NewInvalidAssignment(op, rule, message string) *Error {
	return &Error{Kind: KindInvalidAssignment, Op: op, Rule: rule, Message: message}
}

// NewValidation reports a missing or malformed field; Rule carries the field name.
func NewValidation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Rule: field, Message: message}
}

func NewConflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

func NewDependencyFailure(op, message string, err error) *Error {
	return &Error{Kind: KindDependencyFailure, Op: op, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As is errors.As, re-exported so callers importing this package as
// apierrors do not also need the standard errors package.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
