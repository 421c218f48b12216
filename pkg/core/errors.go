package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a translation failure. None of the kinds are retryable.
type ErrorKind int

// Error kinds.
const (
	KindValidation ErrorKind = iota
	KindSchemaNotFound
	KindColumnNotFound
	KindFacetValidation
	KindJoinNotSupportedInContext
	KindDefiningSQLWithGroupBy
	KindUnexpectedFacetType
	KindMalformedResultShape
	KindUnexpectedTableType
	KindDependencyCycle
)

var kindNames = map[ErrorKind]string{
	KindValidation:                "ValidationError",
	KindSchemaNotFound:            "SchemaNotFound",
	KindColumnNotFound:            "ColumnNotFound",
	KindFacetValidation:           "FacetValidationError",
	KindJoinNotSupportedInContext: "JoinNotSupportedInContext",
	KindDefiningSQLWithGroupBy:    "DefiningSqlWithGroupByError",
	KindUnexpectedFacetType:       "UnexpectedFacetType",
	KindMalformedResultShape:      "MalformedResultShape",
	KindUnexpectedTableType:       "UnexpectedTableType",
	KindDependencyCycle:           "DependencyCycle",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a typed translation error. Error() returns the bare message so it
// can be shown to users as is.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind when the target carries no message,
// so errors.Is(err, core.ErrColumnNotFound) works for every column miss.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Sentinels for errors.Is.
var (
	ErrValidation                = &Error{Kind: KindValidation}
	ErrSchemaNotFound            = &Error{Kind: KindSchemaNotFound}
	ErrColumnNotFound            = &Error{Kind: KindColumnNotFound}
	ErrFacetValidation           = &Error{Kind: KindFacetValidation}
	ErrJoinNotSupportedInContext = &Error{Kind: KindJoinNotSupportedInContext}
	ErrDefiningSQLWithGroupBy    = &Error{Kind: KindDefiningSQLWithGroupBy}
	ErrUnexpectedFacetType       = &Error{Kind: KindUnexpectedFacetType}
	ErrMalformedResultShape      = &Error{Kind: KindMalformedResultShape}
	ErrUnexpectedTableType       = &Error{Kind: KindUnexpectedTableType}
	ErrDependencyCycle           = &Error{Kind: KindDependencyCycle}
)

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error of the given kind around a cause. The message is
// the cause's message.
func WrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
