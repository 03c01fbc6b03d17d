// Package apperr defines the typed failures shared by every layer of the
// service. Each failure carries a Kind that the HTTP boundary maps to a
// status code and a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvariant       Kind = "invariant"
)

// Code returns the wire code reported to API clients.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvariant:
		return "INVARIANT_VIOLATION"
	default:
		return "SERVER_ERROR"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Code() string {
	return e.Kind.Code()
}

// WithDetails returns a copy of e carrying extra structured context.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// NotFound reports a missing entity, or one that does not belong to the
// parent it was addressed through.
func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

func Invariant(format string, args ...any) *Error {
	return New(KindInvariant, fmt.Sprintf(format, args...))
}

// As unwraps err to an *Error when one is present in the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
