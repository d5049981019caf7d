package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindUpstream   Kind = "upstream"
	KindCache      Kind = "cache"
	KindStorage    Kind = "storage"
	KindBootstrap  Kind = "bootstrap"
	KindUnknown    Kind = "unknown"
)

// Error carries the failing operation and its kind alongside the cause so
// callers can branch on category without string matching.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap annotates err with a kind and operation. An already-typed error keeps
// its original annotation; a nil err yields nil.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first typed error in the chain, or
// KindUnknown when none is present.
func KindOf(err error) Kind {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}
