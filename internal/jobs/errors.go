package jobs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind string

const (
	// KindValidation marks malformed boundary inputs
	KindValidation Kind = "validation"
	// KindNotFound marks an unknown job id
	KindNotFound Kind = "not_found"
	// KindPrecondition marks a stage invoked before its dependency completed
	KindPrecondition Kind = "precondition"
	// KindIO marks a document that could not be read or written
	KindIO Kind = "io"
)

// Error is a structured pipeline failure carrying a kind and a message
type Error struct {
	Kind    Kind
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

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewPreconditionError(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func NewIOError(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// IsKind reports whether err is, or wraps, an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Kind == kind
	}
	return false
}
