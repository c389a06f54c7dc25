// Package apperr defines the error taxonomy shared by the generation
// pipeline: validation, not-found, operation and system failures.
//
// Every kind maps to a stable code that the HTTP surface puts into
// error frames and JSON bodies.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindOperation  Kind = "operation"
	KindSystem     Kind = "system"
)

// codes maps each kind to its wire code.
var codes = map[Kind]string{
	KindValidation: "PARAMS_ERROR",
	KindNotFound:   "NOT_FOUND_ERROR",
	KindOperation:  "OPERATION_ERROR",
	KindSystem:     "SYSTEM_ERROR",
}

// Error is a typed failure carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or invalid input. Nothing has been mutated.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing application, version or directory.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Operation reports a failed persistence write or build stage.
func Operation(message string, err error) *Error {
	return &Error{Kind: KindOperation, Message: message, Err: err}
}

// System reports an unsupported input or a broken internal invariant.
func System(format string, args ...any) *Error {
	return &Error{Kind: KindSystem, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors outside the taxonomy are reported as system errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// Code returns the wire code for err.
func Code(err error) string {
	return codes[KindOf(err)]
}

// Message returns the user-facing message for err. For untyped errors
// it falls back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
