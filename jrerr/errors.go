// Package jrerr defines the failure taxonomy for json-repair.
//
// Every error returned by the repairing parser, the strict checker, or the
// CLI maps to exactly one Class, which determines the exit code and lets
// conformance vectors verify failure classification, not just "did it fail."
package jrerr

import "fmt"

// Class is a stable failure category.
type Class string

const (
	UnexpectedEnd           Class = "UNEXPECTED_END"
	UnexpectedCharacter     Class = "UNEXPECTED_CHARACTER"
	ObjectKeyExpected       Class = "OBJECT_KEY_EXPECTED"
	ColonExpected           Class = "COLON_EXPECTED"
	ObjectValueExpected     Class = "OBJECT_VALUE_EXPECTED"
	InvalidCharacter        Class = "INVALID_CHARACTER"
	InvalidUnicodeCharacter Class = "INVALID_UNICODE_CHARACTER"
	InvalidNumber           Class = "INVALID_NUMBER"
	BoundExceeded           Class = "BOUND_EXCEEDED"
	InvalidJSON             Class = "INVALID_JSON"
	CLIUsage                Class = "CLI_USAGE"
	InternalIO              Class = "INTERNAL_IO"
	InternalError           Class = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (c Class) ExitCode() int {
	switch c {
	case InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all json-repair failures.
//
// Position is a 0-based index into the input, counted in Unicode code
// points. This deliberately differs from UTF-16 code unit offsets as used
// by JavaScript: a character outside the Basic Multilingual Plane, such as
// an emoji, counts once here and twice there. A negative Position means the
// failure is not tied to the input.
type Error struct {
	Class    Class
	Position int
	Message  string
	Cause    error
}

// Error renders "<message> at position <position>".
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d", msg, e.Position)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class Class, position int, message string) *Error {
	return &Error{Class: class, Position: position, Message: message}
}

// Newf is like New but formats the message.
func Newf(class Class, position int, format string, args ...any) *Error {
	return &Error{Class: class, Position: position, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class Class, position int, message string, cause error) *Error {
	return &Error{Class: class, Position: position, Message: message, Cause: cause}
}
