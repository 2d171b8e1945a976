// Package errors provides structured error handling for graphkv.
//
// Conversion failures raised by the codec (unknown group, serialiser
// failure, truncated input) share one category so callers can tell a
// schema/storage mismatch apart from infrastructure failures.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeUnknownGroup means the schema has no element definition for a group
	ErrorTypeUnknownGroup ErrorType = "unknown_group"
	// ErrorTypeSerialization means a property or vertex serialiser rejected a value or bytes
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeTruncatedInput means fewer bytes remain than a prefix or layout declares
	ErrorTypeTruncatedInput ErrorType = "truncated_input"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeStorage represents backend read/write errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// UnknownGroup reports a group with no element definition in the schema.
func UnknownGroup(group string) *Error {
	return &Error{
		Type:    ErrorTypeUnknownGroup,
		Message: fmt.Sprintf("no element definition found for group %q, is this group in your schema or does the stored data need migrating?", group),
		Details: map[string]interface{}{"group": group},
		Stack:   captureStack(2),
	}
}

// Truncated reports input that ends before a declared length.
func Truncated(what string, need, have int) *Error {
	return &Error{
		Type:    ErrorTypeTruncatedInput,
		Message: fmt.Sprintf("%s: need %d bytes, have %d", what, need, have),
		Details: map[string]interface{}{"need": need, "have": have},
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsConversionError reports whether err, or any error it wraps, is one of
// the codec's conversion kinds: unknown group, serialisation failure or
// truncated input.
func IsConversionError(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		switch e.Type {
		case ErrorTypeUnknownGroup, ErrorTypeSerialization, ErrorTypeTruncatedInput:
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
