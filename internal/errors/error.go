package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategoryBookmark Category = "bookmark"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// HashsyncError is a structured error with a code, a hint and documentation.
type HashsyncError struct {
	// Code is a unique error identifier (e.g., "H001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *HashsyncError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *HashsyncError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code.
func (e *HashsyncError) Is(target error) bool {
	t, ok := target.(*HashsyncError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *HashsyncError) WithSuggestion(s string) *HashsyncError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *HashsyncError) WithDetail(d string) *HashsyncError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *HashsyncError) Wrap(err error) *HashsyncError {
	e.Wrapped = err
	return e
}

// New creates a HashsyncError from a registered error code.
func New(code string) *HashsyncError {
	template, ok := registry[code]
	if !ok {
		return &HashsyncError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &HashsyncError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new HashsyncError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *HashsyncError {
	return &HashsyncError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a HashsyncError.
func FromError(err error, code string) *HashsyncError {
	if err == nil {
		return nil
	}
	var he *HashsyncError
	if stderrors.As(err, &he) {
		return he
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is, or wraps, a HashsyncError with the code.
func HasCode(err error, code string) bool {
	var he *HashsyncError
	if !stderrors.As(err, &he) {
		return false
	}
	return he.Code == code
}
