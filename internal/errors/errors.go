package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig     = "CONFIG"
	ErrExtract    = "EXTRACT"
	ErrConnection = "CONNECTION"
	ErrPersist    = "PERSIST"
	ErrPath       = "PATH"
	ErrLock       = "LOCK"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered for humans as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnection code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnection,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface with the multi-line layout above.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Line renders the error on a single line for callers that can only show one,
// such as a monitoring agent reading stderr.
func (e *Error) Line() string {
	parts := []string{e.Message}
	if e.Cause != nil {
		parts = append(parts, flatten(e.Cause.Error()))
	}
	if e.Suggestion != "" {
		parts = append(parts, flatten(e.Suggestion))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var oErr *Error
	if errors.As(err, &oErr) {
		return oErr.Code == code
	}
	return false
}

// OneLine returns a single-line description of any error. Structured errors
// use Line; everything else has its whitespace collapsed.
func OneLine(err error) string {
	if err == nil {
		return ""
	}
	var oErr *Error
	if errors.As(err, &oErr) {
		return oErr.Line()
	}
	return flatten(err.Error())
}

func flatten(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "✗ ")
	return strings.Join(strings.Fields(s), " ")
}

// ExitError carries a process exit code through cobra's error return.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the code from an ExitError anywhere in err's chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
