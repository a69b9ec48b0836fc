// Package errors provides a lightweight structured error type (StreakError)
// for category- and code-based classification in the command façade, the
// rollover engine and the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a streakd error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Persistence errors
	CategoryStorage ErrorCategory = "storage"

	// Scheduled job and runtime errors
	CategoryRollover ErrorCategory = "rollover"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ErrorCode identifies a specific failure within a category. Two StreakErrors
// with the same non-empty code match under errors.Is.
type ErrorCode string

const (
	CodeStorage           ErrorCode = "storage"
	CodeDocumentMissing   ErrorCode = "document_missing"
	CodeDuplicateActivity ErrorCode = "duplicate_activity"
	CodeActivityNotFound  ErrorCode = "activity_not_found"
	CodeEmptyName         ErrorCode = "empty_name"
	CodeRollover          ErrorCode = "rollover"
	CodeConfig            ErrorCode = "config"
)

// StreakError is a structured error with category, code and context
type StreakError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Code     ErrorCode     `json:"code,omitempty"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for StreakError
type ContextFields map[string]any

// Error implements the error interface
func (e *StreakError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *StreakError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a StreakError carrying the same code.
func (e *StreakError) Is(target error) bool {
	t, ok := target.(*StreakError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context information to the error
func (e *StreakError) WithContext(key string, value any) *StreakError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithCode sets the error code.
func (e *StreakError) WithCode(code ErrorCode) *StreakError {
	e.Code = code
	return e
}

// New creates a new StreakError
func New(category ErrorCategory, severity ErrorSeverity, message string) *StreakError {
	return &StreakError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new StreakError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *StreakError {
	return &StreakError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As extracts the outermost StreakError from an error chain.
func As(err error) (*StreakError, bool) {
	var se *StreakError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if se, ok := As(err); ok {
		return se.Category == category
	}
	return false
}

// IsValidation reports whether err is a user-input failure that should be
// reported as a normal result rather than a fault.
func IsValidation(err error) bool {
	return IsCategory(err, CategoryValidation)
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a StreakError
func GetCategory(err error) ErrorCategory {
	if se, ok := As(err); ok {
		return se.Category
	}
	return CategoryInternal
}

// GetCode extracts the code from an error chain, or "" when none is present.
func GetCode(err error) ErrorCode {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}
