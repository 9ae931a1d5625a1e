// Package errors provides a lightweight structured error type (MapExportError)
// for category-based classification of pipeline, server and export failures.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of an error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Generation and serving errors
	CategoryStage  ErrorCategory = "stage"
	CategoryServer ErrorCategory = "server"

	// Export and filesystem errors
	CategoryExport     ErrorCategory = "export"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
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

// ErrorKind is the precise failure taxonomy within a category. Callers match
// on kinds with errors.Is against the sentinel values below.
type ErrorKind string

const (
	KindStageFailure         ErrorKind = "stage_failure"
	KindUnsupportedOperation ErrorKind = "unsupported_operation"
	KindAddressInUse         ErrorKind = "address_in_use"
	KindBindFailure          ErrorKind = "bind_failure"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindInvalidDestination   ErrorKind = "invalid_destination"
	KindIOFailure            ErrorKind = "io_failure"
	KindCooldownActive       ErrorKind = "cooldown_active"
	KindNoRegions            ErrorKind = "no_regions"
	KindConfigNotFound       ErrorKind = "config_not_found"
)

// Sentinels for errors.Is. They match any MapExportError of the same kind.
var (
	ErrStageFailure         = &MapExportError{Kind: KindStageFailure}
	ErrUnsupportedOperation = &MapExportError{Kind: KindUnsupportedOperation}
	ErrAddressInUse         = &MapExportError{Kind: KindAddressInUse}
	ErrBindFailure          = &MapExportError{Kind: KindBindFailure}
	ErrPermissionDenied     = &MapExportError{Kind: KindPermissionDenied}
	ErrInvalidDestination   = &MapExportError{Kind: KindInvalidDestination}
	ErrIOFailure            = &MapExportError{Kind: KindIOFailure}
	ErrCooldownActive       = &MapExportError{Kind: KindCooldownActive}
	ErrNoRegions            = &MapExportError{Kind: KindNoRegions}
	ErrConfigNotFound       = &MapExportError{Kind: KindConfigNotFound}
)

// MapExportError is a structured error with category, kind, retryability and context
type MapExportError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Kind      ErrorKind     `json:"kind,omitempty"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for MapExportError
type ContextFields map[string]any

// Error implements the error interface
func (e *MapExportError) Error() string {
	if e.Message == "" && e.Category == "" {
		return string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *MapExportError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a MapExportError of the same kind.
func (e *MapExportError) Is(target error) bool {
	t, ok := target.(*MapExportError)
	if !ok || t.Kind == "" {
		return false
	}
	return t.Kind == e.Kind
}

// WithContext adds context information to the error
func (e *MapExportError) WithContext(key string, value any) *MapExportError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithKind sets the taxonomy kind of the error.
func (e *MapExportError) WithKind(kind ErrorKind) *MapExportError {
	e.Kind = kind
	return e
}

// New creates a new MapExportError
func New(category ErrorCategory, severity ErrorSeverity, message string) *MapExportError {
	return &MapExportError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new MapExportError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *MapExportError {
	return &MapExportError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return mee.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return mee.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a MapExportError
func GetCategory(err error) ErrorCategory {
	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return mee.Category
	}
	return CategoryInternal
}

// GetKind extracts the kind from an error, or returns "" if not a MapExportError.
func GetKind(err error) ErrorKind {
	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return mee.Kind
	}
	return ""
}
