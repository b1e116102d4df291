package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error is the structured error type shared by the store, the vector
// clients and the HTTP layer.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_DATABASE_UNAVAILABLE").
	Code string

	Message  string
	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	Cause error

	// Retryable indicates the operation may succeed if repeated.
	Retryable bool

	// Suggestion is an actionable hint for operators.
	Suggestion string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, errors.New(code, "", nil))
// works across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates an Error. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, reusing its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a retryable storage availability error.
func StorageError(message string, cause error) *Error {
	return New(ErrCodeDatabaseUnavailable, message, cause)
}

// UpstreamError creates a retryable error for an external service.
func UpstreamError(message string, cause error) *Error {
	return New(ErrCodeUpstreamUnavailable, message, cause)
}

// ValidationError creates a request validation error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates a not-found error.
func NotFoundError(message string) *Error {
	return New(ErrCodeNotFound, message, nil)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether any *Error in the chain is retryable.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable
}

// IsFatal reports whether the error has fatal severity.
func IsFatal(err error) bool {
	e, ok := As(err)
	return ok && e.Severity == SeverityFatal
}

// GetCode extracts the error code, or "" when err is not an *Error.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not an *Error.
func GetCategory(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}

// HTTPStatus maps an error onto the status code the API answers with.
// Errors that are not *Error are internal.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case e.Code == ErrCodeNotFound:
		return http.StatusNotFound
	case e.Category == CategoryValidation:
		return http.StatusBadRequest
	case e.Retryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
