package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request and resource error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidTarget  ErrorCode = "INVALID_TARGET"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
)

// Infrastructure error codes
const (
	// ErrStoreUnavailable means the authoritative ledger or config store
	// could not be reached. Fatal for the current operation and retryable;
	// it is never mapped to an eligibility outcome.
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCacheUnavailable means the cache backend failed. Non-fatal: the
	// operation proceeds against the authoritative store.
	ErrCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Collaborator error codes
const (
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewNotFoundError creates a NOT_FOUND error.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrNotFound, Message: message}
}

// NewStoreUnavailableError wraps a store failure. Store failures are always
// retryable by the caller.
func NewStoreUnavailableError(message string, cause error) *Error {
	return &Error{Code: ErrStoreUnavailable, Message: message, Cause: cause, Retryable: true}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
