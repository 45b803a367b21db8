// Package errors defines the error type the HTTP layer reports and the codes
// clients can match on.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable part of an error response
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	ErrCodeTrimInvalid  ErrorCode = "TRIM_INVALID"
	ErrCodeTooLarge     ErrorCode = "REQUEST_TOO_LARGE"

	ErrCodeRateLimited ErrorCode = "API_RATE_LIMIT"
	ErrCodeServiceDown ErrorCode = "SERVICE_DOWN"
	ErrCodeInternal    ErrorCode = "INTERNAL"
)

var httpStatus = map[ErrorCode]int{
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidState: http.StatusConflict,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeMissingField: http.StatusBadRequest,
	ErrCodeTrimInvalid:  http.StatusUnprocessableEntity,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeServiceDown:  http.StatusServiceUnavailable,
}

// AppError is an error with a code and optional details for the response
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus is the response status for the error's code
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// fromCause uses the cause's text as the message, or fallback without one
func fromCause(cause error, code ErrorCode, fallback string) *AppError {
	if cause == nil {
		return New(code, fallback)
	}
	return Wrap(cause, code, cause.Error())
}

// NotFound reports a missing resource
func NotFound(resource string, cause error) *AppError {
	return fromCause(cause, ErrCodeNotFound, resource+" not found").WithDetail("resource", resource)
}

// Conflict reports work already in flight, or a review already made
func Conflict(cause error) *AppError {
	return fromCause(cause, ErrCodeConflict, "conflicting request")
}

// InvalidState reports an operation the resource's status does not allow
func InvalidState(cause error) *AppError {
	return fromCause(cause, ErrCodeInvalidState, "invalid state for this operation")
}

// TrimInvalid reports a trim that would leave the clip out of bounds
func TrimInvalid(cause error) *AppError {
	return fromCause(cause, ErrCodeTrimInvalid, "trim would leave the clip outside the allowed duration")
}

// Validation reports bad input the service rejected
func Validation(cause error) *AppError {
	return fromCause(cause, ErrCodeValidation, "invalid request")
}

// InvalidParam reports a path or query parameter that does not parse
func InvalidParam(name, value string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("invalid %s %q", name, value)).WithDetail("param", name)
}

// InvalidBody reports a request body that does not bind
func InvalidBody(cause error) *AppError {
	return Wrap(cause, ErrCodeValidation, "invalid request body").WithDetail("error", cause.Error())
}

// MissingField reports a required field left empty
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("required field '%s' is missing", field)).WithDetail("field", field)
}

// TooLarge reports a request body over the configured limit
func TooLarge(limit int64) *AppError {
	return New(ErrCodeTooLarge, "request body too large").WithDetail("limit_bytes", limit)
}

// RateLimited reports a client over its request budget
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Rate limit exceeded. Please slow down your requests.")
}

// ServiceDown reports a dependency that is not configured or reachable
func ServiceDown(cause error) *AppError {
	return fromCause(cause, ErrCodeServiceDown, "service unavailable")
}

// Internal hides the cause behind a generic message
func Internal(cause error) *AppError {
	return Wrap(cause, ErrCodeInternal, "internal server error")
}

// As extracts an AppError from anywhere in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
