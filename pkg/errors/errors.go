package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers
// and classified by callers deciding whether an action is retryable.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
	Retryable  bool   `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches AppErrors by code so wrapped copies still compare equal.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e != nil && other != nil && e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application. The taxonomy mirrors
// the failure classes of the club tracker API: absent rows, identity
// mismatches, quorum/lifecycle conflicts, transport failures, and payloads
// that cannot be decoded.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Request or invitation not found",
		StatusCode: http.StatusNotFound,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "You are not allowed to perform this action",
		StatusCode: http.StatusUnauthorized,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "The request state no longer allows this action",
		StatusCode: http.StatusConflict,
	}

	ErrRequestFull = &AppError{
		Code:       "REQUEST_FULL",
		Message:    "The game request already has all the players it needs",
		StatusCode: http.StatusConflict,
	}

	ErrTransient = &AppError{
		Code:       "TRANSIENT",
		Message:    "Temporary failure talking to the club platform, try again",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}

	ErrMalformed = &AppError{
		Code:       "MALFORMED",
		Message:    "The platform returned data that could not be understood",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrInvalidDate = &AppError{
		Code:       "INVALID_DATE",
		Message:    "Invalid Date",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// FromStatusCode maps an HTTP status returned by the tracker API onto the
// client-side taxonomy. Anything in the 5xx range is treated as retryable.
func FromStatusCode(status int) *AppError {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusUnprocessableEntity:
		return ErrMalformed
	case status >= 500:
		return ErrTransient
	default:
		return New(fmt.Sprintf("HTTP_%d", status), fmt.Sprintf("unexpected status %d", status), status)
	}
}

// IsRetryable reports whether the error represents a transient failure that
// the caller may retry without side effects.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
