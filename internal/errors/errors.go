// Package errors defines the structured error types shared by the job item resolver, its HTTP
// surface, and the remote API client.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeRemote indicates the upstream job item API rejected a request.
	ErrCodeRemote ErrorCode = "remote"
	// ErrCodeMalformed indicates an upstream response could not be decoded.
	ErrCodeMalformed ErrorCode = "malformed_response"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// ErrMalformedResponse marks upstream bodies that are not valid JSON for the expected shape.
var ErrMalformedResponse = errors.New("malformed response body")

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field is the offending input field for validation errors.
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// RemoteError is returned when the job item API answers with a non-2xx status.
// Its message is the server-supplied description.
type RemoteError struct {
	StatusCode  int
	Description string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("job item api returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Malformed wraps a decode failure so it matches both ErrCodeMalformed and ErrMalformedResponse.
func Malformed(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    ErrCodeMalformed,
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrMalformedResponse, err),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsMalformed checks if an error came from an undecodable upstream body.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// AsRemote extracts a RemoteError from the chain.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
// RemoteError values report ErrCodeRemote.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if _, ok := AsRemote(err); ok {
		return ErrCodeRemote
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
