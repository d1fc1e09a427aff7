// Package errors provides the application error taxonomy and its HTTP mapping.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeRateLimited = "RATE_LIMITED"

	CodeStorage     = "STORAGE_ERROR"
	CodeUpstream    = "UPSTREAM_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// NotFoundMessage is the client-visible message for missing records.
const NotFoundMessage = "Not found"

// AppError represents an application error with code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError() *AppError {
	return New(CodeNotFound, NotFoundMessage)
}

// StorageError wraps a failure from the record store. The message exposed to
// clients is the underlying error text.
func StorageError(err error) *AppError {
	return Wrap(CodeStorage, err.Error(), err)
}

// UpstreamError wraps a failure from an external collaborator.
func UpstreamError(service string, err error) *AppError {
	return Wrap(CodeUpstream, fmt.Sprintf("%s request failed", service), err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	return New(CodeUnavailable, fmt.Sprintf("%s is not configured", service))
}

// RateLimitedError creates a rate limited error.
func RateLimitedError() *AppError {
	return New(CodeRateLimited, "rate limit exceeded")
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeNotFound
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeValidation
}

// IsStorage checks if error is a storage error.
func IsStorage(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeStorage
}

// ErrorResponse is the JSON error body returned to clients.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON error body with the given status.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes err using its own status. Errors that are not AppErrors
// are reported as internal errors without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := As(err); ok {
		WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// WriteErrorWithStatus writes err's message with an explicit status.
func WriteErrorWithStatus(w http.ResponseWriter, status int, err error) {
	if appErr, ok := As(err); ok {
		WriteJSON(w, status, ErrorResponse{Error: appErr.Message})
		return
	}
	WriteJSON(w, status, ErrorResponse{Error: err.Error()})
}
