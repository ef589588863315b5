package errors

import (
	"errors"
	"fmt"
)

// AppError represents a custom application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is matches application errors by code, so errors.Is works against the
// sentinel values below regardless of message or status
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// Common error codes
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeRequestFailed      = "REQUEST_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// NewAppError creates a new application error
func NewAppError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common errors
var (
	ErrInvalidCredentials = NewAppError(ErrCodeInvalidCredentials, "Invalid email or password", 401)
	ErrNotAuthenticated   = NewAppError(ErrCodeNotAuthenticated, "Not authenticated", 401)
	ErrSessionExpired     = NewAppError(ErrCodeSessionExpired, "Session expired, sign in again", 401)
	ErrNotFound           = NewAppError(ErrCodeNotFound, "Record not found", 404)
)
