package errors

import (
	"net/http"

	"passguard/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Configuration errors. These surface during hasher construction and
	// must abort startup; they are never returned per call.
	ErrPepperMissing = NewBaseError(
		http.StatusInternalServerError,
		"PEPPER_MISSING",
		"password pepper is not configured",
		"",
	)

	ErrPepperTooShort = NewBaseError(
		http.StatusInternalServerError,
		"PEPPER_TOO_SHORT",
		"password pepper is below the minimum length",
		"",
	)

	// Input errors
	ErrEmptyPassword = NewBaseError(
		http.StatusBadRequest,
		"EMPTY_PASSWORD",
		"password cannot be empty",
		"",
	)

	// Authentication errors. ErrInvalidCredentials is deliberately the only
	// failure the authenticate path ever returns: unknown user, inactive
	// user and wrong password are indistinguishable to the caller.
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"invalid username or password",
		"",
	)

	// User-related errors
	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"user not found",
		"",
	)

	ErrUserAlreadyExists = NewBaseError(
		http.StatusConflict,
		"USER_ALREADY_EXISTS",
		"username or email already in use",
		"",
	)

	ErrUserCreationFailed = NewBaseError(
		http.StatusInternalServerError,
		"USER_CREATION_FAILED",
		"failed to create user",
		"",
	)

	ErrUserUpdateFailed = NewBaseError(
		http.StatusInternalServerError,
		"USER_UPDATE_FAILED",
		"failed to update user",
		"",
	)

	ErrPasswordHashFailed = NewBaseError(
		http.StatusInternalServerError,
		"PASSWORD_HASH_FAILED",
		"failed to process password",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"input validation failed",
		"",
	)
)

// NewDatabaseExecuteError wraps a raw database error into a generic
// application error without leaking driver details to the caller.
func NewDatabaseExecuteError(err error, message string) error {
	base := NewBaseError(
		http.StatusInternalServerError,
		"DATABASE_EXECUTE_FAILED",
		message,
		err.Error(),
	)

	return errors.Wrap(base, message)
}
