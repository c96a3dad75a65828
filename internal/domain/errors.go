package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Error codes surfaced to callers.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeAccountBanned        = "ACCOUNT_BANNED"
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodePersistenceFailure   = "PERSISTENCE_FAILURE"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Round rejection reasons.

func ErrInvalidRequest(msg string) *AppError {
	return &AppError{Code: CodeInvalidRequest, Message: msg, Status: 400}
}

func ErrAccountBanned() *AppError {
	return &AppError{Code: CodeAccountBanned, Message: "account is banned", Status: 403}
}

func ErrAccountNotFound(id string) *AppError {
	return &AppError{Code: CodeAccountNotFound, Message: fmt.Sprintf("account %s not found", id), Status: 404}
}

func ErrInsufficientFunds() *AppError {
	return &AppError{Code: CodeInsufficientFunds, Message: "insufficient funds", Status: 400}
}

// ErrInvalidConfiguration reports a broken server-side game table. It is a
// server fault, so the message shown to the player stays generic.
func ErrInvalidConfiguration(msg string) *AppError {
	return &AppError{Code: CodeInvalidConfiguration, Message: msg, Status: 500}
}

func ErrPersistence(cause error) *AppError {
	return &AppError{Code: CodePersistenceFailure, Message: "storage unavailable, try again", Status: 503, Cause: cause}
}

// Generic constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: CodeRateLimited, Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}

// AsAppError returns the first *AppError in err's chain, or nil.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr := AsAppError(err)
	return appErr != nil && appErr.Code == code
}
