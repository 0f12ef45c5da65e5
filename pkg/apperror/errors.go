package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict       = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrUnprocessable  = &AppError{Code: http.StatusUnprocessableEntity, Message: "Unprocessable entity"}

	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
)

// Validation errors. Reported synchronously to the caller, never retried.
var (
	ErrInvalidLineItem       = &AppError{Code: http.StatusUnprocessableEntity, Message: "Invalid line item"}
	ErrDiscountExceedsAmount = &AppError{Code: http.StatusUnprocessableEntity, Message: "Discount exceeds line amount"}
	ErrImmutableReceipt      = &AppError{Code: http.StatusConflict, Message: "Receipt can no longer be modified"}
	ErrInvalidState          = &AppError{Code: http.StatusConflict, Message: "Operation not allowed in current receipt state"}
)

// Concurrency conflicts. Surfaced only after bounded retries are exhausted.
var (
	ErrAllocationExhausted = &AppError{Code: http.StatusConflict, Message: "Receipt number allocation exhausted"}
	ErrConflictExceeded    = &AppError{Code: http.StatusConflict, Message: "Concurrent update conflict, retries exhausted"}
)

// Access-control failures. Distinct, non-retryable denial kinds, always audited.
var (
	ErrTokenNotFound         = &AppError{Code: http.StatusNotFound, Message: "Download token not found"}
	ErrTokenExpired          = &AppError{Code: http.StatusGone, Message: "Download token has expired"}
	ErrDownloadLimitExceeded = &AppError{Code: http.StatusTooManyRequests, Message: "Download limit exceeded"}
)

// Downstream collaborator failures.
var (
	ErrRenderTimeout = &AppError{Code: http.StatusGatewayTimeout, Message: "PDF rendering timed out"}
	ErrRenderFailed  = &AppError{Code: http.StatusBadGateway, Message: "PDF rendering failed"}
)

// Integrity violations. Fatal defects: the operation aborts, nothing is silently corrected.
var (
	ErrTotalsMismatch  = &AppError{Code: http.StatusInternalServerError, Message: "Receipt totals invariant violated"}
	ErrDuplicateNumber = &AppError{Code: http.StatusInternalServerError, Message: "Duplicate receipt number detected"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
