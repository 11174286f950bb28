package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput       = NewAPIError("INVALID_ARGUMENT", "Invalid request data", http.StatusBadRequest)
	ErrSelfReference      = NewAPIError("INVALID_ARGUMENT", "An identity cannot be related to itself", http.StatusBadRequest)
	ErrUnauthorized       = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrNotFound           = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrAlreadyExists      = NewAPIError("ALREADY_EXISTS", "User already exists and is verified", http.StatusBadRequest)
	ErrIncompleteUpgrade  = NewAPIError("INCOMPLETE_UPGRADE", "User exists but is not verified; cannot update with incomplete data", http.StatusBadRequest)
	ErrAlreadyConnected   = NewAPIError("ALREADY_CONNECTED", "Users are already directly connected", http.StatusBadRequest)
	ErrQuotaExhausted     = NewAPIError("QUOTA_EXHAUSTED", "User has reached maximum connections", http.StatusMethodNotAllowed)
	ErrNoPathFound        = NewAPIError("NO_PATH_FOUND", "No connection path found between the two users", http.StatusNotFound)
	ErrStorageUnavailable = NewAPIError("STORAGE_UNAVAILABLE", "Graph storage is unavailable", http.StatusServiceUnavailable)
	ErrRateLimited        = NewAPIError("RATE_LIMITED", "Too many requests, try again later", http.StatusTooManyRequests)
	ErrInternal           = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}

// IsKind reports whether err is an APIError carrying the same code as kind.
// Distinct failure kinds keep distinct codes, so callers can branch on them
// without comparing pointers.
func IsKind(err error, kind *APIError) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == kind.Code
}
