// Package errors provides standardized error handling for the archive API.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequestPayload ErrorCode = "INVALID_REQUEST_PAYLOAD"
	ErrCodeMissingParameters     ErrorCode = "MISSING_PARAMETERS"
	ErrCodeConversionFailed      ErrorCode = "CONVERSION_FAILED"
	ErrCodeUnauthorizedUser      ErrorCode = "UNAUTHORIZED_USER"

	ErrCodeBackendConnectionFailed ErrorCode = "BACKEND_CONNECTION_FAILED"
	ErrCodeBackendQueryFailed      ErrorCode = "BACKEND_QUERY_FAILED"
	ErrCodeBackendTimeout          ErrorCode = "BACKEND_TIMEOUT"

	ErrCodePostprocessFailed ErrorCode = "POSTPROCESS_FAILED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidRequestPayloadError creates a non-retryable payload shape error.
func NewInvalidRequestPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequestPayload,
		Message:   "Invalid request payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingParametersError creates a non-retryable missing-parameters error.
func NewMissingParametersError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingParameters,
		Message:   "Missing required parameters",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionFailedError creates a non-retryable field conversion error.
func NewConversionFailedError(field string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversionFailed,
		Message:   "Parameter conversion failed",
		Details:   fmt.Sprintf("field: %s, error: %s", field, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedUserError creates a non-retryable identity-validation error.
func NewUnauthorizedUserError(username string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorizedUser,
		Message:   "Unknown or unauthorized user",
		Details:   fmt.Sprintf("username: %s", username),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendConnectionFailedError creates a retryable backend connection error.
func NewBackendConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendQueryFailedError creates a retryable backend query error.
func NewBackendQueryFailedError(resource string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendQueryFailed,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("resource: %s, error: %s", resource, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(resource string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   "Elasticsearch query timeout",
		Details:   fmt.Sprintf("resource: %s", resource),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPostprocessFailedError creates a non-retryable postprocess error.
func NewPostprocessFailedError(resource string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePostprocessFailed,
		Message:   "Response postprocessing failed",
		Details:   fmt.Sprintf("resource: %s, error: %s", resource, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates a non-retryable catch-all error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps error codes to HTTP response statuses. Client-input
// errors are distinguishable from backend dispatch failures.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequestPayload,
		ErrCodeMissingParameters,
		ErrCodeConversionFailed,
		ErrCodeUnauthorizedUser:
		return http.StatusBadRequest

	case ErrCodeBackendConnectionFailed,
		ErrCodeBackendQueryFailed:
		return http.StatusBadGateway

	case ErrCodeBackendTimeout:
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code describes a client-input error.
func IsClientError(code ErrorCode) bool {
	return HTTPStatus(code) == http.StatusBadRequest
}
