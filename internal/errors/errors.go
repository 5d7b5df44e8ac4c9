package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeBusy       ErrorType = "busy"

	// Pipeline-entry failures, surfaced to the user with a retry affordance
	ErrorTypeCameraNotReady    ErrorType = "camera_not_ready"
	ErrorTypePermissionDenied  ErrorType = "permission_denied"
	ErrorTypeCameraUnavailable ErrorType = "camera_unavailable"
	ErrorTypeInvalidImage      ErrorType = "invalid_image"
	ErrorTypeImageProcessing   ErrorType = "image_processing"

	// Post-inference failures, always resolved internally
	ErrorTypeCloudService   ErrorType = "cloud_service"
	ErrorTypeRegistryLookup ErrorType = "registry_lookup"
	ErrorTypeStorage        ErrorType = "storage"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(t ErrorType, status int, retryable bool, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, false, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, http.StatusBadGateway, true, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, true, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, false, message, cause)
}

// NewBusyError is returned when a scan is already in flight
func NewBusyError(message string) *AppError {
	return newAppError(ErrorTypeBusy, http.StatusConflict, true, message, nil)
}

// NewCameraNotReadyError means the stream has not decoded a frame yet; the user should wait
func NewCameraNotReadyError(message string, cause error) *AppError {
	return newAppError(ErrorTypeCameraNotReady, http.StatusServiceUnavailable, true, message, cause)
}

// NewPermissionDeniedError means camera access was explicitly refused; guide the user to upload instead
func NewPermissionDeniedError(message string, cause error) *AppError {
	return newAppError(ErrorTypePermissionDenied, http.StatusForbidden, false, message, cause)
}

// NewCameraUnavailableError covers every other camera failure; retry by falling back to upload
func NewCameraUnavailableError(message string, cause error) *AppError {
	return newAppError(ErrorTypeCameraUnavailable, http.StatusServiceUnavailable, true, message, cause)
}

// NewInvalidImageError means the uploaded file could not be decoded
func NewInvalidImageError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInvalidImage, http.StatusUnprocessableEntity, true, message, cause)
}

// NewImageProcessingError means a drawing or encoding surface failed
func NewImageProcessingError(message string, cause error) *AppError {
	return newAppError(ErrorTypeImageProcessing, http.StatusUnprocessableEntity, true, message, cause)
}

// NewCloudServiceError wraps a cloud reasoning failure
func NewCloudServiceError(message string, cause error) *AppError {
	return newAppError(ErrorTypeCloudService, http.StatusBadGateway, true, message, cause)
}

// NewRegistryLookupError wraps a facility registry failure
func NewRegistryLookupError(message string, cause error) *AppError {
	return newAppError(ErrorTypeRegistryLookup, http.StatusBadGateway, false, message, cause)
}

// NewStorageError wraps a history persistence failure
func NewStorageError(message string, cause error) *AppError {
	return newAppError(ErrorTypeStorage, http.StatusInternalServerError, true, message, cause)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable reports whether the user may retry the failed action
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsPreAnalysis reports whether the error aborts a scan before any analysis begins
func IsPreAnalysis(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Type {
	case ErrorTypeCameraNotReady, ErrorTypePermissionDenied, ErrorTypeCameraUnavailable,
		ErrorTypeInvalidImage, ErrorTypeImageProcessing:
		return true
	}
	return false
}
