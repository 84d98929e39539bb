package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeIngest        ErrorType = "INGEST"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeSpecification ErrorType = "SPECIFICATION"
	ErrTypeStorage       ErrorType = "STORAGE"
)

// AppError represents an application-specific error.
//
// Per-event data conditions (missing market series, short estimation history,
// partial event windows) are NOT AppErrors: they are reason codes carried on
// the affected rows so the pipeline can continue. AppError is reserved for
// failures that abort a run or a single analysis.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewConfigError creates a configuration error (invalid window lengths,
// unknown covariate names, overlapping estimation/event windows)
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewIngestError creates an error for malformed raw input tables
func NewIngestError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIngest, message, cause)
}

// NewValidationError creates an internal-invariant violation error
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewSpecificationError creates an error for a regression specification that
// cannot be fit (singular design matrix, empty sample)
func NewSpecificationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSpecification, message, cause)
}

// NewStorageError creates an error for output table persistence failures
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// IsType checks whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// GetType returns the ErrorType of err, or an empty string if err is not an AppError
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
