package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeTransport indicates the places API could not be reached
	ErrorTypeTransport ErrorType = "TRANSPORT"

	// ErrorTypeHTTPStatus indicates the places API answered with a non-200 status
	ErrorTypeHTTPStatus ErrorType = "HTTP_STATUS"

	// ErrorTypeAPIStatus indicates the response body status was not "OK"
	ErrorTypeAPIStatus ErrorType = "API_STATUS"

	// ErrorTypeParse indicates a malformed payload
	ErrorTypeParse ErrorType = "PARSE"

	// ErrorTypeInvalidDetails indicates a details response without result or formatted_address
	ErrorTypeInvalidDetails ErrorType = "INVALID_DETAILS"
)

// AppError represents an application error
type AppError struct {
	Type       ErrorType
	Message    string
	Err        error
	StatusCode int
	APIStatus  string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries the given ErrorType.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewTransportError creates a new network failure error
func NewTransportError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewHTTPStatusError creates a new error for a non-200 response
func NewHTTPStatusError(message string, statusCode int) *AppError {
	return &AppError{
		Type:       ErrorTypeHTTPStatus,
		Message:    fmt.Sprintf("%s: status %d", message, statusCode),
		StatusCode: statusCode,
	}
}

// NewAPIStatusError creates a new error for a body status other than "OK"
func NewAPIStatusError(message, apiStatus, detail string) *AppError {
	msg := fmt.Sprintf("%s: %s", message, apiStatus)
	if detail != "" {
		msg = fmt.Sprintf("%s - %s", msg, detail)
	}
	return &AppError{
		Type:      ErrorTypeAPIStatus,
		Message:   msg,
		APIStatus: apiStatus,
	}
}

// NewParseError creates a new malformed payload error
func NewParseError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewInvalidDetailsError creates a new error for an incomplete details response
func NewInvalidDetailsError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidDetails,
		Message: message,
	}
}
