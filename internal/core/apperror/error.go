// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All constraint, validation and search failures are reported as AppError values.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation               = "VALIDATION_ERROR"
	CodeMalformedConstraintSpec  = "MALFORMED_CONSTRAINT_SPEC"
	CodeUnsupportedDataType      = "UNSUPPORTED_DATA_TYPE_FOR_CONSTRAINT"
	CodeInvalidTemporalLiteral   = "INVALID_TEMPORAL_LITERAL"
	CodeInvalidPropertyValue     = "INVALID_PROPERTY_VALUE"
	CodeInvalidQuery             = "INVALID_QUERY"
	CodeUnsupportedOperator      = "UNSUPPORTED_OPERATOR_FOR_DATA_TYPE"
	CodeUnassignedPropertyType   = "UNASSIGNED_PROPERTY_TYPE"
	CodeMandatoryPropertyMissing = "MANDATORY_PROPERTY_MISSING"

	// Business rule violations (422)
	CodePatternMismatch     = "PATTERN_MISMATCH"
	CodeRetroactiveMismatch = "RETROACTIVE_CONSTRAINT_VIOLATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (value, pattern, field, token)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewBadRequest creates a 400 error with a specific code.
func NewBadRequest(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewMalformedConstraint reports a pattern specification that cannot be compiled.
func NewMalformedConstraint(message string) *AppError {
	return NewBadRequest(CodeMalformedConstraintSpec, message)
}

// NewUnsupportedDataType reports a constraint attached to a data type that does not accept one.
func NewUnsupportedDataType(dataType string) *AppError {
	return NewBadRequest(CodeUnsupportedDataType,
		"Pattern validation can not be assigned for property of data type: "+dataType).
		WithDetail("data_type", dataType)
}

// NewInvalidTemporal reports an unparseable date or timestamp literal.
func NewInvalidTemporal(literal string) *AppError {
	return NewBadRequest(CodeInvalidTemporalLiteral,
		fmt.Sprintf("Unparseable date or timestamp: '%s'", literal)).
		WithDetail("value", literal)
}

// NewUnsupportedOperator reports a criterion or operator applied to an incompatible data type.
func NewUnsupportedOperator(message string) *AppError {
	return NewBadRequest(CodeUnsupportedOperator, message)
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewPatternMismatch reports a value rejected by a property constraint.
func NewPatternMismatch(message string) *AppError {
	return NewBusinessRule(CodePatternMismatch, message)
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}
