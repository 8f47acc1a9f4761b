package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	VALIDATION_ERROR         ErrorKind = "validation_error"
	POLICY_VIOLATION         ErrorKind = "policy_violation"
	DATE_RANGE_CONFLICT      ErrorKind = "date_range_conflict"
	PRICING_UNAVAILABLE      ErrorKind = "pricing_unavailable"
	PERMISSION_DENIED        ErrorKind = "permission_denied"
	EXTERNAL_SERVICE_FAILURE ErrorKind = "external_service_failure"
	NOT_FOUND                ErrorKind = "not_found"
)

var kindStatus = map[ErrorKind]int{
	VALIDATION_ERROR:         http.StatusBadRequest,
	POLICY_VIOLATION:         http.StatusUnprocessableEntity,
	DATE_RANGE_CONFLICT:      http.StatusConflict,
	PRICING_UNAVAILABLE:      http.StatusUnprocessableEntity,
	PERMISSION_DENIED:        http.StatusForbidden,
	EXTERNAL_SERVICE_FAILURE: http.StatusBadGateway,
	NOT_FOUND:                http.StatusNotFound,
}

// AppError is an expected failure of a booking operation. Kind is the stable
// category, Type the machine-readable sub-type.
type AppError struct {
	Kind       ErrorKind `json:"kind"`
	Type       string    `json:"error_type"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Details    JSONB     `json:"details,omitempty"`

	cause error
}

func NewAppError(kind ErrorKind, errorType string, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Type:    errorType,
		Message: message,
	}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) HTTPStatus() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = JSONB{}
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func IsAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appError *AppError

	if errors.As(err, &appError) {
		return appError
	}

	return nil
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr := IsAppError(err)
	return appErr != nil && appErr.Kind == kind
}

func NewValidationError(errorType string, message string) *AppError {
	return NewAppError(VALIDATION_ERROR, errorType, message)
}

func NewPolicyViolation(errorType string, message string) *AppError {
	return NewAppError(POLICY_VIOLATION, errorType, message)
}

func NewPricingUnavailable(errorType string, message string) *AppError {
	return NewAppError(PRICING_UNAVAILABLE, errorType, message)
}

func NewNotFound(resource string) *AppError {
	return NewAppError(NOT_FOUND, fmt.Sprintf("%s_not_found", resource), fmt.Sprintf("%s not found", resource))
}

func NewPermissionDenied(message string) *AppError {
	return NewAppError(PERMISSION_DENIED, "permission_denied", message)
}

func NewExternalServiceFailure(service string, err error) *AppError {
	return NewAppError(EXTERNAL_SERVICE_FAILURE, "external_service_failure", fmt.Sprintf("%s request failed", service)).
		WithDetail("service", service).
		WithCause(err)
}

// InputError collects per-field problems before they are reported as a single
// validation error.
type InputError struct {
	fields map[string][]string
}

func NewInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func (ie *InputError) Add(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Count() int {
	return len(ie.fields)
}

func (ie *InputError) AppError(errorType string, message string) *AppError {
	return NewValidationError(errorType, message).WithDetail("fields", ie.fields)
}
