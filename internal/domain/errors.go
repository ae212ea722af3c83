package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskStatus is returned when a task status is not one of the known values.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTaskPriority is returned when a task priority is not one of the known values.
	ErrInvalidTaskPriority = errors.New("invalid task priority")

	// ErrEmptyTaskTitle is returned when a task is created or patched with a blank title.
	ErrEmptyTaskTitle = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task title exceeds MaxTitleLength.
	ErrTaskTitleTooLong = errors.New("task title is too long")

	// ErrInvalidDateRange is returned when a filter's start date is after its end date.
	ErrInvalidDateRange = errors.New("start date must not be after end date")
)

// ValidationError describes a single invalid field.
// It wraps ErrValidation so callers can match any validation failure with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped errors so that both ErrValidation and the
// specific cause match with errors.Is.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
