package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrTaskNotFound indicates that no task exists with the requested ID.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrEmptyBatch indicates a batch request without any task IDs.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyBatch = errors.New("no task IDs provided")

	// ErrUnknownBatchAction indicates a batch request naming an action the
	// coordinator does not support. It is wrapped by UnknownBatchActionError.
	// API layer should map this to HTTP 400 Bad Request.
	ErrUnknownBatchAction = errors.New("unknown batch action")
)

// PersistenceError reports that the task store could not complete an operation.
// Nothing was announced when it is returned.
type PersistenceError struct {
	// Operation is the operation that failed (e.g., "create_task", "bulk_delete")
	Operation string
	// Err is the underlying store error
	Err error
}

// Error implements the error interface for PersistenceError.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("task service %s failed: persistence error: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationDispatchError reports that a store mutation committed but one or
// more status notifications could not be enqueued. The mutation is not undone.
type NotificationDispatchError struct {
	// Operation is the operation that failed (e.g., "update_task")
	Operation string
	// Message is safe to show to the caller
	Message string
	// TaskIDs lists the tasks whose notification was not enqueued
	TaskIDs []uuid.UUID
	// Err is the underlying queue error
	Err error
}

// Error implements the error interface for NotificationDispatchError.
func (e *NotificationDispatchError) Error() string {
	return fmt.Sprintf("task service %s failed: notification dispatch failed for %d task(s): %v",
		e.Operation, len(e.TaskIDs), e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *NotificationDispatchError) Unwrap() error {
	return e.Err
}

// UnknownBatchActionError names the rejected batch action.
type UnknownBatchActionError struct {
	Action string
}

// Error implements the error interface for UnknownBatchActionError.
func (e *UnknownBatchActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// Unwrap returns ErrUnknownBatchAction.
func (e *UnknownBatchActionError) Unwrap() error {
	return ErrUnknownBatchAction
}
