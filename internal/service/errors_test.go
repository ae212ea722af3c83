package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	assert.Equal(t, "task not found", ErrTaskNotFound.Error())
	assert.False(t, errors.Is(ErrEmptyBatch, ErrUnknownBatchAction))
	assert.False(t, errors.Is(ErrTaskNotFound, ErrEmptyBatch))
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&PersistenceError{Operation: "create_task", Err: cause})

	assert.Equal(t, "task service create_task failed: persistence error: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create_task", pe.Operation)
}

func TestNotificationDispatchError(t *testing.T) {
	cause := errors.New("redis: connection refused")
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	err := error(&NotificationDispatchError{
		Operation: "bulk_update_status",
		Message:   "Failed to update task queue. Please try again later.",
		TaskIDs:   ids,
		Err:       cause,
	})

	assert.Equal(t,
		"task service bulk_update_status failed: notification dispatch failed for 2 task(s): redis: connection refused",
		err.Error())
	assert.ErrorIs(t, err, cause)

	var de *NotificationDispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ids, de.TaskIDs)
	assert.NotContains(t, de.Message, "redis")
}

func TestUnknownBatchActionError(t *testing.T) {
	err := error(&UnknownBatchActionError{Action: "archive"})

	assert.EqualError(t, err, "unknown action: archive")
	assert.ErrorIs(t, err, ErrUnknownBatchAction)
}
