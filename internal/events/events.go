package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// Event types published on the task-processing queue.
const (
	// TypeTaskStatusUpdate announces that a task entered a new status.
	TypeTaskStatusUpdate = "task-status-update"

	// TypeTaskOverdue announces that a task passed its due date unfinished.
	TypeTaskOverdue = "task-overdue"
)

// ErrMalformedPayload is returned by handlers when an event cannot be decoded.
// Redelivering such an event cannot succeed, so queue adapters do not retry it.
var ErrMalformedPayload = errors.New("malformed event payload")

// Event is the envelope carried by the notification channel.
// It contains everything a consumer needs without a dependency on the producer.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type selects the handler on the consuming side
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
// Decoding failures wrap ErrMalformedPayload.
func (e *Event) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s event %s: %v", ErrMalformedPayload, e.Type, e.ID, err)
	}
	return nil
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TaskStatusChanged is the payload of a task-status-update event.
// ChangedAt is the task's UpdatedAt at the moment of the transition, which
// lets consumers discard notifications older than what they already saw.
type TaskStatusChanged struct {
	TaskID    uuid.UUID         `json:"taskId"`
	Status    domain.TaskStatus `json:"status"`
	ChangedAt time.Time         `json:"changedAt"`
}

// NewTaskStatusChangedEvent builds the status notification for task's current state.
func NewTaskStatusChangedEvent(task *domain.Task) (*Event, error) {
	return NewEvent(TypeTaskStatusUpdate, TaskStatusChanged{
		TaskID:    task.ID,
		Status:    task.Status,
		ChangedAt: task.UpdatedAt,
	})
}

// NewStatusChangedEvent builds a status notification from an ID alone, for
// set-based updates that do not load the affected rows.
func NewStatusChangedEvent(id uuid.UUID, status domain.TaskStatus, changedAt time.Time) (*Event, error) {
	return NewEvent(TypeTaskStatusUpdate, TaskStatusChanged{
		TaskID:    id,
		Status:    status,
		ChangedAt: changedAt,
	})
}

// TaskOverdue is the payload of a task-overdue event.
type TaskOverdue struct {
	TaskID  uuid.UUID         `json:"taskId"`
	Status  domain.TaskStatus `json:"status"`
	DueDate time.Time         `json:"dueDate"`
}

// NewTaskOverdueEvent builds the overdue notification for task.
// The task must have a due date.
func NewTaskOverdueEvent(task *domain.Task) (*Event, error) {
	var due time.Time
	if task.DueDate != nil {
		due = *task.DueDate
	}
	return NewEvent(TypeTaskOverdue, TaskOverdue{
		TaskID:  task.ID,
		Status:  task.Status,
		DueDate: due,
	})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts an ordinary function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without knowing who consumes them.
type EventEmitter interface {
	// EmitEvent publishes the given event.
	// Returns an error if the event could not be handed to the channel.
	EmitEvent(ctx context.Context, event *Event) error
}
