package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = 255

// TaskStatus represents the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskStatuses lists every valid status in workflow order.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts a raw string into a TaskStatus.
// Matching is case-insensitive; unknown values return ErrInvalidTaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", ErrInvalidTaskStatus
	}
	return s, nil
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// IsValid reports whether p is one of the known priorities.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// ParseTaskPriority converts a raw string into a TaskPriority.
// Matching is case-insensitive; unknown values return ErrInvalidTaskPriority.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", ErrInvalidTaskPriority
	}
	return p, nil
}

// Task is a unit of work tracked by the system. Only a change of Status
// is announced to downstream consumers.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	UserID      *uuid.UUID   `json:"userId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// NewTaskParams holds the caller-supplied fields for a new task.
// Zero-valued Status and Priority fall back to PENDING and MEDIUM.
type NewTaskParams struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	UserID      *uuid.UUID
	DueDate     *time.Time
}

// NewTask creates a new Task with a fresh ID and timestamps.
// Returns a *ValidationError if any field is invalid.
func NewTask(params NewTaskParams) (*Task, error) {
	now := time.Now().UTC()

	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Status:      params.Status,
		Priority:    params.Priority,
		UserID:      params.UserID,
		DueDate:     utcPtr(params.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = TaskPriorityMedium
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks that the task satisfies the domain invariants.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "is required", ErrInvalidID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "is required", ErrEmptyTaskTitle)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "is too long", ErrTaskTitleTooLong)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "has an unknown value", ErrInvalidTaskStatus)
	}
	if !t.Priority.IsValid() {
		return NewValidationError("priority", "has an unknown value", ErrInvalidTaskPriority)
	}
	if t.UserID != nil && *t.UserID == uuid.Nil {
		return NewValidationError("userId", "has invalid format", ErrInvalidID)
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	UserID      *uuid.UUID
	DueDate     *time.Time
}

// HasStatus reports whether the patch sets a status.
func (p TaskPatch) HasStatus() bool {
	return p.Status != nil
}

// ApplyPatch merges the patch into the task and bumps UpdatedAt.
// The task is left unchanged if the merged result fails validation.
func (t *Task) ApplyPatch(patch TaskPatch) error {
	merged := *t
	if patch.Title != nil {
		merged.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	if patch.Priority != nil {
		merged.Priority = *patch.Priority
	}
	if patch.UserID != nil {
		id := *patch.UserID
		merged.UserID = &id
	}
	if patch.DueDate != nil {
		merged.DueDate = utcPtr(patch.DueDate)
	}

	if err := merged.Validate(); err != nil {
		return err
	}

	merged.UpdatedAt = time.Now().UTC()
	*t = merged
	return nil
}

// IsOverdue reports whether the task has a due date before now and is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
