package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service"
)

// CreateTaskRequest defines the payload for POST /api/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"                 validate:"required,max=255"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"      validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    string     `json:"priority,omitempty"    validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Params converts the request into domain parameters.
func (r CreateTaskRequest) Params() domain.NewTaskParams {
	return domain.NewTaskParams{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.TaskStatus(r.Status),
		Priority:    domain.TaskPriority(r.Priority),
		UserID:      r.UserID,
		DueDate:     r.DueDate,
	}
}

// UpdateTaskRequest defines the payload for PATCH /api/tasks/{id}.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"       validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"      validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    *string    `json:"priority,omitempty"    validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Patch converts the request into a domain patch.
func (r UpdateTaskRequest) Patch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		UserID:      r.UserID,
		DueDate:     r.DueDate,
	}
	if r.Status != nil {
		s := domain.TaskStatus(*r.Status)
		patch.Status = &s
	}
	if r.Priority != nil {
		p := domain.TaskPriority(*r.Priority)
		patch.Priority = &p
	}
	return patch
}

// BatchRequest defines the payload for POST /api/tasks/batch.
// Emptiness and the action are checked by the service so the messages match
// the batch coordinator's.
type BatchRequest struct {
	TaskIDs []uuid.UUID `json:"taskIds"`
	Action  string      `json:"action"`
}

// BatchResponse is the successful response of the batch endpoint.
type BatchResponse struct {
	Success bool        `json:"success"`
	Results interface{} `json:"results"`
}

// DeleteResults is the batch result of the delete action.
type DeleteResults struct {
	DeletedCount int64 `json:"deletedCount"`
}

// newBatchResponse shapes a service result for the wire.
func newBatchResponse(result *service.BatchResult) BatchResponse {
	if result.Action == service.BatchActionDelete {
		return BatchResponse{Success: true, Results: DeleteResults{DeletedCount: result.DeletedCount}}
	}
	return BatchResponse{Success: true, Results: result.Update}
}
