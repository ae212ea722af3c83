package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/phrazzld/taskflow/internal/store"
)

// Caller-safe messages carried by NotificationDispatchError.
const (
	msgCreateDispatchFailed = "Failed to create task. Please try again later."
	msgUpdateDispatchFailed = "Failed to update task queue. Please try again later."
	msgBulkDispatchFailed   = "Failed to queue status updates for some tasks. Please try again later."
)

// BatchAction names an operation applied to a set of tasks.
type BatchAction string

// Supported batch actions.
const (
	BatchActionComplete BatchAction = "complete"
	BatchActionDelete   BatchAction = "delete"
)

// BatchRequest applies Action to every task in TaskIDs.
type BatchRequest struct {
	TaskIDs []uuid.UUID
	Action  BatchAction
}

// BulkUpdateResult partitions the requested IDs of a bulk status update.
// NotUpdatedIDs covers both unknown tasks and tasks already in the target status.
type BulkUpdateResult struct {
	UpdatedIDs    []uuid.UUID `json:"updatedIds"`
	NotUpdatedIDs []uuid.UUID `json:"notUpdatedIds"`
}

// BatchResult is the outcome of ProcessBatch. Update is set for the complete
// action and DeletedCount for the delete action.
type BatchResult struct {
	Action       BatchAction
	Update       *BulkUpdateResult
	DeletedCount int64
}

// TaskService provides task lifecycle, bulk and query operations.
type TaskService interface {
	// Create persists a new task and announces its initial status.
	// On a dispatch failure the created task is returned together with a
	// *NotificationDispatchError.
	Create(ctx context.Context, params domain.NewTaskParams) (*domain.Task, error)

	// Update applies patch under a row lock and announces the new status if it changed.
	// On a dispatch failure the updated task is returned together with the error.
	Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// Remove deletes a task. No notification is sent.
	Remove(ctx context.Context, id uuid.UUID) error

	// FindOne retrieves a task by its ID.
	FindOne(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// BulkUpdateStatus moves every listed task not already in status to status,
	// in one statement, then announces each change.
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.TaskStatus) (*BulkUpdateResult, error)

	// BulkDelete removes every listed task in one statement and returns how many existed.
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)

	// ProcessBatch validates a batch request and dispatches it to the bulk operations.
	ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)

	// List returns one page of tasks matching filter.
	List(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error)

	// Stats returns aggregate task counts.
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	repo    TaskRepository
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	repo TaskRepository,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if repo == nil {
		return nil, domain.NewValidationError("repo", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		repo:    repo,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "task_service")),
	}, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(ctx context.Context, params domain.NewTaskParams) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(params)
	if err != nil {
		log.Debug("rejected invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	err = s.repo.WithinTransaction(ctx, nil, func(ctx context.Context, repo TaskRepository) error {
		return repo.Create(ctx, task)
	})
	if err != nil {
		log.Error("failed to persist new task",
			redact.ErrorAttr(err),
			slog.String("task_id", task.ID.String()))
		return nil, s.translateError("create_task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))

	if err := s.announce(ctx, "create_task", msgCreateDispatchFailed, task); err != nil {
		return task, err
	}
	return task, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("task_id", id.String()))

	var (
		previous domain.TaskStatus
		updated  *domain.Task
	)
	err := s.repo.WithinTransaction(ctx, nil, func(ctx context.Context, repo TaskRepository) error {
		task, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = task.Status

		if err := task.ApplyPatch(patch); err != nil {
			return err
		}
		if err := repo.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, domain.ErrValidation) {
			log.Error("failed to update task", redact.ErrorAttr(err))
		}
		return nil, s.translateError("update_task", err)
	}

	if previous == updated.Status {
		log.Debug("task updated without status change")
		return updated, nil
	}

	log.Info("task status changed",
		slog.String("from", string(previous)),
		slog.String("to", string(updated.Status)))

	if err := s.announce(ctx, "update_task", msgUpdateDispatchFailed, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// Remove implements TaskService.Remove
func (s *taskServiceImpl) Remove(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to delete task",
				redact.ErrorAttr(err),
				slog.String("task_id", id.String()))
		}
		return s.translateError("remove_task", err)
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// FindOne implements TaskService.FindOne
func (s *taskServiceImpl) FindOne(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve task",
				redact.ErrorAttr(err),
				slog.String("task_id", id.String()))
		}
		return nil, s.translateError("find_task", err)
	}
	return task, nil
}

// BulkUpdateStatus implements TaskService.BulkUpdateStatus
func (s *taskServiceImpl) BulkUpdateStatus(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.TaskStatus,
) (*BulkUpdateResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "has an unknown value", domain.ErrInvalidTaskStatus)
	}

	requested := uniqueIDs(ids)
	if len(requested) == 0 {
		return &BulkUpdateResult{UpdatedIDs: []uuid.UUID{}, NotUpdatedIDs: []uuid.UUID{}}, nil
	}

	changedAt := time.Now().UTC()
	var changed []uuid.UUID
	err := s.repo.WithinTransaction(ctx, nil, func(ctx context.Context, repo TaskRepository) error {
		var err error
		changed, err = repo.UpdateStatusWhereNot(ctx, requested, status, changedAt)
		return err
	})
	if err != nil {
		log.Error("failed to bulk update task status",
			redact.ErrorAttr(err),
			slog.String("status", string(status)),
			slog.Int("requested", len(requested)))
		return nil, s.translateError("bulk_update_status", err)
	}

	result := partition(requested, changed)
	log.Info("bulk status update committed",
		slog.String("status", string(status)),
		slog.Int("updated", len(result.UpdatedIDs)),
		slog.Int("not_updated", len(result.NotUpdatedIDs)))

	// Every changed task gets its own attempt, in request order, even after a failure.
	var (
		failedIDs []uuid.UUID
		causes    []error
	)
	for _, id := range result.UpdatedIDs {
		event, err := events.NewStatusChangedEvent(id, status, changedAt)
		if err == nil {
			err = s.emitter.EmitEvent(ctx, event)
		}
		if err != nil {
			log.Error("failed to enqueue status notification",
				redact.ErrorAttr(err),
				slog.String("task_id", id.String()),
				slog.String("operation", "bulk_update_status"))
			failedIDs = append(failedIDs, id)
			causes = append(causes, fmt.Errorf("task %s: %w", id, err))
		}
	}

	if len(failedIDs) > 0 {
		return result, &NotificationDispatchError{
			Operation: "bulk_update_status",
			Message:   msgBulkDispatchFailed,
			TaskIDs:   failedIDs,
			Err:       errors.Join(causes...),
		}
	}
	return result, nil
}

// BulkDelete implements TaskService.BulkDelete
func (s *taskServiceImpl) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	requested := uniqueIDs(ids)
	if len(requested) == 0 {
		return 0, nil
	}

	deleted, err := s.repo.DeleteMany(ctx, requested)
	if err != nil {
		log.Error("failed to bulk delete tasks",
			redact.ErrorAttr(err),
			slog.Int("requested", len(requested)))
		return 0, s.translateError("bulk_delete", err)
	}

	log.Info("bulk delete committed",
		slog.Int("requested", len(requested)),
		slog.Int64("deleted", deleted))
	return deleted, nil
}

// ProcessBatch implements TaskService.ProcessBatch
func (s *taskServiceImpl) ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.TaskIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	switch req.Action {
	case BatchActionComplete:
		updated, err := s.BulkUpdateStatus(ctx, req.TaskIDs, domain.TaskStatusCompleted)
		if updated == nil {
			return nil, err
		}
		return &BatchResult{Action: req.Action, Update: updated}, err
	case BatchActionDelete:
		deleted, err := s.BulkDelete(ctx, req.TaskIDs)
		if err != nil {
			return nil, err
		}
		return &BatchResult{Action: req.Action, DeletedCount: deleted}, nil
	default:
		return nil, &UnknownBatchActionError{Action: string(req.Action)}
	}
}

// List implements TaskService.List
func (s *taskServiceImpl) List(ctx context.Context, filter domain.TaskFilter) (*domain.TaskPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.Normalize()

	var (
		tasks []*domain.Task
		total int
	)
	err := s.repo.WithinTransaction(ctx, store.ReadSnapshot, func(ctx context.Context, repo TaskRepository) error {
		var err error
		tasks, total, err = repo.List(ctx, filter)
		return err
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks", redact.ErrorAttr(err))
		return nil, s.translateError("list_tasks", err)
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return &domain.TaskPage{
		Data: tasks,
		Meta: domain.NewPageMeta(total, filter.Page, filter.Limit),
	}, nil
}

// Stats implements TaskService.Stats
func (s *taskServiceImpl) Stats(ctx context.Context) (*domain.TaskStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compute task stats", redact.ErrorAttr(err))
		return nil, s.translateError("task_stats", err)
	}
	return stats, nil
}

// announce enqueues the status notification for task's current state.
// The cause is logged here; the returned error carries only the safe message.
func (s *taskServiceImpl) announce(ctx context.Context, operation, message string, task *domain.Task) error {
	event, err := events.NewTaskStatusChangedEvent(task)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err == nil {
		return nil
	}

	logger.FromContextOrDefault(ctx, s.logger).Error("failed to enqueue status notification",
		redact.ErrorAttr(err),
		slog.String("operation", operation),
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))

	return &NotificationDispatchError{
		Operation: operation,
		Message:   message,
		TaskIDs:   []uuid.UUID{task.ID},
		Err:       err,
	}
}

// translateError maps store errors onto service errors. Not-found becomes
// ErrTaskNotFound and validation errors pass through; everything else is a
// PersistenceError.
func (s *taskServiceImpl) translateError(operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, domain.ErrValidation):
		return err
	default:
		return &PersistenceError{Operation: operation, Err: err}
	}
}

// uniqueIDs drops duplicates, keeping first-seen order. The nil UUID is kept:
// it matches no row and is reported like any other missing ID.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// partition splits requested into changed and unchanged IDs, both in request order.
func partition(requested, changed []uuid.UUID) *BulkUpdateResult {
	changedSet := make(map[uuid.UUID]struct{}, len(changed))
	for _, id := range changed {
		changedSet[id] = struct{}{}
	}

	result := &BulkUpdateResult{
		UpdatedIDs:    make([]uuid.UUID, 0, len(changed)),
		NotUpdatedIDs: make([]uuid.UUID, 0, len(requested)),
	}
	for _, id := range requested {
		if _, ok := changedSet[id]; ok {
			result.UpdatedIDs = append(result.UpdatedIDs, id)
		} else {
			result.NotUpdatedIDs = append(result.NotUpdatedIDs, id)
		}
	}
	return result
}
