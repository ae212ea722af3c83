package task

import (
	"context"
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

// TaskReader loads the authoritative state of a task.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Outcome describes what a handler decided about one notification.
type Outcome string

const (
	// OutcomeProcessed means the notification matched the stored task and was acted on.
	OutcomeProcessed Outcome = "processed"
	// OutcomeStale means the task has moved on since the notification was produced.
	OutcomeStale Outcome = "stale"
	// OutcomeDeleted means the task no longer exists.
	OutcomeDeleted Outcome = "deleted"
)

// StatusChangeHandler consumes task-status-update events.
//
// Notifications may arrive more than once and out of order, so the handler
// re-reads the task and only acts when the stored status still equals the
// announced one. Anything else is acknowledged without action.
type StatusChangeHandler struct {
	tasks  TaskReader
	logger *slog.Logger
}

var _ events.EventHandler = (*StatusChangeHandler)(nil)

// NewStatusChangeHandler creates a StatusChangeHandler reading from tasks.
func NewStatusChangeHandler(tasks TaskReader, log *slog.Logger) *StatusChangeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatusChangeHandler{
		tasks:  tasks,
		logger: log.With("component", "status_change_handler"),
	}
}

// HandleEvent implements events.EventHandler
func (h *StatusChangeHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	_, err := h.Handle(ctx, event)
	return err
}

// Handle processes one notification and reports the decision.
// Decode failures wrap events.ErrMalformedPayload; read failures are
// returned as-is so the queue retries them.
func (h *StatusChangeHandler) Handle(ctx context.Context, event *events.Event) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, h.logger).With(slog.String("event_id", event.ID.String()))

	var payload events.TaskStatusChanged
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("discarding undecodable status notification", redact.ErrorAttr(err))
		return "", err
	}
	if payload.TaskID == uuid.Nil || !payload.Status.IsValid() {
		log.Error("discarding incomplete status notification",
			slog.String("task_id", payload.TaskID.String()),
			slog.String("status", string(payload.Status)))
		return "", fmt.Errorf("%w: status notification %s lacks task id or status",
			events.ErrMalformedPayload, event.ID)
	}
	log = log.With(slog.String("task_id", payload.TaskID.String()))

	task, err := h.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Info("task deleted since status notification, acknowledging")
			return OutcomeDeleted, nil
		}
		log.Error("failed to re-read task", redact.ErrorAttr(err))
		return "", fmt.Errorf("failed to load task %s: %w", payload.TaskID, err)
	}

	if task.Status != payload.Status {
		log.Info("stale status notification, acknowledging",
			slog.String("announced_status", string(payload.Status)),
			slog.String("current_status", string(task.Status)))
		return OutcomeStale, nil
	}

	log.Info("task status change processed",
		slog.String("status", string(task.Status)),
		slog.Time("changed_at", payload.ChangedAt),
		slog.Duration("lag", time.Since(payload.ChangedAt)))
	return OutcomeProcessed, nil
}

// OverdueHandler consumes task-overdue events produced by the OverdueScanner.
type OverdueHandler struct {
	tasks  TaskReader
	now    func() time.Time
	logger *slog.Logger
}

var _ events.EventHandler = (*OverdueHandler)(nil)

// NewOverdueHandler creates an OverdueHandler reading from tasks.
func NewOverdueHandler(tasks TaskReader, log *slog.Logger) *OverdueHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OverdueHandler{
		tasks:  tasks,
		now:    time.Now,
		logger: log.With("component", "overdue_handler"),
	}
}

// HandleEvent implements events.EventHandler
func (h *OverdueHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	_, err := h.Handle(ctx, event)
	return err
}

// Handle re-checks the task and flags it if it is still overdue.
func (h *OverdueHandler) Handle(ctx context.Context, event *events.Event) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, h.logger).With(slog.String("event_id", event.ID.String()))

	var payload events.TaskOverdue
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("discarding undecodable overdue notification", redact.ErrorAttr(err))
		return "", err
	}
	if payload.TaskID == uuid.Nil {
		return "", fmt.Errorf("%w: overdue notification %s lacks task id",
			events.ErrMalformedPayload, event.ID)
	}
	log = log.With(slog.String("task_id", payload.TaskID.String()))

	task, err := h.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Info("overdue task deleted, acknowledging")
			return OutcomeDeleted, nil
		}
		log.Error("failed to re-read task", redact.ErrorAttr(err))
		return "", fmt.Errorf("failed to load task %s: %w", payload.TaskID, err)
	}

	if !task.IsOverdue(h.now()) {
		log.Info("task no longer overdue, acknowledging",
			slog.String("status", string(task.Status)))
		return OutcomeStale, nil
	}

	log.Warn("task is overdue",
		slog.String("status", string(task.Status)),
		slog.String("priority", string(task.Priority)),
		slog.Time("due_date", *task.DueDate))
	return OutcomeProcessed, nil
}
