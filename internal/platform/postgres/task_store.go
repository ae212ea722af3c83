package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/phrazzld/taskflow/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullUUID(task.UserID),
		nullTimeOf(task.DueDate),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			redact.ErrorAttr(err),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, "get", `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
}

// GetForUpdate implements store.TaskStore.GetForUpdate
func (s *PostgresTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.getOne(ctx, "get_for_update", `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, op, query string, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()), slog.String("op", op))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			redact.ErrorAttr(err),
			slog.String("task_id", id.String()),
			slog.String("op", op))
		return nil, MapError(err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
		    user_id = $5, due_date = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		nullUUID(task.UserID),
		nullTimeOf(task.DueDate),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			redact.ErrorAttr(err),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		log.Debug("task update affected no rows", slog.String("task_id", task.ID.String()))
		return err
	}
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			redact.ErrorAttr(err),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// DeleteMany implements store.TaskStore.DeleteMany
func (s *PostgresTaskStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, ids)
	if err != nil {
		log.Error("failed to bulk delete tasks",
			redact.ErrorAttr(err),
			slog.Int("requested", len(ids)))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug("tasks bulk deleted", slog.Int("requested", len(ids)), slog.Int64("deleted", n))
	return n, nil
}

// UpdateStatusWhereNot implements store.TaskStore.UpdateStatusWhereNot
func (s *PostgresTaskStore) UpdateStatusWhereNot(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.TaskStatus,
	updatedAt time.Time,
) ([]uuid.UUID, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "has an unknown value", domain.ErrInvalidTaskStatus)
	}
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = ANY($3) AND status <> $1
		RETURNING id
	`
	rows, err := s.db.QueryContext(ctx, query, string(status), updatedAt.UTC(), ids)
	if err != nil {
		log.Error("failed to bulk update task status",
			redact.ErrorAttr(err),
			slog.String("status", string(status)),
			slog.Int("requested", len(ids)))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	updated := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan updated task id: %w", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("task status bulk updated",
		slog.String("status", string(status)),
		slog.Int("requested", len(ids)),
		slog.Int("updated", len(updated)))
	return updated, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	filter = filter.Normalize()

	where, args := buildTaskFilterClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks `+where, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", redact.ErrorAttr(err))
		return nil, 0, MapError(err)
	}

	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM tasks %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)+1, len(args)+2,
	)

	tasks, err := s.queryTasks(ctx, log, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Stats implements store.TaskStore.Stats
func (s *PostgresTaskStore) Stats(ctx context.Context) (*domain.TaskStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE priority = $4)
		FROM tasks
	`
	var stats domain.TaskStats
	err := s.db.QueryRowContext(ctx, query,
		string(domain.TaskStatusCompleted),
		string(domain.TaskStatusInProgress),
		string(domain.TaskStatusPending),
		string(domain.TaskPriorityHigh),
	).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.InProgress,
		&stats.Pending,
		&stats.HighPriority,
	)
	if err != nil {
		log.Error("failed to compute task stats", redact.ErrorAttr(err))
		return nil, MapError(err)
	}
	return &stats, nil
}

// FindOverdue implements store.TaskStore.FindOverdue
func (s *PostgresTaskStore) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if limit <= 0 {
		limit = domain.MaxLimit
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE due_date IS NOT NULL AND due_date < $1 AND status <> $2
		ORDER BY due_date ASC, id ASC
		LIMIT $3`
	return s.queryTasks(ctx, log, query, now.UTC(), string(domain.TaskStatusCompleted), limit)
}

func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	log *slog.Logger,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", redact.ErrorAttr(err))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", redact.ErrorAttr(err))
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", redact.ErrorAttr(err))
		return nil, MapError(err)
	}
	return tasks, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTimeOf(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
