package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate retrieves a task with a row-level lock (SELECT ... FOR UPDATE).
	// Must be called inside a transaction; the lock is held until it ends.
	// Returns ErrTaskNotFound if the task does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves every mutable field of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task permanently.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteMany removes every task whose ID is in ids in a single statement
	// and returns how many rows were removed. Unknown IDs are ignored.
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)

	// UpdateStatusWhereNot sets status and updatedAt on every task in ids whose
	// current status differs, in a single statement, and returns the IDs it changed.
	// Tasks already in the target status and unknown IDs are not returned.
	UpdateStatusWhereNot(
		ctx context.Context,
		ids []uuid.UUID,
		status domain.TaskStatus,
		updatedAt time.Time,
	) ([]uuid.UUID, error)

	// List returns one page of tasks matching filter, newest first, together
	// with the total number of matching tasks. The filter must be normalized.
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error)

	// Stats returns aggregate counts computed in a single statement.
	Stats(ctx context.Context) (*domain.TaskStats, error)

	// FindOverdue returns up to limit tasks whose due date is before now and
	// whose status is not COMPLETED, oldest due date first.
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	WithTx(tx *sql.Tx) TaskStore
}
