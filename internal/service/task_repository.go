package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

// TaskRepository defines the repository interface for the service layer.
// It mirrors store.TaskStore and adds a transactional boundary.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	UpdateStatusWhereNot(
		ctx context.Context,
		ids []uuid.UUID,
		status domain.TaskStatus,
		updatedAt time.Time,
	) ([]uuid.UUID, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error)
	Stats(ctx context.Context) (*domain.TaskStats, error)

	// WithinTransaction runs fn against a repository bound to a single
	// transaction started with opts (nil for the driver default). The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(
		ctx context.Context,
		opts *sql.TxOptions,
		fn func(ctx context.Context, repo TaskRepository) error,
	) error
}

// NewTaskRepositoryAdapter creates a new adapter that allows a store.TaskStore
// to be used where a TaskRepository is expected.
func NewTaskRepositoryAdapter(taskStore store.TaskStore, db *sql.DB) TaskRepository {
	return &taskRepositoryAdapter{
		TaskStore: taskStore,
		db:        db,
	}
}

// taskRepositoryAdapter adapts a store.TaskStore to the TaskRepository interface.
// Embedding forwards the data methods unchanged.
type taskRepositoryAdapter struct {
	store.TaskStore
	db *sql.DB
}

// WithinTransaction implements TaskRepository.WithinTransaction
func (a *taskRepositoryAdapter) WithinTransaction(
	ctx context.Context,
	opts *sql.TxOptions,
	fn func(ctx context.Context, repo TaskRepository) error,
) error {
	return store.RunInTransactionWithOptions(ctx, a.db, opts, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &taskRepositoryAdapter{
			TaskStore: a.TaskStore.WithTx(tx),
			db:        a.db,
		})
	})
}
