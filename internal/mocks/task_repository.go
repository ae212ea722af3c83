package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service"
	"github.com/phrazzld/taskflow/internal/store"
)

// TaskRepository is an in-memory service.TaskRepository.
//
// Transactions run against a private copy of the data that replaces the
// shared state on commit, so a failing transaction leaves nothing behind.
// Transactions are serialized. Stored tasks are copied on the way in and out.
//
// The *Err fields make the matching operation fail with that error.
type TaskRepository struct {
	CreateErr       error
	GetErr          error
	UpdateErr       error
	DeleteErr       error
	DeleteManyErr   error
	UpdateStatusErr error
	ListErr         error
	StatsErr        error
	FindOverdueErr  error
	// CommitErr makes every transaction fail after fn succeeded, discarding its writes.
	CommitErr error

	mu     sync.Mutex
	txMu   sync.Mutex
	tasks  map[uuid.UUID]domain.Task
	inTx   bool
	writes int

	txOptions []*sql.TxOptions
}

var _ service.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a repository pre-populated with tasks.
func NewTaskRepository(tasks ...*domain.Task) *TaskRepository {
	r := &TaskRepository{tasks: make(map[uuid.UUID]domain.Task, len(tasks))}
	for _, t := range tasks {
		r.tasks[t.ID] = *t
	}
	return r
}

// Put stores a copy of task, bypassing validation and fault injection.
func (r *TaskRepository) Put(task *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	r.tasks[task.ID] = *task
}

// Get returns a copy of the stored task, bypassing fault injection.
func (r *TaskRepository) Get(id uuid.UUID) (*domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return &t, true
}

// Len returns the number of stored tasks.
func (r *TaskRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// TxOptions returns the options of every transaction started so far.
func (r *TaskRepository) TxOptions() []*sql.TxOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sql.TxOptions(nil), r.txOptions...)
}

// Create implements service.TaskRepository.Create
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if err := task.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure()
	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	r.tasks[task.ID] = *task
	r.writes++
	return nil
}

// GetByID implements service.TaskRepository.GetByID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	t, ok := r.Get(id)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

// GetForUpdate implements service.TaskRepository.GetForUpdate.
// Serialized transactions stand in for the row lock.
func (r *TaskRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return r.GetByID(ctx, id)
}

// Update implements service.TaskRepository.Update
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if err := task.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	r.tasks[task.ID] = *task
	r.writes++
	return nil
}

// Delete implements service.TaskRepository.Delete
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.DeleteErr != nil {
		return r.DeleteErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(r.tasks, id)
	r.writes++
	return nil
}

// DeleteMany implements service.TaskRepository.DeleteMany
func (r *TaskRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if r.DeleteManyErr != nil {
		return 0, r.DeleteManyErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.tasks[id]; ok {
			delete(r.tasks, id)
			n++
			r.writes++
		}
	}
	return n, nil
}

// UpdateStatusWhereNot implements service.TaskRepository.UpdateStatusWhereNot
func (r *TaskRepository) UpdateStatusWhereNot(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.TaskStatus,
	updatedAt time.Time,
) ([]uuid.UUID, error) {
	if r.UpdateStatusErr != nil {
		return nil, r.UpdateStatusErr
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "has an unknown value", domain.ErrInvalidTaskStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	changed := []uuid.UUID{}
	for _, id := range ids {
		t, ok := r.tasks[id]
		if !ok || t.Status == status {
			continue
		}
		t.Status = status
		t.UpdatedAt = updatedAt.UTC()
		r.tasks[id] = t
		r.writes++
		changed = append(changed, id)
	}
	return changed, nil
}

// List implements service.TaskRepository.List
func (r *TaskRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, int, error) {
	if r.ListErr != nil {
		return nil, 0, r.ListErr
	}
	filter = filter.Normalize()

	matched := r.matching(func(t *domain.Task) bool { return matches(t, filter) })
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Stats implements service.TaskRepository.Stats
func (r *TaskRepository) Stats(ctx context.Context) (*domain.TaskStats, error) {
	if r.StatsErr != nil {
		return nil, r.StatsErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.TaskStats
	for _, t := range r.tasks {
		stats.Total++
		switch t.Status {
		case domain.TaskStatusCompleted:
			stats.Completed++
		case domain.TaskStatusInProgress:
			stats.InProgress++
		case domain.TaskStatusPending:
			stats.Pending++
		}
		if t.Priority == domain.TaskPriorityHigh {
			stats.HighPriority++
		}
	}
	return &stats, nil
}

// FindOverdue mirrors store.TaskStore.FindOverdue.
func (r *TaskRepository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	if r.FindOverdueErr != nil {
		return nil, r.FindOverdueErr
	}
	if limit <= 0 {
		limit = domain.MaxLimit
	}

	overdue := r.matching(func(t *domain.Task) bool { return t.IsOverdue(now) })
	sort.Slice(overdue, func(i, j int) bool {
		a, b := overdue[i], overdue[j]
		if !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	if len(overdue) > limit {
		overdue = overdue[:limit]
	}
	return overdue, nil
}

// WithinTransaction implements service.TaskRepository.WithinTransaction
func (r *TaskRepository) WithinTransaction(
	ctx context.Context,
	opts *sql.TxOptions,
	fn func(ctx context.Context, repo service.TaskRepository) error,
) error {
	if r.inTx {
		return fn(ctx, r)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	r.txOptions = append(r.txOptions, opts)
	tx := &TaskRepository{
		CreateErr:       r.CreateErr,
		GetErr:          r.GetErr,
		UpdateErr:       r.UpdateErr,
		DeleteErr:       r.DeleteErr,
		DeleteManyErr:   r.DeleteManyErr,
		UpdateStatusErr: r.UpdateStatusErr,
		ListErr:         r.ListErr,
		StatsErr:        r.StatsErr,
		FindOverdueErr:  r.FindOverdueErr,
		tasks:           make(map[uuid.UUID]domain.Task, len(r.tasks)),
		inTx:            true,
	}
	for id, t := range r.tasks {
		tx.tasks[id] = t
	}
	r.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if r.CommitErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", r.CommitErr)
	}
	if opts != nil && opts.ReadOnly && tx.writes > 0 {
		return errors.New("write attempted in read-only transaction")
	}

	r.mu.Lock()
	r.tasks = tx.tasks
	r.mu.Unlock()
	return nil
}

func (r *TaskRepository) ensure() {
	if r.tasks == nil {
		r.tasks = make(map[uuid.UUID]domain.Task)
	}
}

func (r *TaskRepository) matching(keep func(*domain.Task) bool) []*domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Task{}
	for _, t := range r.tasks {
		t := t
		if keep(&t) {
			out = append(out, &t)
		}
	}
	return out
}

func matches(t *domain.Task, f domain.TaskFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.UserID != nil && (t.UserID == nil || *t.UserID != *f.UserID) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if f.StartDate != nil && t.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}
