package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// taskColumns is the column list shared by every query that returns whole tasks.
const taskColumns = `id, title, description, status, priority, user_id, due_date, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row selected with taskColumns.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		status   string
		priority string
		userID   uuid.NullUUID
		dueDate  sql.NullTime
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&userID,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	if userID.Valid {
		id := userID.UUID
		task.UserID = &id
	}
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		task.DueDate = &d
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}

// buildTaskFilterClause renders the WHERE clause for a listing filter.
// Placeholders are numbered from 1; the returned args line up with them.
// An empty filter yields an empty clause.
func buildTaskFilterClause(f domain.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		conds = append(conds, "status = "+next(string(*f.Status)))
	}
	if f.Priority != nil {
		conds = append(conds, "priority = "+next(string(*f.Priority)))
	}
	if f.UserID != nil {
		conds = append(conds, "user_id = "+next(*f.UserID))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := next("%" + escapeLike(search) + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.StartDate != nil {
		conds = append(conds, "created_at >= "+next(f.StartDate.UTC()))
	}
	if f.EndDate != nil {
		conds = append(conds, "created_at <= "+next(f.EndDate.UTC()))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
