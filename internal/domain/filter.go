package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Pagination defaults for task listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit within int for any accepted limit.
	MaxPage = math.MaxInt / MaxLimit
)

// TaskFilter narrows a task listing. Nil fields do not constrain the result.
// StartDate and EndDate bound CreatedAt, both inclusive.
type TaskFilter struct {
	Status    *TaskStatus
	Priority  *TaskPriority
	Search    string
	UserID    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// Normalize replaces out-of-range pagination values with defaults.
// It never fails: bad page or limit values are not treated as errors.
func (f TaskFilter) Normalize() TaskFilter {
	if f.Page < 1 || f.Page > MaxPage {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

// Offset returns the number of rows to skip for the filter's page.
func (f TaskFilter) Offset() int {
	n := f.Normalize()
	return (n.Page - 1) * n.Limit
}

// Validate checks the parts of the filter that cannot fall back to a default.
func (f TaskFilter) Validate() error {
	if f.Status != nil && !f.Status.IsValid() {
		return NewValidationError("status", "has an unknown value", ErrInvalidTaskStatus)
	}
	if f.Priority != nil && !f.Priority.IsValid() {
		return NewValidationError("priority", "has an unknown value", ErrInvalidTaskPriority)
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return NewValidationError("startDate", "is after endDate", ErrInvalidDateRange)
	}
	return nil
}

// PageMeta describes where a page sits in the full result set.
type PageMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPageMeta computes pagination metadata for a total row count.
func NewPageMeta(total, page, limit int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PageMeta{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Data []*Task  `json:"data"`
	Meta PageMeta `json:"meta"`
}

// TaskStats holds aggregate task counts taken from a single snapshot.
type TaskStats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	InProgress   int `json:"inProgress"`
	Pending      int `json:"pending"`
	HighPriority int `json:"highPriority"`
}
