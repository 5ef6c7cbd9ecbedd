package repository

import (
	"context"

	"github.com/taskdeck/backend/domain"
)

// TaskFilter scopes a list query. UserID is mandatory: every query runs
// with the owner threaded in as defense in depth below the database's
// row-level security policy.
type TaskFilter struct {
	UserID string
	Status domain.Status
	Tag    domain.Tag
	Limit  int
	Offset int
}

type TaskRepository interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	// Create inserts the task and returns the canonical stored row,
	// including the server-assigned id.
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update rewrites the mutable fields of the row matching the task's
	// id and owner, returning the canonical stored row.
	Update(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Delete(ctx context.Context, userID, id string) error
}
