package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

// beginner is the slice of pgxpool.Pool the repository needs.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type taskRepository struct {
	db beginner
}

// NewTaskRepository returns a Postgres-backed implementation of
// TaskRepository. Every statement runs inside a transaction that first
// binds the owner id to app.user_id, which is what the row-level
// security policy on tasks keys on; the WHERE-clause owner scoping is
// defense in depth below that.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{db: pool}
}

const taskColumns = `id, user_id, title, completed, tag, priority, status, due_date, created_at, updated_at`

const bindOwner = `SELECT set_config('app.user_id', $1, true)`

// withOwner runs fn inside a transaction whose app.user_id setting is
// the given owner, so the tasks row-level security policy applies.
func (r *taskRepository) withOwner(ctx context.Context, userID string, fn func(tx pgx.Tx) error) error {
	if userID == "" {
		return domain.ErrInvalidPayload
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, bindOwner, userID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *taskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1 AND user_id = $2
	`
	var task *domain.Task
	err := r.withOwner(ctx, userID, func(tx pgx.Tx) error {
		var scanErr error
		task, scanErr = scanTask(tx.QueryRow(ctx, query, id, userID))
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE user_id = $1
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR tag = $3)
	ORDER BY created_at DESC
	LIMIT $4 OFFSET $5
	`
	var tasks []domain.Task
	err := r.withOwner(ctx, filter.UserID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query,
			filter.UserID,
			string(filter.Status),
			string(filter.Tag),
			clampLimit(filter.Limit),
			filter.Offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, *task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	stored := task.Clone()
	stored.Normalize()
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	const query = `
	INSERT INTO tasks (id, user_id, title, completed, tag, priority, status, due_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + taskColumns + `
	`
	var created *domain.Task
	err := r.withOwner(ctx, stored.UserID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query,
			stored.ID,
			stored.UserID,
			stored.Title,
			stored.Completed,
			string(stored.Tag),
			string(stored.Priority),
			string(stored.Status),
			nullDue(stored.DueDate),
			stored.CreatedAt,
		)
		var scanErr error
		created, scanErr = scanTask(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	stored := task.Clone()
	stored.Normalize()

	// created_at stays whatever the insert wrote; it is immutable.
	const query = `
	UPDATE tasks
	SET title = $3,
		completed = $4,
		tag = $5,
		priority = $6,
		status = $7,
		due_date = $8,
		updated_at = NOW()
	WHERE id = $1 AND user_id = $2
	RETURNING ` + taskColumns + `
	`
	var updated *domain.Task
	err := r.withOwner(ctx, stored.UserID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query,
			stored.ID,
			stored.UserID,
			stored.Title,
			stored.Completed,
			string(stored.Tag),
			string(stored.Priority),
			string(stored.Status),
			nullDue(stored.DueDate),
		)
		var scanErr error
		updated, scanErr = scanTask(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *taskRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	return r.withOwner(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTaskNotFound
		}
		return nil
	})
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var (
		task     domain.Task
		tag      string
		priority string
		status   string
		due      *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Completed,
		&tag,
		&priority,
		&status,
		&due,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Tag = domain.Tag(tag)
	task.Priority = domain.Priority(priority)
	task.Status = domain.Status(status)
	task.DueDate = due
	task.Normalize()

	return &task, nil
}

func nullDue(due *time.Time) interface{} {
	if due == nil {
		return nil
	}
	return *due
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}
