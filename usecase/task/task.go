package task

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

// UseCase wraps the remote task store with validation and the
// completed/status normalization applied on every read and write.
type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, userID, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.Normalize()
	return uc.tasks.Create(ctx, task)
}

func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.Normalize()
	return uc.tasks.Update(ctx, task)
}

func (uc *UseCase) DeleteTask(ctx context.Context, userID, id string) error {
	return uc.tasks.Delete(ctx, userID, id)
}

// cachedTask is the shape of one locally cached entry awaiting import.
// Due dates arrive as strings (bare date or timestamp) and are normalized
// fail-closed.
type cachedTask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Tag       string `json:"tag"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	DueDate   string `json:"due_date"`
	CreatedAt string `json:"created_at"`
}

// ImportCached inserts locally cached entries into the remote store.
// Malformed entries (undecodable JSON, blank title) are dropped one by one
// rather than failing the import; a remote insert failure aborts and
// leaves the remaining entries cached for the next attempt.
func (uc *UseCase) ImportCached(ctx context.Context, userID string, entries []json.RawMessage) (imported, dropped int, err error) {
	for _, raw := range entries {
		var entry cachedTask
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr != nil {
			dropped++
			uc.logger.Warn("dropping undecodable cached task", zap.String("user_id", userID), zap.Error(jsonErr))
			continue
		}
		if strings.TrimSpace(entry.Title) == "" {
			dropped++
			uc.logger.Warn("dropping cached task without title", zap.String("user_id", userID))
			continue
		}

		task := &domain.Task{
			UserID:    userID,
			Title:     entry.Title,
			Completed: entry.Completed,
			Tag:       domain.Tag(entry.Tag),
			Priority:  domain.Priority(entry.Priority),
			Status:    domain.Status(entry.Status),
			DueDate:   domain.ParseDueDate(entry.DueDate),
		}
		if created := domain.ParseDueDate(entry.CreatedAt); created != nil {
			task.CreatedAt = *created
		}
		task.Normalize()

		if _, err = uc.tasks.Create(ctx, task); err != nil {
			return imported, dropped, err
		}
		imported++
	}
	return imported, dropped, nil
}
