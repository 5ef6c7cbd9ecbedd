package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/infrastructure/localcache"
	"github.com/taskdeck/backend/repository"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

type memoryRepo struct {
	rows map[string][]domain.Task
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string][]domain.Task)}
}

func (r *memoryRepo) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	for _, row := range r.rows[userID] {
		if row.ID == id {
			return row.Clone(), nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memoryRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	out := make([]domain.Task, len(r.rows[filter.UserID]))
	copy(out, r.rows[filter.UserID])
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	stored := task.Clone()
	stored.ID = time.Now().Format("150405.000000000")
	r.rows[stored.UserID] = append(r.rows[stored.UserID], *stored)
	return stored.Clone(), nil
}

func (r *memoryRepo) Update(_ context.Context, task *domain.Task) (*domain.Task, error) {
	rows := r.rows[task.UserID]
	for i := range rows {
		if rows[i].ID == task.ID {
			rows[i] = *task.Clone()
			return task.Clone(), nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *memoryRepo) Delete(_ context.Context, userID, id string) error {
	rows := r.rows[userID]
	for i := range rows {
		if rows[i].ID == id {
			r.rows[userID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

var _ repository.TaskRepository = (*memoryRepo)(nil)

type stubHealth struct{ online bool }

func (s stubHealth) IsOnline() bool { return s.online }

func openCache(t *testing.T) *localcache.Store {
	t.Helper()
	cache, err := localcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func signedIn(userID string) domain.SessionEvent {
	return domain.SessionEvent{
		UserID:  userID,
		Session: &domain.Session{ID: "s1", UserID: userID},
	}
}

func TestImporterDrainsCacheOnSignIn(t *testing.T) {
	repo := newMemoryRepo()
	cache := openCache(t)

	require.NoError(t, cache.SaveCachedTasks("u1", []json.RawMessage{
		json.RawMessage(`{"title":"carried over"}`),
		json.RawMessage(`{"completed":true}`), // missing title, dropped
		json.RawMessage(`{"title":"second"}`),
	}))

	imp := NewImporter(cache, taskUC.New(repo, nil), stubHealth{online: true}, nil, ImporterConfig{})
	imp.HandleSessionEvent(signedIn("u1"))

	tasks, err := repo.List(context.Background(), repository.TaskFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "carried over", tasks[0].Title)

	entries, err := cache.CachedTasks("u1")
	require.NoError(t, err)
	assert.Empty(t, entries, "cache cleared after a successful drain")
}

func TestImporterStaysPendingWhileOffline(t *testing.T) {
	repo := newMemoryRepo()
	cache := openCache(t)

	require.NoError(t, cache.SaveCachedTasks("u1", []json.RawMessage{
		json.RawMessage(`{"title":"later"}`),
	}))

	health := &stubHealth{online: false}
	imp := NewImporter(cache, taskUC.New(repo, nil), health, nil, ImporterConfig{})
	imp.HandleSessionEvent(signedIn("u1"))

	tasks, err := repo.List(context.Background(), repository.TaskFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, tasks, "nothing imported while offline")

	// backend comes back, scheduled drain succeeds
	health.online = true
	imp.DrainPending(context.Background())

	tasks, err = repo.List(context.Background(), repository.TaskFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestImporterIgnoresSignOut(t *testing.T) {
	repo := newMemoryRepo()
	cache := openCache(t)

	require.NoError(t, cache.SaveCachedTasks("u1", []json.RawMessage{
		json.RawMessage(`{"title":"stays"}`),
	}))

	imp := NewImporter(cache, taskUC.New(repo, nil), stubHealth{online: true}, nil, ImporterConfig{})
	imp.HandleSessionEvent(domain.SessionEvent{UserID: "u1"}) // sign-out

	entries, err := cache.CachedTasks("u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "sign-out never triggers an import")
}
