package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
	taskuc "github.com/taskdeck/backend/usecase/task"
)

// the task use case is what production boards drive
var _ TaskService = (*taskuc.UseCase)(nil)

// fakeRepo is an in-memory TaskRepository whose next call can be forced
// to fail, so the rollback path is exercised without a transport.
type fakeRepo struct {
	rows    map[string]*domain.Task
	nextErr error
	// mutate lets a test simulate server-side defaulting on update/create
	mutate func(*domain.Task)
	nextID int
}

func newFakeRepo(seed ...domain.Task) *fakeRepo {
	r := &fakeRepo{rows: make(map[string]*domain.Task)}
	for i := range seed {
		r.rows[seed[i].ID] = seed[i].Clone()
	}
	return r
}

func (r *fakeRepo) takeErr() error {
	err := r.nextErr
	r.nextErr = nil
	return err
}

func (r *fakeRepo) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return row.Clone(), nil
}

func (r *fakeRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	var out []domain.Task
	for _, row := range r.rows {
		if row.UserID == filter.UserID {
			out = append(out, *row.Clone())
		}
	}
	return out, nil
}

func (r *fakeRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	stored := task.Clone()
	r.nextID++
	stored.ID = string(rune('a' + r.nextID - 1))
	stored.Normalize()
	if r.mutate != nil {
		r.mutate(stored)
	}
	r.rows[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *fakeRepo) Update(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	if _, ok := r.rows[task.ID]; !ok {
		return nil, domain.ErrTaskNotFound
	}
	stored := task.Clone()
	stored.Normalize()
	if r.mutate != nil {
		r.mutate(stored)
	}
	r.rows[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *fakeRepo) Delete(_ context.Context, userID, id string) error {
	if err := r.takeErr(); err != nil {
		return err
	}
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(r.rows, id)
	return nil
}

var _ repository.TaskRepository = (*fakeRepo)(nil)

var testToday = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

func seedTask(id string, mut func(*domain.Task)) domain.Task {
	t := domain.Task{
		ID:        id,
		UserID:    "u1",
		Title:     "task " + id,
		Priority:  domain.PriorityMedium,
		Status:    domain.StatusOpen,
		CreatedAt: testToday.Add(-time.Hour),
	}
	if mut != nil {
		mut(&t)
	}
	return t
}

func newTestBoard(t *testing.T, repo *fakeRepo) *Board {
	t.Helper()
	b := New("u1", taskuc.New(repo, nil), nil)
	b.now = func() time.Time { return testToday }
	require.NoError(t, b.Load(context.Background()))
	return b
}

func findTask(t *testing.T, b *Board, id string) domain.Task {
	t.Helper()
	for _, task := range b.Tasks() {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not on board", id)
	return domain.Task{}
}

func TestToggleCompleteSuccess(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	b := newTestBoard(t, repo)

	require.NoError(t, b.ToggleComplete(context.Background(), "t1"))

	got := findTask(t, b, "t1")
	assert.True(t, got.Completed)
	assert.Equal(t, domain.StatusCompleted, got.Status, "normalization keeps status in sync")
	assert.Nil(t, b.Banner())
	assert.True(t, repo.rows["t1"].Completed, "remote row updated")
}

func TestToggleCompleteRollback(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	b := newTestBoard(t, repo)

	repo.nextErr = errors.New("connection reset")
	err := b.ToggleComplete(context.Background(), "t1")
	require.Error(t, err)

	got := findTask(t, b, "t1")
	assert.False(t, got.Completed, "optimistic toggle reverted")
	assert.Equal(t, domain.StatusOpen, got.Status)

	banner := b.Banner()
	require.NotNil(t, banner)
	assert.Equal(t, "toggle completion of", banner.Operation)
	assert.Equal(t, "t1", banner.TaskID)
	assert.Equal(t, "task t1", banner.Title)
	assert.Contains(t, banner.Reason, "connection reset")
	assert.Contains(t, banner.Message(), "task t1")

	b.DismissBanner()
	assert.Nil(t, b.Banner())
}

func TestPatchReconcilesWithServerRow(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	// server-side defaulting: the store rewrites the tag
	repo.mutate = func(task *domain.Task) { task.Tag = domain.TagWork }
	b := newTestBoard(t, repo)

	priority := domain.PriorityHigh
	require.NoError(t, b.Patch(context.Background(), "t1", TaskPatch{Priority: &priority}))

	got := findTask(t, b, "t1")
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.TagWork, got.Tag, "server-returned row replaces the optimistic record")
}

func TestPatchEmptyTitleRejectedBeforeRemoteCall(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	b := newTestBoard(t, repo)

	empty := "   "
	repo.nextErr = errors.New("must not be reached")
	err := b.Patch(context.Background(), "t1", TaskPatch{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	assert.NotNil(t, repo.nextErr, "no remote call was issued")
	assert.Nil(t, b.Banner(), "validation errors surface inline, not as a banner")
}

func TestPatchStatusCompletedSetsFlag(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	b := newTestBoard(t, repo)

	status := domain.StatusCompleted
	require.NoError(t, b.Patch(context.Background(), "t1", TaskPatch{Status: &status}))

	got := findTask(t, b, "t1")
	assert.True(t, got.Completed)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestPatchUnknownTask(t *testing.T) {
	b := newTestBoard(t, newFakeRepo())
	done := true
	err := b.Patch(context.Background(), "nope", TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDeleteSuccess(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil), seedTask("t2", nil))
	b := newTestBoard(t, repo)

	require.NoError(t, b.Delete(context.Background(), "t1"))
	assert.Len(t, b.Tasks(), 1)
	_, exists := repo.rows["t1"]
	assert.False(t, exists)
}

func TestDeleteRollbackRestoresRecord(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil), seedTask("t2", nil))
	b := newTestBoard(t, repo)

	repo.nextErr = errors.New("backend unavailable")
	err := b.Delete(context.Background(), "t1")
	require.Error(t, err)

	assert.Len(t, b.Tasks(), 2, "deleted record restored")
	got := findTask(t, b, "t1")
	assert.Equal(t, "task t1", got.Title)

	banner := b.Banner()
	require.NotNil(t, banner)
	assert.Equal(t, "delete", banner.Operation)
	assert.Contains(t, banner.Reason, "backend unavailable")
}

func TestCreateConfirmsBeforeInsert(t *testing.T) {
	repo := newFakeRepo()
	b := newTestBoard(t, repo)

	created, err := b.Create(context.Background(), &domain.Task{Title: "new task"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID, "server assigns the id")

	tasks := b.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID, "confirmed row inserted at the head")
}

func TestCreateFailureLeavesListUntouched(t *testing.T) {
	repo := newFakeRepo(seedTask("t1", nil))
	b := newTestBoard(t, repo)

	repo.nextErr = errors.New("insert failed")
	_, err := b.Create(context.Background(), &domain.Task{Title: "new task"})
	require.Error(t, err)

	assert.Len(t, b.Tasks(), 1, "no optimistic insert before server acknowledgment")
	banner := b.Banner()
	require.NotNil(t, banner)
	assert.Equal(t, "create", banner.Operation)
}

func TestCreateValidatesBeforeRemoteCall(t *testing.T) {
	repo := newFakeRepo()
	b := newTestBoard(t, repo)

	_, err := b.Create(context.Background(), &domain.Task{Title: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	assert.Empty(t, repo.rows)
}

func TestToggleRemovesFromOverdueView(t *testing.T) {
	due := testToday.AddDate(0, 0, -1)
	repo := newFakeRepo(seedTask("t1", func(x *domain.Task) { x.DueDate = &due }))
	b := newTestBoard(t, repo)

	out := b.Derive(domain.Selection{View: domain.ViewOverdue})
	require.Len(t, out.Visible, 1)
	assert.Equal(t, "t1", out.Visible[0].ID)

	require.NoError(t, b.ToggleComplete(context.Background(), "t1"))

	out = b.Derive(domain.Selection{View: domain.ViewOverdue})
	assert.Empty(t, out.Visible)
	assert.Equal(t, 1, out.Counts[domain.ViewCompleted])
}
