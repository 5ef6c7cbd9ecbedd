package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/backend/domain"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

func TestBoardManagerLoadsOnSessionChange(t *testing.T) {
	repo := newMemoryRepo()
	repo.rows["u1"] = []domain.Task{{
		ID:       "t1",
		UserID:   "u1",
		Title:    "existing",
		Priority: domain.PriorityMedium,
		Status:   domain.StatusOpen,
	}}

	m := NewBoardManager(taskUC.New(repo, nil), 0, nil)
	m.HandleSessionEvent(signedIn("u1"))

	b, err := m.Board(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, b.Tasks(), 1)
}

func TestBoardManagerClearsOnSignOut(t *testing.T) {
	repo := newMemoryRepo()
	m := NewBoardManager(taskUC.New(repo, nil), 0, nil)

	m.HandleSessionEvent(signedIn("u1"))
	m.mu.RLock()
	_, loaded := m.boards["u1"]
	m.mu.RUnlock()
	require.True(t, loaded)

	m.HandleSessionEvent(domain.SessionEvent{UserID: "u1"})
	m.mu.RLock()
	_, loaded = m.boards["u1"]
	m.mu.RUnlock()
	assert.False(t, loaded, "sign-out clears the in-memory state")
}

func TestBoardManagerReusesBoard(t *testing.T) {
	repo := newMemoryRepo()
	m := NewBoardManager(taskUC.New(repo, nil), 0, nil)

	first, err := m.Board(context.Background(), "u1")
	require.NoError(t, err)
	second, err := m.Board(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}
