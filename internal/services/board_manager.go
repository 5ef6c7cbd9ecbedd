package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/usecase/board"
)

// BoardManager owns one board per signed-in user. It subscribes to
// session changes: a new session loads the user's task list from the
// remote store, a sign-out clears the in-memory state.
type BoardManager struct {
	remote  board.TaskService
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	boards map[string]*board.Board
}

func NewBoardManager(remote board.TaskService, timeout time.Duration, logger *zap.Logger) *BoardManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardManager{
		remote:  remote,
		logger:  logger,
		timeout: timeout,
		boards:  make(map[string]*board.Board),
	}
}

// HandleSessionEvent reacts to sign-in and sign-out notifications.
func (m *BoardManager) HandleSessionEvent(event domain.SessionEvent) {
	if event.UserID == "" {
		return
	}
	if event.Session == nil {
		m.mu.Lock()
		delete(m.boards, event.UserID)
		m.mu.Unlock()
		m.logger.Info("board cleared", zap.String("user_id", event.UserID))
		return
	}
	if _, err := m.Board(context.Background(), event.UserID); err != nil {
		m.logger.Error("board load failed on session change",
			zap.String("user_id", event.UserID), zap.Error(err))
	}
}

// Board returns the user's board, creating and loading it on first use.
func (m *BoardManager) Board(ctx context.Context, userID string) (*board.Board, error) {
	m.mu.RLock()
	b, ok := m.boards[userID]
	m.mu.RUnlock()
	if ok {
		return b, nil
	}

	b = board.New(userID, m.remote, m.logger)

	loadCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := b.Load(loadCtx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have loaded the board in the meantime
	if existing, ok := m.boards[userID]; ok {
		return existing, nil
	}
	m.boards[userID] = b
	return b, nil
}
