// Package board holds a signed-in user's in-memory working set of tasks.
//
// Mutations are optimistic: the local record changes first, then the
// remote call is issued. A successful call replaces the optimistic record
// with the server's canonical row; a failed call restores the
// pre-mutation snapshot and raises a dismissable banner naming the
// attempted change. There is no automatic retry and no per-task queueing
// of in-flight calls: when two calls against the same id race, the last
// response to resolve wins.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

// Banner is the user-visible record of a failed mutation.
type Banner struct {
	Operation string `json:"operation"`
	TaskID    string `json:"task_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Reason    string `json:"reason"`
}

// Message renders the banner text shown to the user.
func (b *Banner) Message() string {
	if b == nil {
		return ""
	}
	if b.Title != "" {
		return fmt.Sprintf("could not %s %q: %s", b.Operation, b.Title, b.Reason)
	}
	return fmt.Sprintf("could not %s: %s", b.Operation, b.Reason)
}

// TaskService is the slice of the task use case the board drives. Every
// remote read and write goes through it so validation and the
// completed/status normalization apply on the way to the store.
type TaskService interface {
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error)
	CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
}

// TaskPatch is a field-by-field update. Nil fields stay untouched.
// DueDate carries the raw string form: empty clears the due date,
// unparsable values fail closed to no due date.
type TaskPatch struct {
	Title     *string
	Completed *bool
	Tag       *domain.Tag
	Priority  *domain.Priority
	Status    *domain.Status
	DueDate   *string
}

func (p TaskPatch) applyTo(t *domain.Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Tag != nil {
		t.Tag = *p.Tag
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
		t.Completed = *p.Status == domain.StatusCompleted
	}
	if p.DueDate != nil {
		t.DueDate = domain.ParseDueDate(*p.DueDate)
	}
	t.Normalize()
}

func (p TaskPatch) describe() string {
	if p.Completed != nil && p.Title == nil && p.Status == nil {
		return "toggle completion of"
	}
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Tag != nil {
		fields = append(fields, "tag")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.DueDate != nil {
		fields = append(fields, "due date")
	}
	if len(fields) == 0 {
		return "update"
	}
	return "change " + strings.Join(fields, ", ") + " of"
}

// Board is the per-user in-memory task list plus its last error banner.
// All exported methods are safe for concurrent use; each mutation's
// apply/confirm/compensate step runs to completion under the state lock.
type Board struct {
	userID string
	remote TaskService
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	tasks  []domain.Task
	banner *Banner
}

func New(userID string, remote TaskService, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		userID: userID,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

// Load replaces the working set with the store's current rows.
func (b *Board) Load(ctx context.Context) error {
	tasks, err := b.remote.ListTasks(ctx, repository.TaskFilter{UserID: b.userID})
	if err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].Normalize()
	}

	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// Tasks returns a copy of the committed working set.
func (b *Board) Tasks() []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Task, len(b.tasks))
	for i := range b.tasks {
		out[i] = *b.tasks[i].Clone()
	}
	return out
}

// Derive computes the visible list, sidebar counts and per-task flags for
// the selection, always observing the most recently committed state.
func (b *Board) Derive(sel domain.Selection) domain.Derivation {
	return domain.Derive(b.Tasks(), sel, b.now())
}

// Banner returns the banner from the last failed mutation, if any.
func (b *Board) Banner() *Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.banner
}

// DismissBanner clears the current error banner.
func (b *Board) DismissBanner() {
	b.mu.Lock()
	b.banner = nil
	b.mu.Unlock()
}

// Create inserts a task remotely and prepends the confirmed row to the
// working set. The insert is not optimistic: the record only becomes
// addressable once the server has assigned its id.
func (b *Board) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	task.UserID = b.userID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = b.now()
	}
	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}

	created, err := b.remote.CreateTask(ctx, task)
	if err != nil {
		b.fail(&Banner{Operation: "create", Title: task.Title, Reason: err.Error()})
		return nil, err
	}

	b.mu.Lock()
	b.tasks = append([]domain.Task{*created.Clone()}, b.tasks...)
	b.mu.Unlock()
	return created, nil
}

// Patch applies a field-by-field update optimistically and reconciles it
// with the server row, rolling back on failure.
func (b *Board) Patch(ctx context.Context, id string, patch TaskPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.ErrEmptyTitle
	}

	var snapshot, working *domain.Task
	return b.run(ctx, mutation{
		operation: patch.describe(),
		taskID:    id,
		apply: func() (string, bool) {
			idx := b.indexOf(id)
			if idx < 0 {
				return "", false
			}
			snapshot = b.tasks[idx].Clone()
			working = snapshot.Clone()
			patch.applyTo(working)
			b.tasks[idx] = *working.Clone()
			return snapshot.Title, true
		},
		call: func(ctx context.Context) (*domain.Task, error) {
			return b.remote.UpdateTask(ctx, working)
		},
		confirm: func(server *domain.Task) {
			b.replace(id, server)
		},
		compensate: func() {
			b.replace(id, snapshot)
		},
	})
}

// ToggleComplete flips the completion flag of the task.
func (b *Board) ToggleComplete(ctx context.Context, id string) error {
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	next := !b.tasks[idx].Completed
	b.mu.Unlock()

	return b.Patch(ctx, id, TaskPatch{Completed: &next})
}

// Delete removes the task optimistically and reinserts it at its old
// position when the remote delete fails.
func (b *Board) Delete(ctx context.Context, id string) error {
	var (
		snapshot *domain.Task
		at       int
	)
	return b.run(ctx, mutation{
		operation: "delete",
		taskID:    id,
		apply: func() (string, bool) {
			idx := b.indexOf(id)
			if idx < 0 {
				return "", false
			}
			snapshot = b.tasks[idx].Clone()
			at = idx
			b.tasks = append(b.tasks[:idx], b.tasks[idx+1:]...)
			return snapshot.Title, true
		},
		call: func(ctx context.Context) (*domain.Task, error) {
			return nil, b.remote.DeleteTask(ctx, b.userID, id)
		},
		confirm: func(*domain.Task) {},
		compensate: func() {
			if at > len(b.tasks) {
				at = len(b.tasks)
			}
			b.tasks = append(b.tasks[:at], append([]domain.Task{*snapshot}, b.tasks[at:]...)...)
		},
	})
}

// mutation models one optimistic change as an explicit
// apply/remote-call/confirm-or-compensate triple so the rollback path is
// testable without a transport. apply and the two outcome steps run under
// the state lock; the remote call does not.
type mutation struct {
	operation  string
	taskID     string
	apply      func() (title string, ok bool)
	call       func(ctx context.Context) (*domain.Task, error)
	confirm    func(server *domain.Task)
	compensate func()
}

func (b *Board) run(ctx context.Context, m mutation) error {
	b.mu.Lock()
	title, ok := m.apply()
	b.mu.Unlock()
	if !ok {
		return domain.ErrTaskNotFound
	}

	server, err := m.call(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		m.compensate()
		b.banner = &Banner{Operation: m.operation, TaskID: m.taskID, Title: title, Reason: err.Error()}
		b.logger.Warn("mutation rolled back",
			zap.String("operation", m.operation),
			zap.String("user_id", b.userID),
			zap.Error(err))
		return err
	}
	m.confirm(server)
	return nil
}

func (b *Board) fail(banner *Banner) {
	b.mu.Lock()
	b.banner = banner
	b.mu.Unlock()
	b.logger.Warn("mutation failed",
		zap.String("operation", banner.Operation),
		zap.String("user_id", b.userID),
		zap.String("reason", banner.Reason))
}

// indexOf and replace assume the caller holds b.mu.

func (b *Board) indexOf(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// replace swaps in the given row for the record with the same id. The row
// is dropped when the record has disappeared in the meantime: a mutation
// only ever touches its own record by identifier.
func (b *Board) replace(id string, row *domain.Task) {
	if row == nil {
		return
	}
	if idx := b.indexOf(id); idx >= 0 {
		dup := row.Clone()
		dup.Normalize()
		b.tasks[idx] = *dup
	}
}
