package domain

import (
	"strings"
	"time"
)

// Tag is an optional coarse classification of a task.
type Tag string

const (
	TagNone     Tag = ""
	TagWork     Tag = "work"
	TagPersonal Tag = "personal"
)

// Priority is an ordered task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the sortable weight of a priority; higher sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
)

// Task is a user-owned to-do record.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Tag       Tag        `json:"tag,omitempty"`
	Priority  Priority   `json:"priority"`
	Status    Status     `json:"status"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate rejects tasks that must never reach the store.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Normalize keeps the completed flag and the status field in agreement:
// a completed task is forced to StatusCompleted, while a task carrying
// StatusCompleted without the flag is reopened. Unknown status values
// collapse to StatusOpen. Applied on every read from and write to the
// store; idempotent.
func (t *Task) Normalize() {
	if t == nil {
		return
	}
	switch t.Status {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusCompleted:
	default:
		t.Status = StatusOpen
	}
	if t.Priority.Rank() == 0 {
		t.Priority = PriorityMedium
	}
	if t.Completed {
		t.Status = StatusCompleted
		return
	}
	if t.Status == StatusCompleted {
		t.Status = StatusOpen
	}
}

// Clone returns a deep copy, detaching the due-date pointer.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	dup := *t
	if t.DueDate != nil {
		due := *t.DueDate
		dup.DueDate = &due
	}
	return &dup
}
