package domain

import (
	"sort"
	"time"
)

// View names a sidebar predicate over the task list.
type View string

const (
	ViewAll       View = "all"
	ViewWork      View = "work"
	ViewPersonal  View = "personal"
	ViewOverdue   View = "overdue"
	ViewUpcoming  View = "upcoming"
	ViewCompleted View = "completed"
)

// AllViews lists every view that gets a sidebar count.
var AllViews = []View{ViewAll, ViewWork, ViewPersonal, ViewOverdue, ViewUpcoming, ViewCompleted}

// SortKey selects the ordering of the visible list.
type SortKey string

const (
	SortCreated  SortKey = "created"
	SortDueDate  SortKey = "due_date"
	SortPriority SortKey = "priority"
)

// Selection is the view/filter/sort configuration chosen in the sidebar.
type Selection struct {
	View   View
	Status Status
	Sort   SortKey
}

// Flags are the per-task derived booleans, computed relative to "today".
type Flags struct {
	Overdue  bool `json:"overdue"`
	Upcoming bool `json:"upcoming"`
}

// TaskView pairs a task with its derived flags.
type TaskView struct {
	Task
	Flags
}

// Derivation is the output of a single view computation.
type Derivation struct {
	Visible []TaskView   `json:"visible"`
	Counts  map[View]int `json:"counts"`
}

// upcomingWindowDays is the inclusive horizon of the "upcoming" view,
// counted from tomorrow.
const upcomingWindowDays = 7

// DateKey reduces a timestamp to its local calendar-day key (YYYY-MM-DD).
// Overdue/upcoming comparisons work on these keys, never on raw timestamp
// differences, so a due date near midnight cannot flip classification.
func DateKey(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}

// ParseDueDate normalizes a raw due-date string, which may be a bare date
// or a full timestamp. Unparsable input fails closed: the task is treated
// as having no due date.
func ParseDueDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local); err == nil {
		return &parsed
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed
	}
	return nil
}

// DeriveFlags computes the overdue/upcoming booleans for one task.
// Completed tasks and tasks without a due date carry neither flag.
// A task due today is neither overdue nor upcoming.
func DeriveFlags(t *Task, today time.Time) Flags {
	if t == nil || t.Completed || t.DueDate == nil {
		return Flags{}
	}
	dueKey := DateKey(*t.DueDate)
	todayKey := DateKey(today)
	horizonKey := DateKey(today.AddDate(0, 0, upcomingWindowDays))

	return Flags{
		Overdue:  dueKey < todayKey,
		Upcoming: dueKey > todayKey && dueKey <= horizonKey,
	}
}

// Matches reports whether the task belongs to the named view. Views are
// independent predicates: a task may match several at once.
func (v View) Matches(t *Task, f Flags) bool {
	switch v {
	case ViewWork:
		return t.Tag == TagWork
	case ViewPersonal:
		return t.Tag == TagPersonal
	case ViewOverdue:
		return f.Overdue
	case ViewUpcoming:
		return f.Upcoming
	case ViewCompleted:
		return t.Completed
	default:
		return true
	}
}

// Derive computes the visible subset, the independent per-view counts and
// the per-task flags for the given selection. Pure: it never mutates its
// input and depends only on its arguments.
func Derive(tasks []Task, sel Selection, today time.Time) Derivation {
	if sel.View == "" {
		sel.View = ViewAll
	}

	out := Derivation{
		Visible: make([]TaskView, 0, len(tasks)),
		Counts:  make(map[View]int, len(AllViews)),
	}
	for _, v := range AllViews {
		out.Counts[v] = 0
	}

	for i := range tasks {
		t := tasks[i]
		t.Normalize()
		flags := DeriveFlags(&t, today)

		for _, v := range AllViews {
			if v.Matches(&t, flags) {
				out.Counts[v]++
			}
		}

		if !sel.View.Matches(&t, flags) {
			continue
		}
		if sel.Status != "" && t.Status != sel.Status {
			continue
		}
		out.Visible = append(out.Visible, TaskView{Task: t, Flags: flags})
	}

	sortTasks(out.Visible, sel.Sort)
	return out
}

// sortTasks orders the visible list in place. Every ordering is total and
// stable, with creation time descending as the tie breaker.
func sortTasks(tasks []TaskView, key SortKey) {
	less := byCreatedDesc
	switch key {
	case SortDueDate:
		less = byDueDateAsc
	case SortPriority:
		less = byPriorityDesc
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(&tasks[i].Task, &tasks[j].Task)
	})
}

func byCreatedDesc(a, b *Task) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

// byDueDateAsc sorts by due-date key ascending with null due dates last.
func byDueDateAsc(a, b *Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return byCreatedDesc(a, b)
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	}
	aKey, bKey := DateKey(*a.DueDate), DateKey(*b.DueDate)
	if aKey != bKey {
		return aKey < bKey
	}
	return byCreatedDesc(a, b)
}

func byPriorityDesc(a, b *Task) bool {
	if ar, br := a.Priority.Rank(), b.Priority.Rank(); ar != br {
		return ar > br
	}
	return byCreatedDesc(a, b)
}
