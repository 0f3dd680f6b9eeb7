package domain

import (
	"slices"
	"strings"
	"time"
)

// TaskStatus identifies a task lifecycle state.
type TaskStatus string

// Task lifecycle states.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// validTaskStatuses stores all supported task states.
var validTaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
}

// Priority identifies task urgency.
type Priority string

// Priority values.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Subtask is an informational checklist entry on a task. Subtasks never gate
// transitions.
type Subtask struct {
	Title string
	Done  bool
}

// Task represents one unit of project work. Status changes go through the
// transition table in task_machine.go, never direct field writes.
type Task struct {
	ID              string
	ProjectID       string
	Title           string
	Status          TaskStatus
	Priority        Priority
	EstimatedEffort float64
	LoggedEffort    float64
	EffortLocked    bool
	DueAt           *time.Time
	CompletedAt     *time.Time
	Assignees       []string
	Subtasks        []Subtask
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskInput holds write-time values for NewTask.
type TaskInput struct {
	ID              string
	ProjectID       string
	Title           string
	Priority        Priority
	EstimatedEffort float64
	DueAt           *time.Time
	Assignees       []string
	Subtasks        []Subtask
}

// NewTask validates and normalizes a new task. Tasks start in todo with no
// completion stamp.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.ProjectID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}
	if in.EstimatedEffort < 0 {
		return Task{}, ErrInvalidEffort
	}

	ts := now.UTC()
	return Task{
		ID:              in.ID,
		ProjectID:       in.ProjectID,
		Title:           in.Title,
		Status:          TaskStatusTodo,
		Priority:        in.Priority,
		EstimatedEffort: in.EstimatedEffort,
		DueAt:           normalizeDueAt(in.DueAt),
		Assignees:       normalizeIDs(in.Assignees),
		Subtasks:        normalizeSubtasks(in.Subtasks),
		Version:         1,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}, nil
}

// IsValidTaskStatus reports whether a task-status value is supported.
func IsValidTaskStatus(status TaskStatus) bool {
	return slices.Contains(validTaskStatuses, status)
}

// IsAssignee reports whether the user is assigned to the task.
func (t *Task) IsAssignee(userID string) bool {
	return slices.Contains(t.Assignees, strings.TrimSpace(userID))
}

// CreditEffort adds hours to the logged effort. Effort is locked once the
// task is done.
func (t *Task) CreditEffort(hours float64, now time.Time) error {
	if t.EffortLocked {
		return ErrEffortLocked
	}
	if hours < 0 {
		return ErrInvalidEffort
	}
	t.LoggedEffort += hours
	t.UpdatedAt = now.UTC()
	return nil
}

// Reassign replaces the assignee set.
func (t *Task) Reassign(assignees []string, now time.Time) {
	t.Assignees = normalizeIDs(assignees)
	t.UpdatedAt = now.UTC()
}

// normalizeDueAt handles normalize due at.
func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}

// normalizeIDs trims and de-duplicates ids while preserving order.
func normalizeIDs(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// normalizeSubtasks drops empty checklist titles.
func normalizeSubtasks(in []Subtask) []Subtask {
	out := make([]Subtask, 0, len(in))
	for _, sub := range in {
		sub.Title = strings.TrimSpace(sub.Title)
		if sub.Title == "" {
			continue
		}
		out = append(out, sub)
	}
	return out
}
