package domain

import (
	"strings"
	"time"
)

// TaskEvent identifies a requested task transition.
type TaskEvent string

// Task transition events.
const (
	TaskEventStart           TaskEvent = "start"
	TaskEventSubmitForReview TaskEvent = "submit_for_review"
	TaskEventApprove         TaskEvent = "approve"
	TaskEventReject          TaskEvent = "reject"
	TaskEventReopen          TaskEvent = "reopen"
)

// taskTransitions is the task workflow table. Absent pairs are invalid
// transitions; there is deliberately no edge into done that skips review.
var taskTransitions = map[TaskStatus]map[TaskEvent]TaskStatus{
	TaskStatusTodo: {
		TaskEventStart: TaskStatusInProgress,
	},
	TaskStatusInProgress: {
		TaskEventSubmitForReview: TaskStatusReview,
	},
	TaskStatusReview: {
		TaskEventApprove: TaskStatusDone,
		TaskEventReject:  TaskStatusTodo,
	},
	TaskStatusDone: {
		TaskEventReopen: TaskStatusTodo,
	},
}

// ParseTaskEvent canonicalizes an event name into a TaskEvent.
func ParseTaskEvent(raw string) (TaskEvent, bool) {
	event := TaskEvent(strings.TrimSpace(strings.ToLower(raw)))
	switch event {
	case TaskEventStart, TaskEventSubmitForReview, TaskEventApprove, TaskEventReject, TaskEventReopen:
		return event, true
	default:
		return "", false
	}
}

// NextTaskStatus resolves the target state for an event without mutating
// anything, so guards can run before the transition commits.
func NextTaskStatus(from TaskStatus, event TaskEvent) (TaskStatus, error) {
	next, ok := taskTransitions[from][event]
	if !ok {
		return "", &InvalidTransitionError{Entity: "task", From: string(from), Event: string(event)}
	}
	return next, nil
}

// ApplyTransition commits an event against the task and runs its effects:
// approve stamps completed_at and locks logged effort, reopen clears both.
// All guards must have passed before calling.
func (t *Task) ApplyTransition(event TaskEvent, now time.Time) error {
	next, err := NextTaskStatus(t.Status, event)
	if err != nil {
		return err
	}
	ts := now.UTC()
	t.Status = next
	t.UpdatedAt = ts
	switch event {
	case TaskEventApprove:
		t.CompletedAt = &ts
		t.EffortLocked = true
	case TaskEventReopen:
		t.CompletedAt = nil
		t.EffortLocked = false
	}
	return nil
}
