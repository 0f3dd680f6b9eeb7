package domain

import (
	"strings"
	"time"
)

// TimerEvent is one append-only work-timer interval for a (task, user) pair.
// A nil StoppedAt means the timer is still running. At most one open event
// may exist per pair; the storage layer enforces that with a constraint.
type TimerEvent struct {
	ID        string
	TaskID    string
	UserID    string
	StartedAt time.Time
	StoppedAt *time.Time
}

// NewTimerEvent opens a timer interval at the given instant.
func NewTimerEvent(id, taskID, userID string, startedAt time.Time) (TimerEvent, error) {
	id = strings.TrimSpace(id)
	taskID = strings.TrimSpace(taskID)
	userID = strings.TrimSpace(userID)
	if id == "" || taskID == "" || userID == "" {
		return TimerEvent{}, ErrInvalidID
	}
	return TimerEvent{
		ID:        id,
		TaskID:    taskID,
		UserID:    userID,
		StartedAt: startedAt.UTC(),
	}, nil
}

// Open reports whether the timer is still running.
func (e TimerEvent) Open() bool {
	return e.StoppedAt == nil
}

// Elapsed returns the interval length, using now for a still-open timer so
// totals update live without periodic writes.
func (e TimerEvent) Elapsed(now time.Time) time.Duration {
	end := now.UTC()
	if e.StoppedAt != nil {
		end = e.StoppedAt.UTC()
	}
	d := end.Sub(e.StartedAt.UTC())
	if d < 0 {
		return 0
	}
	return d
}
