package app

import (
	"context"
	"time"

	"github.com/hylla/campusflow/internal/domain"
)

// Repository is the persistence port the engine calls into. Update methods
// take the version the caller read; a stale version fails with
// domain.ErrConcurrentModification and the caller retries with a fresh read.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	UpdateTask(ctx context.Context, task domain.Task, expectedVersion int64) error
	DeleteTask(context.Context, string) error
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)

	CreateProjectApproval(context.Context, domain.ProjectApproval) error
	GetProjectApproval(ctx context.Context, projectID string) (domain.ProjectApproval, error)
	UpdateProjectApproval(ctx context.Context, approval domain.ProjectApproval, expectedVersion int64) error

	CreateLeaveRequest(context.Context, domain.LeaveRequest) error
	GetLeaveRequest(context.Context, string) (domain.LeaveRequest, error)
	UpdateLeaveRequest(ctx context.Context, req domain.LeaveRequest, expectedVersion int64) error

	GetMembershipRole(ctx context.Context, actorID, projectID string) (domain.MembershipRole, bool, error)
	UpsertMembership(ctx context.Context, projectID, userID string, role domain.MembershipRole) error

	LoadDependencySnapshot(ctx context.Context, taskID string) (domain.DependencySnapshot, error)
	LoadDependencyGraph(ctx context.Context, projectID string) (*domain.Graph, error)
	AddDependencyEdge(ctx context.Context, taskID, dependsOnID string) error
	RemoveDependencyEdge(ctx context.Context, taskID, dependsOnID string) error
	ListDependents(ctx context.Context, taskID string) ([]string, error)

	// OpenTimer surfaces domain.ErrTimerAlreadyRunning when the storage
	// uniqueness constraint on open (task, user) timers fires.
	OpenTimer(context.Context, domain.TimerEvent) error
	GetOpenTimer(ctx context.Context, taskID, userID string) (domain.TimerEvent, bool, error)
	ListOpenTimers(ctx context.Context, taskID string) ([]domain.TimerEvent, error)
	CloseTimer(ctx context.Context, eventID string, stoppedAt time.Time) error
	ListTimerEvents(ctx context.Context, taskID string) ([]domain.TimerEvent, error)
}

// AuditSink records committed transitions.
type AuditSink interface {
	Record(context.Context, domain.AuditEvent) error
	ListByEntity(ctx context.Context, kind domain.EntityKind, entityID string, limit int) ([]domain.AuditEvent, error)
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time
