package domain

import "time"

// EntityKind identifies which workflow entity a reference points at.
type EntityKind string

// EntityKind values.
const (
	EntityKindTask            EntityKind = "task"
	EntityKindProjectApproval EntityKind = "project_approval"
	EntityKindLeaveRequest    EntityKind = "leave_request"
)

// EntityRef names one workflow entity. For project approvals the id is the
// project id.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// AuditEvent is one immutable record of a committed transition: who did what
// to which entity, and the before/after states.
type AuditEvent struct {
	ID         int64
	ActorID    string
	EntityKind EntityKind
	EntityID   string
	Action     string
	FromStatus string
	ToStatus   string
	Note       string
	OccurredAt time.Time
}
