package domain

import (
	"slices"
	"strings"
	"time"
)

// LeaveType identifies the category of a leave request.
type LeaveType string

// Leave types.
const (
	LeaveTypeVacation   LeaveType = "vacation"
	LeaveTypeSick       LeaveType = "sick"
	LeaveTypeExam       LeaveType = "exam"
	LeaveTypeConference LeaveType = "conference"
	LeaveTypePersonal   LeaveType = "personal"
)

var validLeaveTypes = []LeaveType{
	LeaveTypeVacation,
	LeaveTypeSick,
	LeaveTypeExam,
	LeaveTypeConference,
	LeaveTypePersonal,
}

// LeaveStatus identifies a leave-request state.
type LeaveStatus string

// Leave-request states. Approved, rejected and cancelled are terminal.
const (
	LeaveStatusPending   LeaveStatus = "pending"
	LeaveStatusApproved  LeaveStatus = "approved"
	LeaveStatusRejected  LeaveStatus = "rejected"
	LeaveStatusCancelled LeaveStatus = "cancelled"
)

// LeaveEvent identifies a requested leave-request transition.
type LeaveEvent string

// Leave-request transition events.
const (
	LeaveEventApprove LeaveEvent = "approve"
	LeaveEventReject  LeaveEvent = "reject"
	LeaveEventCancel  LeaveEvent = "cancel"
)

// leaveTransitions is the leave-request workflow table.
var leaveTransitions = map[LeaveStatus]map[LeaveEvent]LeaveStatus{
	LeaveStatusPending: {
		LeaveEventApprove: LeaveStatusApproved,
		LeaveEventReject:  LeaveStatusRejected,
		LeaveEventCancel:  LeaveStatusCancelled,
	},
}

// LeaveRequest is one time-off request. The date range is immutable once the
// request leaves pending.
type LeaveRequest struct {
	ID              string
	RequesterID     string
	ProjectID       string
	Type            LeaveType
	StartDate       time.Time
	EndDate         time.Time
	Reason          string
	Status          LeaveStatus
	RejectionReason string
	ReviewedBy      string
	ReviewedAt      *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LeaveRequestInput holds write-time values for NewLeaveRequest.
type LeaveRequestInput struct {
	ID          string
	RequesterID string
	ProjectID   string
	Type        LeaveType
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

// NewLeaveRequest validates and normalizes a new request. Requests start
// pending.
func NewLeaveRequest(in LeaveRequestInput, now time.Time) (LeaveRequest, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.RequesterID = strings.TrimSpace(in.RequesterID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Type = LeaveType(strings.TrimSpace(strings.ToLower(string(in.Type))))
	in.Reason = strings.TrimSpace(in.Reason)

	if in.ID == "" || in.RequesterID == "" || in.ProjectID == "" {
		return LeaveRequest{}, ErrInvalidID
	}
	if !slices.Contains(validLeaveTypes, in.Type) {
		return LeaveRequest{}, ErrInvalidLeaveType
	}
	if in.Reason == "" {
		return LeaveRequest{}, &ValidationError{Field: "reason", Msg: "required"}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.EndDate.Before(in.StartDate) {
		return LeaveRequest{}, ErrInvalidDateRange
	}

	ts := now.UTC()
	return LeaveRequest{
		ID:          in.ID,
		RequesterID: in.RequesterID,
		ProjectID:   in.ProjectID,
		Type:        in.Type,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Reason:      in.Reason,
		Status:      LeaveStatusPending,
		Version:     1,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// ParseLeaveEvent canonicalizes an event name into a LeaveEvent.
func ParseLeaveEvent(raw string) (LeaveEvent, bool) {
	event := LeaveEvent(strings.TrimSpace(strings.ToLower(raw)))
	switch event {
	case LeaveEventApprove, LeaveEventReject, LeaveEventCancel:
		return event, true
	default:
		return "", false
	}
}

// NextLeaveStatus resolves the target state for an event without mutating
// anything.
func NextLeaveStatus(from LeaveStatus, event LeaveEvent) (LeaveStatus, error) {
	next, ok := leaveTransitions[from][event]
	if !ok {
		return "", &InvalidTransitionError{Entity: "leave_request", From: string(from), Event: string(event)}
	}
	return next, nil
}

// CheckDecision runs the payload guards for an event without mutating the
// request: reject requires a reason.
func (l *LeaveRequest) CheckDecision(event LeaveEvent, reason string) error {
	if _, err := NextLeaveStatus(l.Status, event); err != nil {
		return err
	}
	if event == LeaveEventReject && strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "rejection_reason", Msg: "required when rejecting"}
	}
	return nil
}

// ApplyTransition commits an event against the request. Approve and reject
// stamp the reviewer identity; cancellation stamps neither.
func (l *LeaveRequest) ApplyTransition(event LeaveEvent, reviewerID, reason string, now time.Time) error {
	if err := l.CheckDecision(event, reason); err != nil {
		return err
	}
	next, err := NextLeaveStatus(l.Status, event)
	if err != nil {
		return err
	}
	ts := now.UTC()
	l.Status = next
	l.UpdatedAt = ts
	switch event {
	case LeaveEventApprove:
		l.ReviewedBy = strings.TrimSpace(reviewerID)
		l.ReviewedAt = &ts
	case LeaveEventReject:
		l.ReviewedBy = strings.TrimSpace(reviewerID)
		l.ReviewedAt = &ts
		l.RejectionReason = strings.TrimSpace(reason)
	}
	return nil
}
