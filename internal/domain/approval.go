package domain

import (
	"strings"
	"time"
)

// ApprovalStatus identifies a project-approval review state.
type ApprovalStatus string

// Project-approval states.
const (
	ApprovalStatusPending        ApprovalStatus = "pending"
	ApprovalStatusUnderReview    ApprovalStatus = "under_review"
	ApprovalStatusApproved       ApprovalStatus = "approved"
	ApprovalStatusRejected       ApprovalStatus = "rejected"
	ApprovalStatusRequireChanges ApprovalStatus = "require_changes"
)

// ApprovalEvent identifies a requested project-approval transition.
type ApprovalEvent string

// Project-approval transition events.
const (
	ApprovalEventSubmit         ApprovalEvent = "submit"
	ApprovalEventApprove        ApprovalEvent = "approve"
	ApprovalEventReject         ApprovalEvent = "reject"
	ApprovalEventRequestChanges ApprovalEvent = "request_changes"
	ApprovalEventResubmit       ApprovalEvent = "resubmit"
)

// approvalTransitions is the project-approval workflow table. Rejected is
// terminal; approved accepts only a re-review request.
var approvalTransitions = map[ApprovalStatus]map[ApprovalEvent]ApprovalStatus{
	ApprovalStatusPending: {
		ApprovalEventSubmit: ApprovalStatusUnderReview,
	},
	ApprovalStatusUnderReview: {
		ApprovalEventApprove:        ApprovalStatusApproved,
		ApprovalEventReject:         ApprovalStatusRejected,
		ApprovalEventRequestChanges: ApprovalStatusRequireChanges,
	},
	ApprovalStatusRequireChanges: {
		ApprovalEventResubmit: ApprovalStatusUnderReview,
	},
	ApprovalStatusApproved: {
		ApprovalEventRequestChanges: ApprovalStatusRequireChanges,
	},
}

// ProjectApproval tracks the review state of one project, created pending
// alongside the project itself.
type ProjectApproval struct {
	ProjectID       string
	Status          ApprovalStatus
	RejectionReason string
	ReviewComments  string
	ApprovedAt      *time.Time
	Published       bool
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ApprovalDecision carries the reviewer payload for an approval transition.
type ApprovalDecision struct {
	Reason             string
	Comments           string
	PublishImmediately bool
}

// NewProjectApproval creates the pending review record for a project.
func NewProjectApproval(projectID string, now time.Time) (ProjectApproval, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ProjectApproval{}, ErrInvalidID
	}
	ts := now.UTC()
	return ProjectApproval{
		ProjectID: projectID,
		Status:    ApprovalStatusPending,
		Version:   1,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// ParseApprovalEvent canonicalizes an event name into an ApprovalEvent.
func ParseApprovalEvent(raw string) (ApprovalEvent, bool) {
	event := ApprovalEvent(strings.TrimSpace(strings.ToLower(raw)))
	switch event {
	case ApprovalEventSubmit, ApprovalEventApprove, ApprovalEventReject,
		ApprovalEventRequestChanges, ApprovalEventResubmit:
		return event, true
	default:
		return "", false
	}
}

// NextApprovalStatus resolves the target state for an event without mutating
// anything.
func NextApprovalStatus(from ApprovalStatus, event ApprovalEvent) (ApprovalStatus, error) {
	next, ok := approvalTransitions[from][event]
	if !ok {
		return "", &InvalidTransitionError{Entity: "project_approval", From: string(from), Event: string(event)}
	}
	return next, nil
}

// CheckDecision runs the payload guards for an event without mutating the
// approval: reject requires a reason, request-changes requires comments.
func (a *ProjectApproval) CheckDecision(event ApprovalEvent, decision ApprovalDecision) error {
	if _, err := NextApprovalStatus(a.Status, event); err != nil {
		return err
	}
	switch event {
	case ApprovalEventReject:
		if strings.TrimSpace(decision.Reason) == "" {
			return &ValidationError{Field: "rejection_reason", Msg: "required when rejecting"}
		}
	case ApprovalEventRequestChanges:
		if strings.TrimSpace(decision.Comments) == "" {
			return &ValidationError{Field: "review_comments", Msg: "required when requesting changes"}
		}
	}
	return nil
}

// ApplyTransition commits an event against the approval and runs its effects.
// Approve stamps approved_at and the publish flag; a later request-changes
// withdraws publication but keeps the historical approval stamp.
func (a *ProjectApproval) ApplyTransition(event ApprovalEvent, decision ApprovalDecision, now time.Time) error {
	if err := a.CheckDecision(event, decision); err != nil {
		return err
	}
	next, err := NextApprovalStatus(a.Status, event)
	if err != nil {
		return err
	}
	ts := now.UTC()
	a.Status = next
	a.UpdatedAt = ts
	switch event {
	case ApprovalEventApprove:
		a.ApprovedAt = &ts
		a.Published = decision.PublishImmediately
	case ApprovalEventReject:
		a.RejectionReason = strings.TrimSpace(decision.Reason)
	case ApprovalEventRequestChanges:
		a.ReviewComments = strings.TrimSpace(decision.Comments)
		a.Published = false
	}
	return nil
}
