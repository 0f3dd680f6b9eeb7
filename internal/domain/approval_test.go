package domain

import (
	"errors"
	"testing"
	"time"
)

func TestApprovalHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	approval, err := NewProjectApproval("p1", now)
	if err != nil {
		t.Fatalf("NewProjectApproval() error = %v", err)
	}

	if err := approval.ApplyTransition(ApprovalEventSubmit, ApprovalDecision{}, now); err != nil {
		t.Fatalf("submit error = %v", err)
	}
	if approval.Status != ApprovalStatusUnderReview {
		t.Fatalf("expected under_review, got %q", approval.Status)
	}

	at := now.Add(time.Hour)
	err = approval.ApplyTransition(ApprovalEventApprove, ApprovalDecision{PublishImmediately: true}, at)
	if err != nil {
		t.Fatalf("approve error = %v", err)
	}
	if approval.Status != ApprovalStatusApproved {
		t.Fatalf("expected approved, got %q", approval.Status)
	}
	if approval.ApprovedAt == nil || !approval.ApprovedAt.Equal(at) {
		t.Fatalf("expected approved_at %v, got %v", at, approval.ApprovedAt)
	}
	if !approval.Published {
		t.Fatal("expected publish flag set")
	}
}

func TestApprovalRejectRequiresReason(t *testing.T) {
	now := time.Now()
	approval, _ := NewProjectApproval("p1", now)
	if err := approval.ApplyTransition(ApprovalEventSubmit, ApprovalDecision{}, now); err != nil {
		t.Fatalf("submit error = %v", err)
	}

	err := approval.ApplyTransition(ApprovalEventReject, ApprovalDecision{Reason: "  "}, now)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if approval.Status != ApprovalStatusUnderReview {
		t.Fatalf("status mutated on rejected guard: %q", approval.Status)
	}

	err = approval.ApplyTransition(ApprovalEventReject, ApprovalDecision{Reason: "scope unclear"}, now)
	if err != nil {
		t.Fatalf("reject error = %v", err)
	}
	if approval.Status != ApprovalStatusRejected || approval.RejectionReason != "scope unclear" {
		t.Fatalf("unexpected state %q reason %q", approval.Status, approval.RejectionReason)
	}

	// Rejected is terminal.
	err = approval.ApplyTransition(ApprovalEventApprove, ApprovalDecision{}, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApprovalRequestChangesLoop(t *testing.T) {
	now := time.Now()
	approval, _ := NewProjectApproval("p1", now)
	_ = approval.ApplyTransition(ApprovalEventSubmit, ApprovalDecision{}, now)

	err := approval.ApplyTransition(ApprovalEventRequestChanges, ApprovalDecision{}, now)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for empty comments, got %v", err)
	}
	err = approval.ApplyTransition(ApprovalEventRequestChanges, ApprovalDecision{Comments: "tighten abstract"}, now)
	if err != nil {
		t.Fatalf("request_changes error = %v", err)
	}
	if approval.Status != ApprovalStatusRequireChanges || approval.ReviewComments != "tighten abstract" {
		t.Fatalf("unexpected state %q comments %q", approval.Status, approval.ReviewComments)
	}
	if err := approval.ApplyTransition(ApprovalEventResubmit, ApprovalDecision{}, now); err != nil {
		t.Fatalf("resubmit error = %v", err)
	}
	if approval.Status != ApprovalStatusUnderReview {
		t.Fatalf("expected under_review after resubmit, got %q", approval.Status)
	}
}

func TestApprovedAcceptsOnlyRequestChanges(t *testing.T) {
	now := time.Now()
	approval, _ := NewProjectApproval("p1", now)
	_ = approval.ApplyTransition(ApprovalEventSubmit, ApprovalDecision{}, now)
	_ = approval.ApplyTransition(ApprovalEventApprove, ApprovalDecision{PublishImmediately: true}, now)

	for _, event := range []ApprovalEvent{ApprovalEventSubmit, ApprovalEventApprove, ApprovalEventReject, ApprovalEventResubmit} {
		err := approval.ApplyTransition(event, ApprovalDecision{Reason: "r", Comments: "c"}, now)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("event %s from approved expected ErrInvalidTransition, got %v", event, err)
		}
	}

	err := approval.ApplyTransition(ApprovalEventRequestChanges, ApprovalDecision{Comments: "re-review"}, now)
	if err != nil {
		t.Fatalf("request_changes from approved error = %v", err)
	}
	if approval.Status != ApprovalStatusRequireChanges {
		t.Fatalf("expected require_changes, got %q", approval.Status)
	}
	if approval.Published {
		t.Fatal("expected publication withdrawn on re-review")
	}
}
