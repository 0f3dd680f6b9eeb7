package domain

import (
	"errors"
	"testing"
	"time"
)

func newPendingLeave(t *testing.T, now time.Time) LeaveRequest {
	t.Helper()
	req, err := NewLeaveRequest(LeaveRequestInput{
		ID:          "l1",
		RequesterID: "u1",
		ProjectID:   "p1",
		Type:        LeaveTypeExam,
		StartDate:   now.AddDate(0, 0, 7),
		EndDate:     now.AddDate(0, 0, 9),
		Reason:      "finals week",
	}, now)
	if err != nil {
		t.Fatalf("NewLeaveRequest() error = %v", err)
	}
	return req
}

func TestLeaveApproveStampsReviewer(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	req := newPendingLeave(t, now)

	at := now.Add(time.Hour)
	if err := req.ApplyTransition(LeaveEventApprove, "mgr-1", "", at); err != nil {
		t.Fatalf("approve error = %v", err)
	}
	if req.Status != LeaveStatusApproved {
		t.Fatalf("expected approved, got %q", req.Status)
	}
	if req.ReviewedBy != "mgr-1" {
		t.Fatalf("unexpected reviewer %q", req.ReviewedBy)
	}
	if req.ReviewedAt == nil || !req.ReviewedAt.Equal(at) {
		t.Fatalf("expected reviewed_at %v, got %v", at, req.ReviewedAt)
	}
}

func TestLeaveRejectRequiresReason(t *testing.T) {
	now := time.Now()
	req := newPendingLeave(t, now)

	err := req.ApplyTransition(LeaveEventReject, "mgr-1", "", now)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if req.Status != LeaveStatusPending {
		t.Fatalf("status mutated on rejected guard: %q", req.Status)
	}

	if err := req.ApplyTransition(LeaveEventReject, "mgr-1", "coverage gap", now); err != nil {
		t.Fatalf("reject error = %v", err)
	}
	if req.Status != LeaveStatusRejected || req.RejectionReason != "coverage gap" {
		t.Fatalf("unexpected state %q reason %q", req.Status, req.RejectionReason)
	}
}

func TestLeaveTerminalStates(t *testing.T) {
	now := time.Now()
	for _, first := range []LeaveEvent{LeaveEventApprove, LeaveEventCancel} {
		req := newPendingLeave(t, now)
		if err := req.ApplyTransition(first, "mgr-1", "", now); err != nil {
			t.Fatalf("%s error = %v", first, err)
		}
		for _, event := range []LeaveEvent{LeaveEventApprove, LeaveEventReject, LeaveEventCancel} {
			err := req.ApplyTransition(event, "mgr-1", "r", now)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s after %s expected ErrInvalidTransition, got %v", event, first, err)
			}
		}
	}
}

func TestLeaveCancelStampsNoReviewer(t *testing.T) {
	now := time.Now()
	req := newPendingLeave(t, now)
	if err := req.ApplyTransition(LeaveEventCancel, "", "", now); err != nil {
		t.Fatalf("cancel error = %v", err)
	}
	if req.Status != LeaveStatusCancelled {
		t.Fatalf("expected cancelled, got %q", req.Status)
	}
	if req.ReviewedBy != "" || req.ReviewedAt != nil {
		t.Fatalf("cancel must not stamp reviewer: %q %v", req.ReviewedBy, req.ReviewedAt)
	}
}
