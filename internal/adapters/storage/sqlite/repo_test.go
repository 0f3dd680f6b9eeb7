package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/campusflow/internal/app"
	"github.com/hylla/campusflow/internal/domain"
	_ "modernc.org/sqlite"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "campusflow.db")
	repo, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepository_TaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)
	task, err := domain.NewTask(domain.TaskInput{
		ID:              "t1",
		ProjectID:       "p1",
		Title:           "Collect survey data",
		Priority:        domain.PriorityHigh,
		EstimatedEffort: 8,
		DueAt:           &due,
		Assignees:       []string{"u1", "u2"},
		Subtasks:        []domain.Subtask{{Title: "draft questions"}, {Title: "pilot run", Done: true}},
	}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	loaded, err := repo.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if loaded.Title != "Collect survey data" || loaded.Status != domain.TaskStatusTodo {
		t.Fatalf("unexpected task %+v", loaded)
	}
	if len(loaded.Assignees) != 2 || len(loaded.Subtasks) != 2 {
		t.Fatalf("unexpected collections %#v %#v", loaded.Assignees, loaded.Subtasks)
	}
	if loaded.DueAt == nil || !loaded.DueAt.Equal(due) {
		t.Fatalf("unexpected due_at %v", loaded.DueAt)
	}
	if loaded.Version != 1 {
		t.Fatalf("version = %d, want 1", loaded.Version)
	}

	tasks, err := repo.ListTasks(ctx, "p1")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	if _, err := repo.GetTask(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_UpdateTaskVersionGuard(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	task, err := domain.NewTask(domain.TaskInput{ID: "t1", ProjectID: "p1", Title: "x"}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	task.Status = domain.TaskStatusInProgress
	if err := repo.UpdateTask(ctx, task, 1); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	loaded, err := repo.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if loaded.Version != 2 || loaded.Status != domain.TaskStatusInProgress {
		t.Fatalf("unexpected task %+v", loaded)
	}

	// Writing with the stale version fails without touching the row.
	task.Status = domain.TaskStatusReview
	if err := repo.UpdateTask(ctx, task, 1); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	loaded, _ = repo.GetTask(ctx, "t1")
	if loaded.Status != domain.TaskStatusInProgress {
		t.Fatalf("stale write mutated the row: %s", loaded.Status)
	}

	task.ID = "missing"
	if err := repo.UpdateTask(ctx, task, 1); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}

func TestRepository_Memberships(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if _, found, err := repo.GetMembershipRole(ctx, "u1", "p1"); err != nil || found {
		t.Fatalf("GetMembershipRole() = (found=%v, err=%v), want not found", found, err)
	}
	if err := repo.UpsertMembership(ctx, "p1", "u1", domain.RoleTeamMember); err != nil {
		t.Fatalf("UpsertMembership() error = %v", err)
	}
	role, found, err := repo.GetMembershipRole(ctx, "u1", "p1")
	if err != nil || !found || role != domain.RoleTeamMember {
		t.Fatalf("GetMembershipRole() = (%q, %v, %v)", role, found, err)
	}

	// Upsert replaces the role in place.
	if err := repo.UpsertMembership(ctx, "p1", "u1", domain.RoleTeamLead); err != nil {
		t.Fatalf("UpsertMembership() replace error = %v", err)
	}
	role, _, _ = repo.GetMembershipRole(ctx, "u1", "p1")
	if role != domain.RoleTeamLead {
		t.Fatalf("role = %q, want team_lead", role)
	}
}

func TestRepository_DependencyEdges(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		task, err := domain.NewTask(domain.TaskInput{ID: id, ProjectID: "p1", Title: id}, now)
		if err != nil {
			t.Fatalf("NewTask(%s) error = %v", id, err)
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) error = %v", id, err)
		}
	}

	if err := repo.AddDependencyEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("AddDependencyEdge() error = %v", err)
	}
	if err := repo.AddDependencyEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("duplicate AddDependencyEdge() error = %v", err)
	}
	if err := repo.AddDependencyEdge(ctx, "a", "c"); err != nil {
		t.Fatalf("AddDependencyEdge() error = %v", err)
	}

	snapshot, err := repo.LoadDependencySnapshot(ctx, "a")
	if err != nil {
		t.Fatalf("LoadDependencySnapshot() error = %v", err)
	}
	if len(snapshot) != 2 || snapshot["b"] != domain.TaskStatusTodo {
		t.Fatalf("unexpected snapshot %#v", snapshot)
	}

	graph, err := repo.LoadDependencyGraph(ctx, "p1")
	if err != nil {
		t.Fatalf("LoadDependencyGraph() error = %v", err)
	}
	if deps := graph.DependsOn("a"); len(deps) != 2 {
		t.Fatalf("unexpected deps %#v", deps)
	}

	dependents, err := repo.ListDependents(ctx, "b")
	if err != nil {
		t.Fatalf("ListDependents() error = %v", err)
	}
	if len(dependents) != 1 || dependents[0] != "a" {
		t.Fatalf("unexpected dependents %#v", dependents)
	}

	if err := repo.RemoveDependencyEdge(ctx, "a", "b"); err != nil {
		t.Fatalf("RemoveDependencyEdge() error = %v", err)
	}
	snapshot, _ = repo.LoadDependencySnapshot(ctx, "a")
	if len(snapshot) != 1 {
		t.Fatalf("edge not removed: %#v", snapshot)
	}
}

func TestRepository_TimerOpenUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	task, err := domain.NewTask(domain.TaskInput{ID: "t1", ProjectID: "p1", Title: "x"}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	first, err := domain.NewTimerEvent("e1", "t1", "u1", now)
	if err != nil {
		t.Fatalf("NewTimerEvent() error = %v", err)
	}
	if err := repo.OpenTimer(ctx, first); err != nil {
		t.Fatalf("OpenTimer() error = %v", err)
	}

	second, _ := domain.NewTimerEvent("e2", "t1", "u1", now.Add(time.Minute))
	if err := repo.OpenTimer(ctx, second); !errors.Is(err, domain.ErrTimerAlreadyRunning) {
		t.Fatalf("expected ErrTimerAlreadyRunning, got %v", err)
	}
	// A different user is unaffected.
	other, _ := domain.NewTimerEvent("e3", "t1", "u2", now)
	if err := repo.OpenTimer(ctx, other); err != nil {
		t.Fatalf("OpenTimer() other user error = %v", err)
	}

	event, found, err := repo.GetOpenTimer(ctx, "t1", "u1")
	if err != nil || !found || event.ID != "e1" {
		t.Fatalf("GetOpenTimer() = (%+v, %v, %v)", event, found, err)
	}

	stoppedAt := now.Add(30 * time.Minute)
	if err := repo.CloseTimer(ctx, "e1", stoppedAt); err != nil {
		t.Fatalf("CloseTimer() error = %v", err)
	}
	if _, found, _ := repo.GetOpenTimer(ctx, "t1", "u1"); found {
		t.Fatal("timer still open after close")
	}
	// Closing a closed timer finds no open row.
	if err := repo.CloseTimer(ctx, "e1", stoppedAt); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double close, got %v", err)
	}

	// After closing, the pair may open a fresh interval.
	again, _ := domain.NewTimerEvent("e4", "t1", "u1", stoppedAt)
	if err := repo.OpenTimer(ctx, again); err != nil {
		t.Fatalf("reopen OpenTimer() error = %v", err)
	}

	events, err := repo.ListTimerEvents(ctx, "t1")
	if err != nil {
		t.Fatalf("ListTimerEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	open, err := repo.ListOpenTimers(ctx, "t1")
	if err != nil {
		t.Fatalf("ListOpenTimers() error = %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open events, got %d", len(open))
	}
}

func TestRepository_ApprovalAndLeaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	approval, err := domain.NewProjectApproval("p1", now)
	if err != nil {
		t.Fatalf("NewProjectApproval() error = %v", err)
	}
	if err := repo.CreateProjectApproval(ctx, approval); err != nil {
		t.Fatalf("CreateProjectApproval() error = %v", err)
	}
	if err := approval.ApplyTransition(domain.ApprovalEventSubmit, domain.ApprovalDecision{}, now); err != nil {
		t.Fatalf("ApplyTransition() error = %v", err)
	}
	if err := repo.UpdateProjectApproval(ctx, approval, 1); err != nil {
		t.Fatalf("UpdateProjectApproval() error = %v", err)
	}
	loadedApproval, err := repo.GetProjectApproval(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProjectApproval() error = %v", err)
	}
	if loadedApproval.Status != domain.ApprovalStatusUnderReview || loadedApproval.Version != 2 {
		t.Fatalf("unexpected approval %+v", loadedApproval)
	}

	req, err := domain.NewLeaveRequest(domain.LeaveRequestInput{
		ID:          "l1",
		RequesterID: "u1",
		ProjectID:   "p1",
		Type:        domain.LeaveTypeExam,
		StartDate:   now.AddDate(0, 0, 7),
		EndDate:     now.AddDate(0, 0, 9),
		Reason:      "finals week",
	}, now)
	if err != nil {
		t.Fatalf("NewLeaveRequest() error = %v", err)
	}
	if err := repo.CreateLeaveRequest(ctx, req); err != nil {
		t.Fatalf("CreateLeaveRequest() error = %v", err)
	}
	if err := req.ApplyTransition(domain.LeaveEventApprove, "pm-1", "", now); err != nil {
		t.Fatalf("ApplyTransition() error = %v", err)
	}
	if err := repo.UpdateLeaveRequest(ctx, req, 1); err != nil {
		t.Fatalf("UpdateLeaveRequest() error = %v", err)
	}
	loadedLeave, err := repo.GetLeaveRequest(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLeaveRequest() error = %v", err)
	}
	if loadedLeave.Status != domain.LeaveStatusApproved || loadedLeave.ReviewedBy != "pm-1" {
		t.Fatalf("unexpected leave %+v", loadedLeave)
	}
	if loadedLeave.ReviewedAt == nil || !loadedLeave.ReviewedAt.Equal(now) {
		t.Fatalf("unexpected reviewed_at %v", loadedLeave.ReviewedAt)
	}
}

func TestRepository_AuditTrail(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"start", "submit_for_review", "approve"} {
		err := repo.Record(ctx, domain.AuditEvent{
			ActorID:    "u1",
			EntityKind: domain.EntityKindTask,
			EntityID:   "t1",
			Action:     action,
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record(%s) error = %v", action, err)
		}
	}
	if err := repo.Record(ctx, domain.AuditEvent{
		ActorID:    "u2",
		EntityKind: domain.EntityKindTask,
		EntityID:   "t2",
		Action:     "start",
		OccurredAt: now,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, err := repo.ListByEntity(ctx, domain.EntityKindTask, "t1", 0)
	if err != nil {
		t.Fatalf("ListByEntity() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Action != "start" || events[2].Action != "approve" {
		t.Fatalf("unexpected order %#v", events)
	}

	// Limit keeps the most recent entries.
	events, err = repo.ListByEntity(ctx, domain.EntityKindTask, "t1", 2)
	if err != nil {
		t.Fatalf("ListByEntity() limited error = %v", err)
	}
	if len(events) != 2 || events[0].Action != "submit_for_review" {
		t.Fatalf("unexpected limited trail %#v", events)
	}
}
