package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/campusflow/internal/domain"
)

// Service is the workflow facade: the single entry point callers use to
// request transitions, run timers, and read progress. It holds no entity
// state of its own; every call is one load-check-commit round trip through
// the repository.
type Service struct {
	repo   Repository
	audit  AuditSink
	gate   Gate
	idGen  IDGenerator
	clock  Clock
	logger *log.Logger
}

// NewService constructs the facade. Nil idGen, clock, and logger fall back
// to safe defaults.
func NewService(repo Repository, audit AuditSink, idGen IDGenerator, clock Clock, logger *log.Logger) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{
		repo:   repo,
		audit:  audit,
		idGen:  idGen,
		clock:  clock,
		logger: logger,
	}
}

// TransitionPayload carries the optional fields a transition event may need.
type TransitionPayload struct {
	Reason             string
	Comments           string
	PublishImmediately bool
}

// TransitionResult is the committed outcome of a transition request. Exactly
// one of Task, Approval, Leave is set, matching the entity kind.
type TransitionResult struct {
	Ref        domain.EntityRef
	From       string
	To         string
	OccurredAt time.Time
	Task       *domain.Task
	Approval   *domain.ProjectApproval
	Leave      *domain.LeaveRequest
}

// RequestTransition evaluates authorization first and business guards second,
// so an unauthorized actor never learns why a transition would otherwise be
// blocked. On success the transition, its effects, and one audit entry commit
// together; on any rejection nothing is mutated.
func (s *Service) RequestTransition(ctx context.Context, actor Actor, ref domain.EntityRef, event string, payload TransitionPayload) (TransitionResult, error) {
	switch ref.Kind {
	case domain.EntityKindTask:
		return s.transitionTask(ctx, actor, ref, event)
	case domain.EntityKindProjectApproval:
		return s.transitionApproval(ctx, actor, ref, event, payload)
	case domain.EntityKindLeaveRequest:
		return s.transitionLeave(ctx, actor, ref, event, payload)
	default:
		return TransitionResult{}, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidTransition, ref.Kind)
	}
}

// transitionTask handles the task machine plus its dependency and timer
// effects.
func (s *Service) transitionTask(ctx context.Context, actor Actor, ref domain.EntityRef, event string) (TransitionResult, error) {
	task, err := s.repo.GetTask(ctx, ref.ID)
	if err != nil {
		return TransitionResult{}, err
	}

	// Parse failures carry no current-state detail: the gate has not run yet,
	// so the caller may not be entitled to it.
	taskEvent, ok := domain.ParseTaskEvent(event)
	if !ok {
		return TransitionResult{}, s.rejectInvalid(&domain.InvalidTransitionError{
			Entity: "task", Event: event,
		})
	}

	scope, err := s.membershipScope(ctx, actor, task.ProjectID)
	if err != nil {
		return TransitionResult{}, err
	}
	action := ActionTaskStatusChange
	if taskEvent == domain.TaskEventReopen {
		action = ActionTaskReopen
	}
	if err := s.gate.Authorize(actor, action, scope); err != nil {
		return TransitionResult{}, err
	}
	// Assignee-level events must come from someone working the task; leads
	// and platform admins may drive any task.
	if action == ActionTaskStatusChange && !task.IsAssignee(actor.ID) &&
		actor.Platform != domain.PlatformRoleAdmin && !scope.Role.AtLeast(domain.RoleTeamLead) {
		return TransitionResult{}, &domain.DeniedError{Reason: domain.DeniedInsufficientRole, Action: string(action)}
	}

	if taskEvent == domain.TaskEventApprove {
		snapshot, snapErr := s.repo.LoadDependencySnapshot(ctx, task.ID)
		if snapErr != nil {
			return TransitionResult{}, snapErr
		}
		if err := snapshot.CheckCompletion(); err != nil {
			return TransitionResult{}, err
		}
	}

	now := s.clock()
	prev := task.Status
	expected := task.Version
	if err := task.ApplyTransition(taskEvent, now); err != nil {
		return TransitionResult{}, s.rejectInvalid(err)
	}
	// Leaving in_progress closes every open timer, crediting partial time up
	// to the transition instant. The credit rides on the version-checked task
	// write, and the intervals close only after that write commits, so a
	// stale-version rejection leaves both the task and the timers untouched.
	var closing []domain.TimerEvent
	if prev == domain.TaskStatusInProgress && task.Status != domain.TaskStatusInProgress {
		closing, err = s.creditOpenTimers(ctx, &task, now)
		if err != nil {
			return TransitionResult{}, err
		}
	}
	if err := s.repo.UpdateTask(ctx, task, expected); err != nil {
		return TransitionResult{}, err
	}
	task.Version = expected + 1
	for _, open := range closing {
		if err := s.repo.CloseTimer(ctx, open.ID, now); err != nil {
			return TransitionResult{}, err
		}
	}

	if err := s.recordAudit(ctx, actor, domain.EntityKindTask, task.ID, string(taskEvent), string(prev), string(task.Status), "", now); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{
		Ref:        ref,
		From:       string(prev),
		To:         string(task.Status),
		OccurredAt: now,
		Task:       &task,
	}, nil
}

// transitionApproval handles the project-approval machine.
func (s *Service) transitionApproval(ctx context.Context, actor Actor, ref domain.EntityRef, event string, payload TransitionPayload) (TransitionResult, error) {
	approval, err := s.repo.GetProjectApproval(ctx, ref.ID)
	if err != nil {
		return TransitionResult{}, err
	}

	approvalEvent, ok := domain.ParseApprovalEvent(event)
	if !ok {
		return TransitionResult{}, s.rejectInvalid(&domain.InvalidTransitionError{
			Entity: "project_approval", Event: event,
		})
	}

	action := ActionApprovalDecide
	if approvalEvent == domain.ApprovalEventSubmit || approvalEvent == domain.ApprovalEventResubmit {
		action = ActionApprovalSubmit
	}
	scope, err := s.membershipScope(ctx, actor, approval.ProjectID)
	if err != nil {
		return TransitionResult{}, err
	}
	if err := s.gate.Authorize(actor, action, scope); err != nil {
		return TransitionResult{}, err
	}

	now := s.clock()
	prev := approval.Status
	expected := approval.Version
	decision := domain.ApprovalDecision{
		Reason:             payload.Reason,
		Comments:           payload.Comments,
		PublishImmediately: payload.PublishImmediately,
	}
	if err := approval.ApplyTransition(approvalEvent, decision, now); err != nil {
		return TransitionResult{}, s.rejectInvalid(err)
	}
	if err := s.repo.UpdateProjectApproval(ctx, approval, expected); err != nil {
		return TransitionResult{}, err
	}
	approval.Version = expected + 1

	note := payload.Reason
	if note == "" {
		note = payload.Comments
	}
	if err := s.recordAudit(ctx, actor, domain.EntityKindProjectApproval, approval.ProjectID, string(approvalEvent), string(prev), string(approval.Status), note, now); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{
		Ref:        ref,
		From:       string(prev),
		To:         string(approval.Status),
		OccurredAt: now,
		Approval:   &approval,
	}, nil
}

// transitionLeave handles the leave-request machine. Cancellation belongs to
// the requester alone; decisions go through the gate with the requester as
// the subject so self-approval is always denied.
func (s *Service) transitionLeave(ctx context.Context, actor Actor, ref domain.EntityRef, event string, payload TransitionPayload) (TransitionResult, error) {
	leave, err := s.repo.GetLeaveRequest(ctx, ref.ID)
	if err != nil {
		return TransitionResult{}, err
	}

	leaveEvent, ok := domain.ParseLeaveEvent(event)
	if !ok {
		return TransitionResult{}, s.rejectInvalid(&domain.InvalidTransitionError{
			Entity: "leave_request", Event: event,
		})
	}

	switch leaveEvent {
	case domain.LeaveEventCancel:
		if actor.ID != leave.RequesterID {
			return TransitionResult{}, &domain.DeniedError{Reason: domain.DeniedInsufficientRole, Action: "leave.cancel"}
		}
	default:
		scope, scopeErr := s.membershipScope(ctx, actor, leave.ProjectID)
		if scopeErr != nil {
			return TransitionResult{}, scopeErr
		}
		scope.SubjectOwnerID = leave.RequesterID
		if err := s.gate.Authorize(actor, ActionLeaveDecide, scope); err != nil {
			return TransitionResult{}, err
		}
	}

	now := s.clock()
	prev := leave.Status
	expected := leave.Version
	if err := leave.ApplyTransition(leaveEvent, actor.ID, payload.Reason, now); err != nil {
		return TransitionResult{}, s.rejectInvalid(err)
	}
	if err := s.repo.UpdateLeaveRequest(ctx, leave, expected); err != nil {
		return TransitionResult{}, err
	}
	leave.Version = expected + 1

	if err := s.recordAudit(ctx, actor, domain.EntityKindLeaveRequest, leave.ID, string(leaveEvent), string(prev), string(leave.Status), payload.Reason, now); err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{
		Ref:        ref,
		From:       string(prev),
		To:         string(leave.Status),
		OccurredAt: now,
		Leave:      &leave,
	}, nil
}

// SubmitLeaveInput holds the requester payload for a new leave request.
type SubmitLeaveInput struct {
	ProjectID string
	Type      domain.LeaveType
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// SubmitLeave creates a pending leave request for the acting user.
func (s *Service) SubmitLeave(ctx context.Context, actor Actor, in SubmitLeaveInput) (domain.LeaveRequest, error) {
	scope, err := s.membershipScope(ctx, actor, in.ProjectID)
	if err != nil {
		return domain.LeaveRequest{}, err
	}
	if !scope.Member {
		return domain.LeaveRequest{}, &domain.DeniedError{Reason: domain.DeniedNotAMember, Action: "leave.submit"}
	}

	now := s.clock()
	req, err := domain.NewLeaveRequest(domain.LeaveRequestInput{
		ID:          s.idGen(),
		RequesterID: actor.ID,
		ProjectID:   in.ProjectID,
		Type:        in.Type,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Reason:      in.Reason,
	}, now)
	if err != nil {
		return domain.LeaveRequest{}, err
	}
	if err := s.repo.CreateLeaveRequest(ctx, req); err != nil {
		return domain.LeaveRequest{}, err
	}
	if err := s.recordAudit(ctx, actor, domain.EntityKindLeaveRequest, req.ID, "submit", "", string(req.Status), "", now); err != nil {
		return domain.LeaveRequest{}, err
	}
	return req, nil
}

// AddDependency records that a task depends on another task in the same
// project. Cycles are rejected at insertion, not at transition time.
func (s *Service) AddDependency(ctx context.Context, actor Actor, taskID, dependsOnID string) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	dep, err := s.repo.GetTask(ctx, dependsOnID)
	if err != nil {
		return err
	}
	if dep.ProjectID != task.ProjectID {
		return &domain.ValidationError{Field: "depends_on", Msg: "must belong to the same project"}
	}

	scope, err := s.membershipScope(ctx, actor, task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(actor, ActionDependencyEdit, scope); err != nil {
		return err
	}

	graph, err := s.repo.LoadDependencyGraph(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	if err := graph.AddEdge(taskID, dependsOnID); err != nil {
		return err
	}
	return s.repo.AddDependencyEdge(ctx, taskID, dependsOnID)
}

// RemoveDependency severs a depends-on edge.
func (s *Service) RemoveDependency(ctx context.Context, actor Actor, taskID, dependsOnID string) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	scope, err := s.membershipScope(ctx, actor, task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(actor, ActionDependencyEdit, scope); err != nil {
		return err
	}
	return s.repo.RemoveDependencyEdge(ctx, taskID, dependsOnID)
}

// ListDependencies returns a task's prerequisites and the tasks that depend
// on it, both sorted.
func (s *Service) ListDependencies(ctx context.Context, taskID string) (dependsOn, dependents []string, err error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	graph, err := s.repo.LoadDependencyGraph(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return graph.DependsOn(taskID), graph.Dependents(taskID), nil
}

// DeleteTask hard-deletes a task. Tasks referenced as a prerequisite of
// another task must be severed first.
func (s *Service) DeleteTask(ctx context.Context, actor Actor, taskID string) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	scope, err := s.membershipScope(ctx, actor, task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(actor, ActionTaskDelete, scope); err != nil {
		return err
	}

	dependents, err := s.repo.ListDependents(ctx, taskID)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		return fmt.Errorf("%w: %d task(s) depend on %s", domain.ErrHasDependents, len(dependents), taskID)
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	return s.recordAudit(ctx, actor, domain.EntityKindTask, taskID, "delete", string(task.Status), "", "", s.clock())
}

// ListAuditTrail returns the most recent audit entries for an entity.
func (s *Service) ListAuditTrail(ctx context.Context, ref domain.EntityRef, limit int) ([]domain.AuditEvent, error) {
	return s.audit.ListByEntity(ctx, ref.Kind, ref.ID, limit)
}

// membershipScope loads the actor's role within a project.
func (s *Service) membershipScope(ctx context.Context, actor Actor, projectID string) (Scope, error) {
	role, member, err := s.repo.GetMembershipRole(ctx, actor.ID, projectID)
	if err != nil {
		return Scope{}, err
	}
	return Scope{ProjectID: projectID, Role: role, Member: member}, nil
}

// recordAudit appends one audit entry for a committed transition.
func (s *Service) recordAudit(ctx context.Context, actor Actor, kind domain.EntityKind, entityID, action, from, to, note string, occurredAt time.Time) error {
	return s.audit.Record(ctx, domain.AuditEvent{
		ActorID:    actor.ID,
		EntityKind: kind,
		EntityID:   entityID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		OccurredAt: occurredAt,
	})
}

// rejectInvalid logs invalid-transition rejections as programmer-error
// signals before returning them; all other rejections pass through silently.
func (s *Service) rejectInvalid(err error) error {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		s.logger.Warn("invalid transition requested",
			"entity", invalid.Entity, "from", invalid.From, "event", invalid.Event)
	}
	return err
}
