package app

import (
	"context"
	"time"

	"github.com/hylla/campusflow/internal/domain"
)

// Progress summarizes time spent against the estimate for one task.
type Progress struct {
	LoggedHours    float64
	EstimatedHours float64
	PercentOver    float64
}

// StartTimer opens a work timer for the acting user on a task. The task must
// currently be in progress, and at most one timer per (task, user) may be
// open; the storage constraint backs the in-process check.
func (s *Service) StartTimer(ctx context.Context, actor Actor, taskID string) (domain.TimerEvent, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.TimerEvent{}, err
	}
	scope, err := s.membershipScope(ctx, actor, task.ProjectID)
	if err != nil {
		return domain.TimerEvent{}, err
	}
	if err := s.gate.Authorize(actor, ActionTaskStatusChange, scope); err != nil {
		return domain.TimerEvent{}, err
	}
	if task.Status != domain.TaskStatusInProgress {
		return domain.TimerEvent{}, domain.ErrTaskNotActive
	}
	if _, open, err := s.repo.GetOpenTimer(ctx, taskID, actor.ID); err != nil {
		return domain.TimerEvent{}, err
	} else if open {
		return domain.TimerEvent{}, domain.ErrTimerAlreadyRunning
	}

	event, err := domain.NewTimerEvent(s.idGen(), taskID, actor.ID, s.clock())
	if err != nil {
		return domain.TimerEvent{}, err
	}
	if err := s.repo.OpenTimer(ctx, event); err != nil {
		return domain.TimerEvent{}, err
	}
	return event, nil
}

// StopTimer closes the actor's open timer on a task, credits the elapsed
// time to the task's logged effort, and returns the duration in minutes.
// Stopping with no open timer is a no-op success so retried stop calls are
// safe. The credit commits through the version-checked task write before the
// interval closes, so a stale write leaves the timer running for the retry.
func (s *Service) StopTimer(ctx context.Context, actor Actor, taskID string) (float64, error) {
	event, open, err := s.repo.GetOpenTimer(ctx, taskID, actor.ID)
	if err != nil {
		return 0, err
	}
	if !open {
		return 0, nil
	}

	now := s.clock()
	elapsed := event.Elapsed(now)
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	expected := task.Version
	if err := task.CreditEffort(elapsed.Hours(), now); err != nil {
		return 0, err
	}
	if err := s.repo.UpdateTask(ctx, task, expected); err != nil {
		return 0, err
	}
	if err := s.repo.CloseTimer(ctx, event.ID, now); err != nil {
		return 0, err
	}
	return elapsed.Minutes(), nil
}

// TotalLogged sums every timer interval for a task in hours. Open intervals
// count their elapsed time up to now, so totals update live without periodic
// writes.
func (s *Service) TotalLogged(ctx context.Context, taskID string) (float64, error) {
	events, err := s.repo.ListTimerEvents(ctx, taskID)
	if err != nil {
		return 0, err
	}
	now := s.clock()
	var total time.Duration
	for _, event := range events {
		total += event.Elapsed(now)
	}
	return total.Hours(), nil
}

// ComputeProgress derives burn-down numbers for a task. PercentOver is zero
// until logged time exceeds a non-zero estimate.
func (s *Service) ComputeProgress(ctx context.Context, taskID string) (Progress, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return Progress{}, err
	}
	logged, err := s.TotalLogged(ctx, taskID)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{
		LoggedHours:    logged,
		EstimatedHours: task.EstimatedEffort,
	}
	if task.EstimatedEffort > 0 && logged > task.EstimatedEffort {
		p.PercentOver = (logged - task.EstimatedEffort) / task.EstimatedEffort * 100
	}
	return p, nil
}

// creditOpenTimers credits every open timer's partial time to the task's
// logged effort and returns the intervals to close once the task write
// commits. Called when a task leaves in_progress; the caller must not close
// the returned events before the versioned task write succeeds.
func (s *Service) creditOpenTimers(ctx context.Context, task *domain.Task, now time.Time) ([]domain.TimerEvent, error) {
	open, err := s.repo.ListOpenTimers(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	for _, event := range open {
		if err := task.CreditEffort(event.Elapsed(now).Hours(), now); err != nil {
			return nil, err
		}
	}
	return open, nil
}
