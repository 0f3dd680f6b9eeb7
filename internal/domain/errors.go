package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for rejections and validation failures. Structured rejection
// types below unwrap to these so callers can dispatch with errors.Is and pull
// payloads with errors.As.
var (
	ErrDenied                 = errors.New("denied")
	ErrDependencyBlocked      = errors.New("dependency blocked")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrValidationFailed       = errors.New("validation failed")
	ErrTaskNotActive          = errors.New("task not active")
	ErrTimerAlreadyRunning    = errors.New("timer already running")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrCycleDetected          = errors.New("dependency cycle detected")
	ErrHasDependents          = errors.New("task has dependents")

	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidEffort    = errors.New("invalid effort")
	ErrInvalidLeaveType = errors.New("invalid leave type")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrEffortLocked     = errors.New("logged effort is locked")
)

// DeniedReason is a machine-readable authorization denial code.
type DeniedReason string

// Denial reason codes.
const (
	DeniedInsufficientRole    DeniedReason = "insufficient_role"
	DeniedSelfActionForbidden DeniedReason = "self_action_forbidden"
	DeniedNotAMember          DeniedReason = "not_a_member"
)

// DeniedError reports an authorization rejection with its reason code.
type DeniedError struct {
	Reason DeniedReason
	Action string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied: %s (%s)", e.Action, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// DependencyBlockedError reports the prerequisite tasks that are not yet done.
type DependencyBlockedError struct {
	Blocking []string
}

func (e *DependencyBlockedError) Error() string {
	return fmt.Sprintf("dependency blocked by [%s]", strings.Join(e.Blocking, ", "))
}

func (e *DependencyBlockedError) Unwrap() error { return ErrDependencyBlocked }

// InvalidTransitionError reports an event that is not defined for the current state.
type InvalidTransitionError struct {
	Entity string
	From   string
	Event  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s %q does not accept %q", e.Entity, e.From, e.Event)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports a missing or malformed field on a transition payload.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
