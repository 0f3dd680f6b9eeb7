package app

import (
	"strings"

	"github.com/hylla/campusflow/internal/domain"
)

// Action identifies an operation subject to role gating.
type Action string

// Gated actions.
const (
	ActionTaskStatusChange Action = "task.status_change"
	ActionTaskReopen       Action = "task.reopen"
	ActionTaskReassign     Action = "task.reassign"
	ActionTaskDelete       Action = "task.delete"
	ActionDependencyEdit   Action = "task.dependency_edit"
	ActionMemberManage     Action = "project.member_manage"
	ActionLeaveDecide      Action = "leave.decide"
	ActionApprovalSubmit   Action = "approval.submit"
	ActionApprovalDecide   Action = "approval.decide"
)

// Actor identifies the caller requesting an operation.
type Actor struct {
	ID       string
	Platform domain.PlatformRole
}

// Scope is the authorization context an actor holds for a request: the
// project, the actor's membership there, and (for decisions about another
// user's request) who that request belongs to.
type Scope struct {
	ProjectID      string
	Role           domain.MembershipRole
	Member         bool
	SubjectOwnerID string
}

// authzRule describes the minimum grant for one action.
type authzRule struct {
	minRole      domain.MembershipRole
	allowHR      bool
	platformOnly bool
	allowUniAdm  bool
	forbidSelf   bool
}

// actionRules is the action-to-minimum-role table. HR grants are lateral
// (allowHR); university admins satisfy only the rules that name them.
var actionRules = map[Action]authzRule{
	ActionTaskStatusChange: {minRole: domain.RoleTeamMember},
	ActionTaskReopen:       {minRole: domain.RoleTeamLead},
	ActionTaskReassign:     {minRole: domain.RoleTeamLead},
	ActionTaskDelete:       {minRole: domain.RoleTeamLead},
	ActionDependencyEdit:   {minRole: domain.RoleTeamLead},
	ActionMemberManage:     {minRole: domain.RoleProjectManager, allowHR: true},
	ActionLeaveDecide:      {minRole: domain.RoleProjectManager, allowHR: true, allowUniAdm: true, forbidSelf: true},
	ActionApprovalSubmit:   {minRole: domain.RoleProjectManager},
	ActionApprovalDecide:   {platformOnly: true},
}

// Gate decides allow/deny for role-gated actions. Denials always carry a
// machine-readable reason code, never a bare boolean.
type Gate struct{}

// Authorize applies the rule for the action. Self-decisions are rejected
// before any role check so no role, platform admin included, can approve its
// own request.
func (Gate) Authorize(actor Actor, action Action, scope Scope) error {
	rule, ok := actionRules[action]
	if !ok {
		return &domain.DeniedError{Reason: domain.DeniedInsufficientRole, Action: string(action)}
	}

	if rule.forbidSelf && scope.SubjectOwnerID != "" && strings.TrimSpace(actor.ID) == scope.SubjectOwnerID {
		return &domain.DeniedError{Reason: domain.DeniedSelfActionForbidden, Action: string(action)}
	}

	platform := domain.NormalizePlatformRole(actor.Platform)
	if platform == domain.PlatformRoleAdmin {
		return nil
	}
	if rule.platformOnly {
		if platform == domain.PlatformRoleUniversityAdmin {
			return nil
		}
		return &domain.DeniedError{Reason: domain.DeniedInsufficientRole, Action: string(action)}
	}
	if rule.allowUniAdm && platform == domain.PlatformRoleUniversityAdmin {
		return nil
	}

	if !scope.Member {
		return &domain.DeniedError{Reason: domain.DeniedNotAMember, Action: string(action)}
	}
	role := domain.NormalizeMembershipRole(scope.Role)
	if rule.allowHR && role == domain.RoleHR {
		return nil
	}
	if role.AtLeast(rule.minRole) {
		return nil
	}
	return &domain.DeniedError{Reason: domain.DeniedInsufficientRole, Action: string(action)}
}
