package domain

import "strings"

// MembershipRole identifies an actor's role within a project.
type MembershipRole string

// Membership role values, least privileged first.
const (
	RoleViewer         MembershipRole = "viewer"
	RoleTeamMember     MembershipRole = "team_member"
	RoleTeamLead       MembershipRole = "team_lead"
	RoleHR             MembershipRole = "hr"
	RoleProjectManager MembershipRole = "project_manager"
	RoleOwner          MembershipRole = "owner"
)

// membershipRoleRank orders membership roles by privilege. HR sits at
// team-member rank; its extra permissions are lateral grants in the
// authorization rules, not a place in the ladder.
var membershipRoleRank = map[MembershipRole]int{
	RoleViewer:         0,
	RoleTeamMember:     1,
	RoleHR:             1,
	RoleTeamLead:       2,
	RoleProjectManager: 3,
	RoleOwner:          4,
}

// NormalizeMembershipRole canonicalizes a membership-role value.
func NormalizeMembershipRole(role MembershipRole) MembershipRole {
	return MembershipRole(strings.TrimSpace(strings.ToLower(string(role))))
}

// IsValidMembershipRole reports whether a membership-role value is supported.
func IsValidMembershipRole(role MembershipRole) bool {
	_, ok := membershipRoleRank[NormalizeMembershipRole(role)]
	return ok
}

// AtLeast reports whether the role is at least as privileged as required.
func (r MembershipRole) AtLeast(required MembershipRole) bool {
	rank, ok := membershipRoleRank[NormalizeMembershipRole(r)]
	if !ok {
		return false
	}
	requiredRank, ok := membershipRoleRank[NormalizeMembershipRole(required)]
	if !ok {
		return false
	}
	return rank >= requiredRank
}

// PlatformRole identifies a platform-wide administrative role. The empty
// value means the actor holds no platform role.
type PlatformRole string

// Platform role values.
const (
	PlatformRoleNone            PlatformRole = ""
	PlatformRoleAdmin           PlatformRole = "platform_admin"
	PlatformRoleUniversityAdmin PlatformRole = "university_admin"
)

// NormalizePlatformRole canonicalizes a platform-role value.
func NormalizePlatformRole(role PlatformRole) PlatformRole {
	return PlatformRole(strings.TrimSpace(strings.ToLower(string(role))))
}

// IsValidPlatformRole reports whether a platform-role value is supported.
func IsValidPlatformRole(role PlatformRole) bool {
	switch NormalizePlatformRole(role) {
	case PlatformRoleNone, PlatformRoleAdmin, PlatformRoleUniversityAdmin:
		return true
	default:
		return false
	}
}
