package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceRole is a member's role within one workspace.
type WorkspaceRole string

const (
	RoleWorkspaceOwner      WorkspaceRole = "WORKSPACE_OWNER"
	RoleTeamLead            WorkspaceRole = "TEAM_LEAD"
	RoleEventCoordinator    WorkspaceRole = "EVENT_COORDINATOR"
	RoleVolunteerManager    WorkspaceRole = "VOLUNTEER_MANAGER"
	RoleTechnicalSpecialist WorkspaceRole = "TECHNICAL_SPECIALIST"
	RoleMarketingLead       WorkspaceRole = "MARKETING_LEAD"
	RoleGeneralVolunteer    WorkspaceRole = "GENERAL_VOLUNTEER"
)

// Capability is a closed enum of workspace permissions. Using a typed
// constant set instead of free-form strings means a typo'd capability is a
// compile error, not a silent grant or denial.
type Capability string

const (
	CapManageWorkspace    Capability = "MANAGE_WORKSPACE"
	CapManageTeam         Capability = "MANAGE_TEAM"
	CapManageTasks        Capability = "MANAGE_TASKS"
	CapManageChannels     Capability = "MANAGE_CHANNELS"
	CapViewAnalytics      Capability = "VIEW_ANALYTICS"
	CapManagePermissions  Capability = "MANAGE_PERMISSIONS"
	CapViewTasks          Capability = "VIEW_TASKS"
	CapUpdateTaskProgress Capability = "UPDATE_TASK_PROGRESS"
	CapSendMessages       Capability = "SEND_MESSAGES"
	CapAssignTasks        Capability = "ASSIGN_TASKS"
	CapModerateChannels   Capability = "MODERATE_CHANNELS"
)

// roleDefaults maps each workspace role to its default capability set,
// consulted only when a member has no explicit permission override.
var roleDefaults = map[WorkspaceRole][]Capability{
	RoleWorkspaceOwner: {
		CapManageWorkspace, CapManageTeam, CapManageTasks, CapManageChannels,
		CapViewAnalytics, CapManagePermissions, CapViewTasks,
		CapUpdateTaskProgress, CapSendMessages, CapAssignTasks, CapModerateChannels,
	},
	RoleTeamLead: {
		CapManageTeam, CapManageTasks, CapAssignTasks, CapViewAnalytics,
		CapViewTasks, CapUpdateTaskProgress, CapSendMessages,
	},
	RoleEventCoordinator: {
		CapManageTasks, CapManageChannels, CapAssignTasks,
		CapViewTasks, CapUpdateTaskProgress, CapSendMessages,
	},
	RoleVolunteerManager: {
		CapManageTeam, CapAssignTasks, CapViewTasks,
		CapUpdateTaskProgress, CapSendMessages,
	},
	RoleTechnicalSpecialist: {
		CapViewTasks, CapUpdateTaskProgress, CapSendMessages, CapModerateChannels,
	},
	RoleMarketingLead: {
		CapManageChannels, CapViewAnalytics, CapViewTasks,
		CapUpdateTaskProgress, CapSendMessages,
	},
	RoleGeneralVolunteer: {
		CapViewTasks, CapUpdateTaskProgress, CapSendMessages,
	},
}

// DefaultCapabilities returns the default capability set for a role.
// The returned slice is a copy.
func DefaultCapabilities(role WorkspaceRole) []Capability {
	defaults := roleDefaults[role]
	out := make([]Capability, len(defaults))
	copy(out, defaults)
	return out
}

// ValidWorkspaceRole reports whether the role is one of the known roles.
func ValidWorkspaceRole(role WorkspaceRole) bool {
	_, ok := roleDefaults[role]
	return ok
}

// MemberStatus is a team member's activity status.
type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
)

// TeamMember relates one user to one workspace with a role and an optional
// explicit permission override. A nil Permissions slice means the role
// defaults apply.
type TeamMember struct {
	ID          uuid.UUID     `json:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	UserID      uuid.UUID     `json:"user_id"`
	Role        WorkspaceRole `json:"role"`
	Permissions []Capability  `json:"permissions,omitempty"`
	Status      MemberStatus  `json:"status"`
	JoinedAt    time.Time     `json:"joined_at"`
	LeftAt      *time.Time    `json:"left_at,omitempty"`
}

// EffectiveCapabilities returns the member's explicit permission set when
// present, otherwise the role defaults.
func (m *TeamMember) EffectiveCapabilities() []Capability {
	if m.Permissions != nil {
		return m.Permissions
	}
	return DefaultCapabilities(m.Role)
}

// HasCapability reports whether the member's effective set contains c.
func (m *TeamMember) HasCapability(c Capability) bool {
	for _, have := range m.EffectiveCapabilities() {
		if have == c {
			return true
		}
	}
	return false
}
