package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCapabilitiesPerRole(t *testing.T) {
	owner := DefaultCapabilities(RoleWorkspaceOwner)
	assert.Len(t, owner, 11)
	assert.Contains(t, owner, CapManageWorkspace)

	volunteer := DefaultCapabilities(RoleGeneralVolunteer)
	assert.ElementsMatch(t, []Capability{CapViewTasks, CapUpdateTaskProgress, CapSendMessages}, volunteer)
	assert.NotContains(t, volunteer, CapManageWorkspace)
}

func TestDefaultCapabilitiesReturnsCopy(t *testing.T) {
	first := DefaultCapabilities(RoleTeamLead)
	first[0] = Capability("SCRIBBLED")
	assert.NotContains(t, DefaultCapabilities(RoleTeamLead), Capability("SCRIBBLED"))
}

func TestEffectiveCapabilitiesOverride(t *testing.T) {
	m := TeamMember{Role: RoleGeneralVolunteer}
	assert.True(t, m.HasCapability(CapViewTasks))
	assert.False(t, m.HasCapability(CapManageTasks))

	// An explicit override replaces the role defaults entirely.
	m.Permissions = []Capability{CapManageTasks}
	assert.True(t, m.HasCapability(CapManageTasks))
	assert.False(t, m.HasCapability(CapViewTasks))

	// An empty (non-nil) override means no capabilities at all.
	m.Permissions = []Capability{}
	assert.False(t, m.HasCapability(CapViewTasks))
	assert.False(t, m.HasCapability(CapSendMessages))
}

func TestValidWorkspaceRole(t *testing.T) {
	assert.True(t, ValidWorkspaceRole(RoleVolunteerManager))
	assert.False(t, ValidWorkspaceRole(WorkspaceRole("SUPREME_LEADER")))
}
