package workspaces

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evora-events/backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.WorkspaceStatus
		to   models.WorkspaceStatus
		want bool
	}{
		{models.WorkspaceProvisioning, models.WorkspaceActive, true},
		{models.WorkspaceProvisioning, models.WorkspaceWindingDown, false},
		{models.WorkspaceProvisioning, models.WorkspaceDissolved, true}, // event cancelled mid-provision
		{models.WorkspaceActive, models.WorkspaceWindingDown, true},
		{models.WorkspaceActive, models.WorkspaceDissolved, true}, // emergency revoke
		{models.WorkspaceActive, models.WorkspaceProvisioning, false},
		{models.WorkspaceWindingDown, models.WorkspaceDissolved, true},
		{models.WorkspaceWindingDown, models.WorkspaceActive, true}, // reactivation window
		{models.WorkspaceDissolved, models.WorkspaceActive, false},
		{models.WorkspaceDissolved, models.WorkspaceWindingDown, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatusesDissolvedIsTerminalForStatusReads(t *testing.T) {
	assert.Empty(t, NextStatuses(models.WorkspaceDissolved))
	assert.Equal(t, []models.WorkspaceStatus{models.WorkspaceActive, models.WorkspaceDissolved}, NextStatuses(models.WorkspaceProvisioning))
}
