package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
)

type memberMap map[uuid.UUID]*models.TeamMember // keyed by user ID

func (m memberMap) GetActive(_ context.Context, _ uuid.UUID, userID uuid.UUID) (*models.TeamMember, error) {
	member, ok := m[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return member, nil
}

func TestVerifyNonMemberGetsAccessDenied(t *testing.T) {
	checker := NewChecker(memberMap{})
	err := checker.Verify(context.Background(), uuid.New(), uuid.New(), models.CapViewTasks)
	assert.ErrorIs(t, err, workspaces.ErrAccessDenied)
}

func TestVerifyCapabilityGate(t *testing.T) {
	wsID := uuid.New()
	owner := uuid.New()
	volunteer := uuid.New()
	checker := NewChecker(memberMap{
		owner:     {WorkspaceID: wsID, UserID: owner, Role: models.RoleWorkspaceOwner, Status: models.MemberActive},
		volunteer: {WorkspaceID: wsID, UserID: volunteer, Role: models.RoleGeneralVolunteer, Status: models.MemberActive},
	})

	assert.NoError(t, checker.Verify(context.Background(), wsID, owner, models.CapManageWorkspace))
	assert.NoError(t, checker.Verify(context.Background(), wsID, volunteer, models.CapUpdateTaskProgress))

	err := checker.Verify(context.Background(), wsID, volunteer, models.CapManageWorkspace)
	assert.ErrorIs(t, err, workspaces.ErrNotAuthorized)
}

func TestVerifyHonorsExplicitOverride(t *testing.T) {
	wsID := uuid.New()
	userID := uuid.New()
	checker := NewChecker(memberMap{
		userID: {
			WorkspaceID: wsID,
			UserID:      userID,
			Role:        models.RoleGeneralVolunteer,
			Permissions: []models.Capability{models.CapManageTasks},
			Status:      models.MemberActive,
		},
	})

	assert.NoError(t, checker.Verify(context.Background(), wsID, userID, models.CapManageTasks))
	// The override replaces the role defaults, it does not extend them.
	err := checker.Verify(context.Background(), wsID, userID, models.CapViewTasks)
	assert.ErrorIs(t, err, workspaces.ErrNotAuthorized)
}
