package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
)

// ActiveMemberSource resolves active memberships; *Repository implements it.
type ActiveMemberSource interface {
	GetActive(ctx context.Context, workspaceID, userID uuid.UUID) (*models.TeamMember, error)
}

// Checker verifies workspace capabilities before mutating operations.
// The check has no side effects; callers audit around it.
type Checker struct {
	members ActiveMemberSource
}

// NewChecker creates a permission checker.
func NewChecker(members ActiveMemberSource) *Checker {
	return &Checker{members: members}
}

// Verify fails with ErrAccessDenied when the user has no active membership
// in the workspace, and with ErrNotAuthorized when the membership's
// effective capability set (explicit override if set, else role defaults)
// lacks the required capability.
func (c *Checker) Verify(ctx context.Context, workspaceID, userID uuid.UUID, capability models.Capability) error {
	member, err := c.ActiveMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !member.HasCapability(capability) {
		return fmt.Errorf("capability %s: %w", capability, workspaces.ErrNotAuthorized)
	}
	return nil
}

// ActiveMember returns the caller's active membership, or ErrAccessDenied.
func (c *Checker) ActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.TeamMember, error) {
	member, err := c.members.GetActive(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no active membership in workspace %s: %w", workspaceID, workspaces.ErrAccessDenied)
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return member, nil
}
