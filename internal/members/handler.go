package members

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/response"
)

// Handler exposes team membership management over HTTP.
type Handler struct {
	repo    *Repository
	checker *Checker
	audit   workspaces.AuditRecorder
}

// NewHandler creates a members handler.
func NewHandler(repo *Repository, checker *Checker, audit workspaces.AuditRecorder) *Handler {
	return &Handler{repo: repo, checker: checker, audit: audit}
}

// List handles GET /workspaces/:id/members. Requires an active membership.
func (h *Handler) List(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if _, err := h.checker.ActiveMember(c.Request.Context(), wsID, userID); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	list, err := h.repo.ListByWorkspace(c.Request.Context(), wsID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, list)
}

// AddMemberRequest is the body for POST /workspaces/:id/members.
type AddMemberRequest struct {
	UserID      uuid.UUID            `json:"user_id" binding:"required"`
	Role        models.WorkspaceRole `json:"role" binding:"required"`
	Permissions []models.Capability  `json:"permissions,omitempty"`
}

// Add handles POST /workspaces/:id/members. Requires MANAGE_TEAM.
func (h *Handler) Add(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.checker.Verify(c.Request.Context(), wsID, userID, models.CapManageTeam); err != nil {
		workspaces.RespondError(c, err)
		return
	}

	var body AddMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "user_id and role required")
		return
	}
	if !models.ValidWorkspaceRole(body.Role) {
		response.BadRequest(c, "unknown workspace role")
		return
	}
	if body.Role == models.RoleWorkspaceOwner {
		response.BadRequest(c, "the owner membership is created with the workspace")
		return
	}

	member := &models.TeamMember{
		WorkspaceID: wsID,
		UserID:      body.UserID,
		Role:        body.Role,
		Permissions: body.Permissions,
		Status:      models.MemberActive,
	}
	if err := h.repo.Add(c.Request.Context(), member); err != nil {
		response.Conflict(c, "user is already a member of this workspace")
		return
	}
	h.audit.Record(c.Request.Context(), wsID, &userID, models.AuditMemberAdded, "team_member", &member.ID, map[string]any{
		"member_user_id": body.UserID.String(),
		"role":           string(body.Role),
	})
	response.Created(c, member)
}

// UpdateMemberRequest is the body for PATCH /members/:id.
type UpdateMemberRequest struct {
	Role             *models.WorkspaceRole `json:"role,omitempty"`
	Permissions      *[]models.Capability  `json:"permissions,omitempty"`
	ClearPermissions bool                  `json:"clear_permissions,omitempty"`
}

// Update handles PATCH /members/:id. Role changes require MANAGE_TEAM;
// permission overrides require MANAGE_PERMISSIONS.
func (h *Handler) Update(c *gin.Context) {
	member, callerID, ok := h.loadMember(c)
	if !ok {
		return
	}
	var body UpdateMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	changes := map[string]any{}
	if body.Role != nil {
		if !models.ValidWorkspaceRole(*body.Role) {
			response.BadRequest(c, "unknown workspace role")
			return
		}
		if err := h.checker.Verify(ctx, member.WorkspaceID, callerID, models.CapManageTeam); err != nil {
			workspaces.RespondError(c, err)
			return
		}
		if err := h.repo.UpdateRole(ctx, member.ID, *body.Role); err != nil {
			response.Internal(c, "failed to update role")
			return
		}
		member.Role = *body.Role
		changes["role"] = string(*body.Role)
	}
	if body.Permissions != nil || body.ClearPermissions {
		if err := h.checker.Verify(ctx, member.WorkspaceID, callerID, models.CapManagePermissions); err != nil {
			workspaces.RespondError(c, err)
			return
		}
		var perms []models.Capability
		if body.Permissions != nil && !body.ClearPermissions {
			perms = *body.Permissions
		}
		if err := h.repo.UpdatePermissions(ctx, member.ID, perms); err != nil {
			response.Internal(c, "failed to update permissions")
			return
		}
		member.Permissions = perms
		changes["permissions_overridden"] = perms != nil
	}

	if len(changes) > 0 {
		h.audit.Record(ctx, member.WorkspaceID, &callerID, models.AuditMemberUpdated, "team_member", &member.ID, changes)
	}
	response.OK(c, member)
}

// Deactivate handles DELETE /members/:id. Requires MANAGE_TEAM.
func (h *Handler) Deactivate(c *gin.Context) {
	member, callerID, ok := h.loadMember(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.checker.Verify(ctx, member.WorkspaceID, callerID, models.CapManageTeam); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	if member.Role == models.RoleWorkspaceOwner {
		response.BadRequest(c, "the workspace owner cannot be deactivated individually")
		return
	}
	if err := h.repo.Deactivate(ctx, member.ID, time.Now().UTC()); err != nil {
		response.Internal(c, "failed to deactivate member")
		return
	}
	h.audit.Record(ctx, member.WorkspaceID, &callerID, models.AuditMemberDeactivated, "team_member", &member.ID, map[string]any{
		"member_user_id": member.UserID.String(),
	})
	response.NoContent(c)
}

func (h *Handler) loadMember(c *gin.Context) (*models.TeamMember, uuid.UUID, bool) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return nil, uuid.Nil, false
	}
	callerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	member, err := h.repo.GetByID(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "member not found")
		} else {
			response.Internal(c, "failed to load member")
		}
		return nil, uuid.Nil, false
	}
	return member, callerID, true
}
