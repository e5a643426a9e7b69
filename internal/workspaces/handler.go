package workspaces

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/pkg/response"
)

// MembershipSource resolves a caller's active membership in a workspace.
// Returns ErrAccessDenied when no active membership exists.
type MembershipSource interface {
	ActiveMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.TeamMember, error)
}

// Handler exposes the lifecycle operations over HTTP.
type Handler struct {
	svc     *Service
	members MembershipSource
	logger  *zap.Logger
}

// NewHandler creates a workspace lifecycle handler.
func NewHandler(svc *Service, members MembershipSource, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, members: members, logger: logger}
}

// RespondError maps the typed lifecycle errors onto the response envelope.
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotAuthorized):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrAccessDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.Internal(c, "internal error")
	}
}

// Provision handles POST /events/:id/workspace. The caller must be the
// event's organizer.
func (h *Handler) Provision(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ws, err := h.svc.Provision(c.Request.Context(), eventID, userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	response.Created(c, ws)
}

// Get handles GET /workspaces/:id. Requires an active membership.
func (h *Handler) Get(c *gin.Context) {
	wsID, userID, ok := h.workspaceCaller(c)
	if !ok {
		return
	}
	if _, err := h.members.ActiveMember(c.Request.Context(), wsID, userID); err != nil {
		RespondError(c, err)
		return
	}
	ws, err := h.svc.Get(c.Request.Context(), wsID)
	if err != nil {
		RespondError(c, err)
		return
	}
	response.OK(c, ws)
}

// Status handles GET /workspaces/:id/status. Requires an active membership.
func (h *Handler) Status(c *gin.Context) {
	wsID, userID, ok := h.workspaceCaller(c)
	if !ok {
		return
	}
	if _, err := h.members.ActiveMember(c.Request.Context(), wsID, userID); err != nil {
		RespondError(c, err)
		return
	}
	st, err := h.svc.Status(c.Request.Context(), wsID)
	if err != nil {
		RespondError(c, err)
		return
	}
	response.OK(c, st)
}

// WindDownRequest is the body for POST /workspaces/:id/wind-down.
type WindDownRequest struct {
	RetentionPeriodDays *int `json:"retention_period_days"`
}

// WindDown handles POST /workspaces/:id/wind-down (manual wind-down,
// MANAGE_WORKSPACE required).
func (h *Handler) WindDown(c *gin.Context) {
	wsID, userID, ok := h.workspaceCaller(c)
	if !ok {
		return
	}
	var body WindDownRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	if body.RetentionPeriodDays != nil && *body.RetentionPeriodDays < 0 {
		response.BadRequest(c, "retention_period_days must be non-negative")
		return
	}
	if err := h.svc.InitiateWindDown(c.Request.Context(), wsID, userID, body.RetentionPeriodDays); err != nil {
		RespondError(c, err)
		return
	}
	st, err := h.svc.Status(c.Request.Context(), wsID)
	if err != nil {
		RespondError(c, err)
		return
	}
	response.OK(c, st)
}

// DissolveRequest is the body for POST /workspaces/:id/dissolve.
type DissolveRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Dissolve handles POST /workspaces/:id/dissolve (emergency revocation,
// MANAGE_WORKSPACE required).
func (h *Handler) Dissolve(c *gin.Context) {
	wsID, userID, ok := h.workspaceCaller(c)
	if !ok {
		return
	}
	var body DissolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "reason required")
		return
	}
	if err := h.svc.EmergencyRevoke(c.Request.Context(), wsID, userID, body.Reason); err != nil {
		RespondError(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateSettings handles PATCH /workspaces/:id/settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	wsID, userID, ok := h.workspaceCaller(c)
	if !ok {
		return
	}
	var update models.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, "invalid settings update")
		return
	}
	ws, err := h.svc.UpdateSettings(c.Request.Context(), wsID, userID, update)
	if err != nil {
		RespondError(c, err)
		return
	}
	response.OK(c, ws)
}

// Sweep handles POST /admin/sweep (admin-only manual trigger; the scheduled
// sweeper runs the same operation).
func (h *Handler) Sweep(c *gin.Context) {
	dissolved, err := h.svc.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("manual sweep", zap.Error(err))
		response.Internal(c, "sweep failed")
		return
	}
	response.OK(c, gin.H{"dissolved": dissolved})
}

func (h *Handler) workspaceCaller(c *gin.Context) (wsID, userID uuid.UUID, ok bool) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return uuid.Nil, uuid.Nil, false
	}
	userID = c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return wsID, userID, true
}
