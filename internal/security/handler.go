package security

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/response"
)

// Handler exposes security incident endpoints.
type Handler struct {
	svc     *Service
	repo    *Repository
	checker workspaces.PermissionChecker
	members workspaces.MembershipSource
}

// NewHandler creates a security incidents handler.
func NewHandler(svc *Service, repo *Repository, checker workspaces.PermissionChecker, members workspaces.MembershipSource) *Handler {
	return &Handler{svc: svc, repo: repo, checker: checker, members: members}
}

// ReportRequest is the body for POST /workspaces/:id/incidents.
type ReportRequest struct {
	Severity    models.IncidentSeverity `json:"severity" binding:"required"`
	Description string                  `json:"description" binding:"required"`
}

var validSeverities = map[models.IncidentSeverity]bool{
	models.SeverityLow:      true,
	models.SeverityMedium:   true,
	models.SeverityHigh:     true,
	models.SeverityCritical: true,
}

// Report handles POST /workspaces/:id/incidents. Any active member can
// report an incident.
func (h *Handler) Report(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if _, err := h.members.ActiveMember(c.Request.Context(), wsID, userID); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	var body ReportRequest
	if err := c.ShouldBindJSON(&body); err != nil || !validSeverities[body.Severity] {
		response.BadRequest(c, "severity (LOW|MEDIUM|HIGH|CRITICAL) and description required")
		return
	}
	inc, err := h.svc.Report(c.Request.Context(), wsID, userID, body.Severity, body.Description)
	if err != nil {
		response.Internal(c, "failed to report incident")
		return
	}
	response.Created(c, inc)
}

// List handles GET /workspaces/:id/incidents. Requires MANAGE_WORKSPACE.
func (h *Handler) List(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.checker.Verify(c.Request.Context(), wsID, userID, models.CapManageWorkspace); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	list, err := h.repo.ListByWorkspace(c.Request.Context(), wsID)
	if err != nil {
		response.Internal(c, "failed to load incidents")
		return
	}
	response.OK(c, list)
}

// ActionRequest is the body for respond/resolve.
type ActionRequest struct {
	Action string `json:"action"`
}

// Respond handles POST /incidents/:id/respond. Requires MANAGE_WORKSPACE in
// the incident's workspace.
func (h *Handler) Respond(c *gin.Context) {
	h.advance(c, func(ctx *gin.Context, incID, userID uuid.UUID, action string) error {
		if action == "" {
			response.BadRequest(ctx, "action required")
			return errHandled
		}
		return h.svc.Respond(ctx.Request.Context(), incID, userID, action)
	})
}

// Resolve handles POST /incidents/:id/resolve. Requires MANAGE_WORKSPACE in
// the incident's workspace.
func (h *Handler) Resolve(c *gin.Context) {
	h.advance(c, func(ctx *gin.Context, incID, userID uuid.UUID, action string) error {
		return h.svc.Resolve(ctx.Request.Context(), incID, userID, action)
	})
}

var errHandled = errors.New("response already written")

func (h *Handler) advance(c *gin.Context, apply func(c *gin.Context, incidentID, userID uuid.UUID, action string) error) {
	incID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid incident id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	inc, err := h.repo.GetByID(c.Request.Context(), incID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "incident not found")
		} else {
			response.Internal(c, "failed to load incident")
		}
		return
	}
	if err := h.checker.Verify(c.Request.Context(), inc.WorkspaceID, userID, models.CapManageWorkspace); err != nil {
		workspaces.RespondError(c, err)
		return
	}

	var body ActionRequest
	_ = c.ShouldBindJSON(&body)
	if err := apply(c, incID, userID, body.Action); err != nil {
		if !errors.Is(err, errHandled) {
			response.Internal(c, "failed to update incident")
		}
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), incID)
	if err != nil {
		response.Internal(c, "failed to reload incident")
		return
	}
	response.OK(c, updated)
}
