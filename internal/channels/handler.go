package channels

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/response"
)

// Broadcaster fans a channel event out to connected workspace clients.
type Broadcaster interface {
	BroadcastToWorkspaceAndPublish(workspaceID uuid.UUID, event string, payload interface{})
}

// Handler exposes workspace channel endpoints.
type Handler struct {
	repo    *Repository
	checker workspaces.PermissionChecker
	members workspaces.MembershipSource
	hub     Broadcaster
}

// NewHandler creates a channels handler. hub may be nil.
func NewHandler(repo *Repository, checker workspaces.PermissionChecker, members workspaces.MembershipSource, hub Broadcaster) *Handler {
	return &Handler{repo: repo, checker: checker, members: members, hub: hub}
}

// List handles GET /workspaces/:id/channels. Requires an active membership.
func (h *Handler) List(c *gin.Context) {
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
	list, err := h.repo.ListByWorkspace(c.Request.Context(), wsID)
	if err != nil {
		response.Internal(c, "failed to load channels")
		return
	}
	response.OK(c, list)
}

// PostMessageRequest is the body for POST /channels/:id/messages.
type PostMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// PostMessage handles POST /channels/:id/messages. Requires SEND_MESSAGES
// in the channel's workspace; announcement channels additionally require
// MANAGE_CHANNELS.
func (h *Handler) PostMessage(c *gin.Context) {
	ch, ok := h.loadChannel(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()
	if err := h.checker.Verify(ctx, ch.WorkspaceID, userID, models.CapSendMessages); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	if ch.Type == models.ChannelAnnouncement {
		if err := h.checker.Verify(ctx, ch.WorkspaceID, userID, models.CapManageChannels); err != nil {
			workspaces.RespondError(c, err)
			return
		}
	}

	var body PostMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Body) == "" {
		response.BadRequest(c, "body required")
		return
	}
	msg := &models.ChannelMessage{
		ChannelID: ch.ID,
		SenderID:  userID,
		Body:      strings.TrimSpace(body.Body),
	}
	if err := h.repo.CreateMessage(ctx, msg); err != nil {
		response.Internal(c, "failed to post message")
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToWorkspaceAndPublish(ch.WorkspaceID, "channel_message", msg)
	}
	response.Created(c, msg)
}

// ListMessages handles GET /channels/:id/messages. Requires an active
// membership.
func (h *Handler) ListMessages(c *gin.Context) {
	ch, ok := h.loadChannel(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if _, err := h.members.ActiveMember(c.Request.Context(), ch.WorkspaceID, userID); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.repo.ListMessages(c.Request.Context(), ch.ID, limit)
	if err != nil {
		response.Internal(c, "failed to load messages")
		return
	}
	response.OK(c, list)
}

func (h *Handler) loadChannel(c *gin.Context) (*models.Channel, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return nil, false
	}
	ch, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "channel not found")
		} else {
			response.Internal(c, "failed to load channel")
		}
		return nil, false
	}
	return ch, true
}
