package events

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/response"
)

// Handler exposes event CRUD and the status transitions that drive workspace
// lifecycle.
type Handler struct {
	repo      *Repository
	wsRepo    *workspaces.Repository
	lifecycle *workspaces.Service
	logger    *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, wsRepo *workspaces.Repository, lifecycle *workspaces.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, wsRepo: wsRepo, lifecycle: lifecycle, logger: logger}
}

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
}

// Create handles POST /events (organizer or admin).
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "title, starts_at and ends_at required")
		return
	}
	if !body.EndsAt.After(body.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}
	ev := &models.Event{
		Title:       body.Title,
		Description: body.Description,
		OrganizerID: userID,
		Status:      models.EventDraft,
		StartsAt:    body.StartsAt,
		EndsAt:      body.EndsAt,
	}
	if err := h.repo.Create(c.Request.Context(), ev); err != nil {
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, ev)
}

// List handles GET /events. Organizers see their own events via ?mine=true.
func (h *Handler) List(c *gin.Context) {
	var organizerID *uuid.UUID
	if c.Query("mine") == "true" {
		id := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		organizerID = &id
	}
	list, err := h.repo.List(c.Request.Context(), organizerID)
	if err != nil {
		response.Internal(c, "failed to load events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	ev, ok := h.loadEvent(c)
	if !ok {
		return
	}
	response.OK(c, ev)
}

// Publish handles POST /events/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	h.transition(c, []models.EventStatus{models.EventDraft}, models.EventPublished, nil)
}

// Complete handles POST /events/:id/complete. Moves the event's workspace
// into wind-down.
func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, []models.EventStatus{models.EventPublished}, models.EventCompleted, h.lifecycle.HandleEventCompleted)
}

// Cancel handles POST /events/:id/cancel. Dissolves the event's workspace
// immediately.
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, []models.EventStatus{models.EventDraft, models.EventPublished}, models.EventCancelled, h.lifecycle.HandleEventCancelled)
}

// Reactivate handles POST /events/:id/reactivate. Restores a cancelled
// event and its dissolved workspace.
func (h *Handler) Reactivate(c *gin.Context) {
	h.transition(c, []models.EventStatus{models.EventCancelled}, models.EventPublished, h.lifecycle.HandleEventReactivated)
}

// transition applies an organizer-gated event status change, then invokes
// the lifecycle hook with the event's workspace id when one exists.
func (h *Handler) transition(c *gin.Context, from []models.EventStatus, to models.EventStatus, hook func(ctx context.Context, workspaceID uuid.UUID) error) {
	ev, ok := h.loadEvent(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(string)
	if ev.OrganizerID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "only the event organizer can change its status")
		return
	}

	ctx := c.Request.Context()
	changed, err := h.repo.TransitionStatus(ctx, ev.ID, from, to)
	if err != nil {
		response.Internal(c, "failed to update event status")
		return
	}
	if !changed {
		response.UnprocessableEntity(c, "event status does not allow this change")
		return
	}
	ev.Status = to

	if hook != nil {
		ws, err := h.wsRepo.GetByEventID(ctx, ev.ID)
		switch {
		case err == nil:
			if err := hook(ctx, ws.ID); err != nil {
				// The event transition is committed; the workspace side can be
				// retried (the sweeper also converges winding-down state).
				h.logger.Error("workspace lifecycle hook",
					zap.String("event_id", ev.ID.String()),
					zap.String("event_status", string(to)),
					zap.Error(err))
			}
		case errors.Is(err, pgx.ErrNoRows):
			// Event was never provisioned a workspace; nothing to do.
		default:
			h.logger.Error("load workspace for event", zap.String("event_id", ev.ID.String()), zap.Error(err))
		}
	}
	response.OK(c, ev)
}

func (h *Handler) loadEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	ev, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
		} else {
			response.Internal(c, "failed to load event")
		}
		return nil, false
	}
	return ev, true
}
