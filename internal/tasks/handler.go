package tasks

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

// Handler exposes workspace task endpoints.
type Handler struct {
	repo    *Repository
	checker workspaces.PermissionChecker
}

// NewHandler creates a tasks handler.
func NewHandler(repo *Repository, checker workspaces.PermissionChecker) *Handler {
	return &Handler{repo: repo, checker: checker}
}

var validTaskStatus = map[models.TaskStatus]bool{
	models.TaskOpen:       true,
	models.TaskInProgress: true,
	models.TaskDone:       true,
}

// List handles GET /workspaces/:id/tasks. Requires VIEW_TASKS.
func (h *Handler) List(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.checker.Verify(c.Request.Context(), wsID, userID, models.CapViewTasks); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	list, err := h.repo.ListByWorkspace(c.Request.Context(), wsID, c.Query("category"))
	if err != nil {
		response.Internal(c, "failed to load tasks")
		return
	}
	response.OK(c, list)
}

// CreateTaskRequest is the body for POST /workspaces/:id/tasks.
type CreateTaskRequest struct {
	Title      string     `json:"title" binding:"required"`
	Category   string     `json:"category"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Create handles POST /workspaces/:id/tasks. Requires MANAGE_TASKS.
func (h *Handler) Create(c *gin.Context) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.checker.Verify(c.Request.Context(), wsID, userID, models.CapManageTasks); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	var body CreateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "title required")
		return
	}
	task := &models.Task{
		WorkspaceID: wsID,
		Title:       body.Title,
		Category:    body.Category,
		Status:      models.TaskOpen,
		AssigneeID:  body.AssigneeID,
		DueDate:     body.DueDate,
	}
	if err := h.repo.Create(c.Request.Context(), task); err != nil {
		response.Internal(c, "failed to create task")
		return
	}
	response.Created(c, task)
}

// UpdateTaskRequest is the body for PATCH /tasks/:id.
type UpdateTaskRequest struct {
	Status     *models.TaskStatus `json:"status,omitempty"`
	AssigneeID *uuid.UUID         `json:"assignee_id,omitempty"`
	Unassign   bool               `json:"unassign,omitempty"`
	Title      string             `json:"title,omitempty"`
	Category   string             `json:"category,omitempty"`
	DueDate    *time.Time         `json:"due_date,omitempty"`
}

// Update handles PATCH /tasks/:id. Status changes require
// UPDATE_TASK_PROGRESS, assignment changes ASSIGN_TASKS, and detail edits
// MANAGE_TASKS.
func (h *Handler) Update(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	task, err := h.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "task not found")
		} else {
			response.Internal(c, "failed to load task")
		}
		return
	}

	var body UpdateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if body.Status != nil {
		if !validTaskStatus[*body.Status] {
			response.BadRequest(c, "unknown task status")
			return
		}
		if err := h.checker.Verify(ctx, task.WorkspaceID, userID, models.CapUpdateTaskProgress); err != nil {
			workspaces.RespondError(c, err)
			return
		}
		if err := h.repo.UpdateStatus(ctx, task.ID, *body.Status); err != nil {
			response.Internal(c, "failed to update status")
			return
		}
		task.Status = *body.Status
	}
	if body.AssigneeID != nil || body.Unassign {
		if err := h.checker.Verify(ctx, task.WorkspaceID, userID, models.CapAssignTasks); err != nil {
			workspaces.RespondError(c, err)
			return
		}
		assignee := body.AssigneeID
		if body.Unassign {
			assignee = nil
		}
		if err := h.repo.UpdateAssignee(ctx, task.ID, assignee); err != nil {
			response.Internal(c, "failed to update assignee")
			return
		}
		task.AssigneeID = assignee
	}
	if body.Title != "" || body.Category != "" || body.DueDate != nil {
		if err := h.checker.Verify(ctx, task.WorkspaceID, userID, models.CapManageTasks); err != nil {
			workspaces.RespondError(c, err)
			return
		}
		if err := h.repo.UpdateDetails(ctx, task.ID, body.Title, body.Category, body.DueDate); err != nil {
			response.Internal(c, "failed to update task")
			return
		}
		if body.Title != "" {
			task.Title = body.Title
		}
		if body.Category != "" {
			task.Category = body.Category
		}
		if body.DueDate != nil {
			task.DueDate = body.DueDate
		}
	}
	response.OK(c, task)
}
