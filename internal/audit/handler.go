package audit

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/middleware"
	"github.com/evora-events/backend/internal/models"
	"github.com/evora-events/backend/internal/workspaces"
	"github.com/evora-events/backend/pkg/response"
	"github.com/evora-events/backend/pkg/storage"
)

// Handler exposes the audit trail read and export endpoints.
type Handler struct {
	repo     *Repository
	checker  workspaces.PermissionChecker
	recorder *Recorder
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates an audit handler. s3 may be nil, in which case export
// is unavailable.
func NewHandler(repo *Repository, checker workspaces.PermissionChecker, recorder *Recorder, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, checker: checker, recorder: recorder, s3: s3, logger: logger}
}

// List handles GET /workspaces/:id/audit. Requires VIEW_ANALYTICS.
func (h *Handler) List(c *gin.Context) {
	wsID, userID, ok := caller(c)
	if !ok {
		return
	}
	if err := h.checker.Verify(c.Request.Context(), wsID, userID, models.CapViewAnalytics); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.repo.ListByWorkspace(c.Request.Context(), wsID, limit)
	if err != nil {
		response.Internal(c, "failed to load audit trail")
		return
	}
	response.OK(c, entries)
}

// Export handles POST /workspaces/:id/audit/export. Requires
// MANAGE_WORKSPACE. The full trail is archived to S3 as JSON and a
// pre-signed download URL is returned.
func (h *Handler) Export(c *gin.Context) {
	wsID, userID, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.checker.Verify(ctx, wsID, userID, models.CapManageWorkspace); err != nil {
		workspaces.RespondError(c, err)
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "audit export is not configured")
		return
	}

	entries, err := h.repo.ListAllByWorkspace(ctx, wsID)
	if err != nil {
		response.Internal(c, "failed to load audit trail")
		return
	}
	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		response.Internal(c, "failed to encode audit trail")
		return
	}

	key := storage.AuditKey(wsID.String(), time.Now())
	if _, err := h.s3.UploadArchive(ctx, key, body); err != nil {
		h.logger.Error("audit export upload", zap.String("workspace_id", wsID.String()), zap.Error(err))
		response.Internal(c, "failed to archive audit trail")
		return
	}
	downloadURL, err := h.s3.PresignDownload(ctx, key)
	if err != nil {
		h.logger.Error("audit export presign", zap.String("workspace_id", wsID.String()), zap.Error(err))
		response.Internal(c, "failed to sign download url")
		return
	}

	h.recorder.Record(ctx, wsID, &userID, models.AuditTrailExported, "audit_log", nil, map[string]any{
		"entries": len(entries),
		"s3_key":  key,
	})
	response.OK(c, gin.H{"key": key, "download_url": downloadURL, "entries": len(entries)})
}

func caller(c *gin.Context) (wsID, userID uuid.UUID, ok bool) {
	wsID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return uuid.Nil, uuid.Nil, false
	}
	userID = c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return wsID, userID, true
}
