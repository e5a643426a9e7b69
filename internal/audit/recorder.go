package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/models"
)

// EntrySink persists audit entries; *Repository implements it.
type EntrySink interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

// Recorder writes audit entries for lifecycle and membership operations.
// The durable table is the source of truth; the zap line alongside it is
// operational only. A write failure is reported to the operational log and
// swallowed: lifecycle correctness never depends on audit-log success.
type Recorder struct {
	sink   EntrySink
	logger *zap.Logger
}

// NewRecorder creates an audit recorder.
func NewRecorder(sink EntrySink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger}
}

// Record appends one entry. Errors are logged, never returned.
func (r *Recorder) Record(ctx context.Context, workspaceID uuid.UUID, userID *uuid.UUID, action, resource string, resourceID *uuid.UUID, details map[string]any) {
	entry := &models.AuditEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			r.logger.Warn("audit: marshal details", zap.String("action", action), zap.Error(err))
		} else {
			entry.Details = raw
		}
	}

	if err := r.sink.Append(ctx, entry); err != nil {
		r.logger.Error("audit: append entry failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("action", action),
			zap.Error(err))
		return
	}
	r.logger.Info("audit",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("action", action),
		zap.String("resource", resource))
}
