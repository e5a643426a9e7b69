package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/members"
	"github.com/evora-events/backend/pkg/queue"
)

// RecipientSource lists the active members of a workspace with contact
// details; members.Repository implements it.
type RecipientSource interface {
	ListRecipients(ctx context.Context, workspaceID uuid.UUID, includeInactive bool) ([]members.Recipient, error)
}

// Notifier enqueues lifecycle notification emails for workspace members.
// Dispatch is fire-and-forget: an enqueue failure is logged and never
// propagated, so a notification problem cannot roll back a committed
// transition.
type Notifier struct {
	recipients RecipientSource
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewNotifier creates a lifecycle notifier.
func NewNotifier(recipients RecipientSource, q *queue.Queue, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{recipients: recipients, queue: q, logger: logger}
}

// WorkspaceWindingDown notifies all active members that the workspace has
// entered wind-down and, when known, the date it is scheduled to dissolve.
// A zero dissolveAt means the date could not be computed.
func (n *Notifier) WorkspaceWindingDown(ctx context.Context, workspaceID uuid.UUID, dissolveAt time.Time) {
	subject := "Your workspace is winding down"
	n.fanOut(ctx, workspaceID, queue.NotifyWindDown, subject, windDownBody(dissolveAt), false)
}

func windDownBody(dissolveAt time.Time) string {
	if dissolveAt.IsZero() {
		return "The event has ended. The workspace has entered wind-down and will be dissolved once its retention period elapses."
	}
	return fmt.Sprintf("The event has ended. The workspace remains accessible until %s, after which it will be dissolved.",
		dissolveAt.Format("2 January 2006"))
}

// WorkspaceDissolved notifies members that access has been revoked. The
// dissolution has already deactivated them, so inactive memberships are
// included.
func (n *Notifier) WorkspaceDissolved(ctx context.Context, workspaceID uuid.UUID, reason string) {
	subject := "Your workspace has been dissolved"
	body := fmt.Sprintf("The workspace has been dissolved (%s). Member access has been revoked.", reason)
	n.fanOut(ctx, workspaceID, queue.NotifyDissolved, subject, body, true)
}

func (n *Notifier) fanOut(ctx context.Context, workspaceID uuid.UUID, kind, subject, body string, includeInactive bool) {
	recipients, err := n.recipients.ListRecipients(ctx, workspaceID, includeInactive)
	if err != nil {
		n.logger.Warn("notify: list recipients",
			zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		return
	}
	for _, rec := range recipients {
		payload := queue.NotificationPayload{
			Kind:        kind,
			WorkspaceID: workspaceID,
			UserID:      rec.UserID,
			Recipient:   rec.Email,
			Subject:     subject,
			Body:        body,
		}
		if err := n.queue.EnqueueNotification(ctx, payload); err != nil {
			n.logger.Warn("notify: enqueue",
				zap.String("workspace_id", workspaceID.String()),
				zap.String("recipient", rec.Email),
				zap.Error(err))
		}
	}
}
