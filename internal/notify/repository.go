package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles the notification delivery log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending notification log row.
func (r *Repository) Create(ctx context.Context, n *models.NotificationLog) error {
	const q = `INSERT INTO notification_log (id, workspace_id, user_id, kind, recipient, subject, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, n.WorkspaceID, n.UserID, n.Kind, n.Recipient, n.Subject, n.Status).
		Scan(&n.ID, &n.CreatedAt)
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE notification_log SET status = $1, sent_at = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.NotificationSent, at, id)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE notification_log SET status = $1, error = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.NotificationFailed, errMsg, id)
	return err
}

// ListByWorkspace returns a workspace's notification log, newest first.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.NotificationLog, error) {
	const q = `SELECT id, workspace_id, user_id, kind, recipient, subject, status, COALESCE(error, ''), sent_at, created_at
		FROM notification_log WHERE workspace_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.NotificationLog
	for rows.Next() {
		var n models.NotificationLog
		if err := rows.Scan(&n.ID, &n.WorkspaceID, &n.UserID, &n.Kind, &n.Recipient, &n.Subject,
			&n.Status, &n.Error, &n.SentAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
