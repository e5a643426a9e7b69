package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles the append-only workspace audit log. There is
// deliberately no update or delete method.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one audit entry.
func (r *Repository) Append(ctx context.Context, e *models.AuditEntry) error {
	const q = `INSERT INTO workspace_audit_log (id, workspace_id, user_id, action, resource, resource_id, details)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.WorkspaceID, e.UserID, e.Action, e.Resource, e.ResourceID, e.Details).
		Scan(&e.ID, &e.CreatedAt)
}

// ListByWorkspace returns a workspace's audit trail, newest first, capped at
// limit (0 means the default of 200).
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT id, workspace_id, user_id, action, resource, resource_id, details, created_at
		FROM workspace_audit_log
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.UserID, &e.Action, &e.Resource, &e.ResourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListAllByWorkspace returns the full trail oldest first, for compliance
// export.
func (r *Repository) ListAllByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.AuditEntry, error) {
	const q = `SELECT id, workspace_id, user_id, action, resource, resource_id, details, created_at
		FROM workspace_audit_log
		WHERE workspace_id = $1
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.UserID, &e.Action, &e.Resource, &e.ResourceID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
