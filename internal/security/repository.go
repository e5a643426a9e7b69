package security

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles security incident persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a security incident repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const incidentColumns = `id, workspace_id, reported_by, severity, status, description, response_actions, created_at, updated_at`

// Create inserts a new incident in DETECTED.
func (r *Repository) Create(ctx context.Context, inc *models.SecurityIncident) error {
	actions := inc.ResponseActions
	if actions == nil {
		actions = []models.ResponseAction{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	const q = `INSERT INTO security_incidents (id, workspace_id, reported_by, severity, status, description, response_actions)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, inc.WorkspaceID, inc.ReportedBy, inc.Severity, inc.Status, inc.Description, raw).
		Scan(&inc.ID, &inc.CreatedAt, &inc.UpdatedAt)
}

// GetByID returns an incident by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SecurityIncident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM security_incidents WHERE id = $1`
	return scanIncident(r.pool.QueryRow(ctx, q, id))
}

// ListByWorkspace returns a workspace's incidents, newest first.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.SecurityIncident, error) {
	const q = `SELECT ` + incidentColumns + ` FROM security_incidents
		WHERE workspace_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.SecurityIncident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inc)
	}
	return list, rows.Err()
}

// AppendResponse appends a response action and advances the status.
func (r *Repository) AppendResponse(ctx context.Context, id uuid.UUID, action models.ResponseAction, status models.IncidentStatus) error {
	raw, err := json.Marshal([]models.ResponseAction{action})
	if err != nil {
		return err
	}
	const q = `UPDATE security_incidents
		SET response_actions = response_actions || $1::jsonb, status = $2, updated_at = NOW()
		WHERE id = $3`
	tag, err := r.pool.Exec(ctx, q, raw, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanIncident(row pgx.Row) (*models.SecurityIncident, error) {
	var inc models.SecurityIncident
	var actions []byte
	err := row.Scan(&inc.ID, &inc.WorkspaceID, &inc.ReportedBy, &inc.Severity, &inc.Status,
		&inc.Description, &actions, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &inc.ResponseActions); err != nil {
			return nil, err
		}
	}
	return &inc, nil
}
