package members

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles team member persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a team member repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, workspace_id, user_id, role, permissions, status, joined_at, left_at`

// GetActive returns the active membership of a user in a workspace, or
// pgx.ErrNoRows when none exists.
func (r *Repository) GetActive(ctx context.Context, workspaceID, userID uuid.UUID) (*models.TeamMember, error) {
	const q = `SELECT ` + memberColumns + ` FROM team_members
		WHERE workspace_id = $1 AND user_id = $2 AND status = $3`
	return scanMember(r.pool.QueryRow(ctx, q, workspaceID, userID, models.MemberActive))
}

// GetByID returns a team member by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error) {
	const q = `SELECT ` + memberColumns + ` FROM team_members WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, q, id))
}

// ListByWorkspace returns all members of a workspace, owner first.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.TeamMember, error) {
	const q = `SELECT ` + memberColumns + ` FROM team_members
		WHERE workspace_id = $1
		ORDER BY role = 'WORKSPACE_OWNER' DESC, joined_at ASC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Add inserts a new team member. A duplicate (workspace_id, user_id) pair
// violates the unique constraint.
func (r *Repository) Add(ctx context.Context, m *models.TeamMember) error {
	const q = `INSERT INTO team_members (id, workspace_id, user_id, role, permissions, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, joined_at`
	return r.pool.QueryRow(ctx, q, m.WorkspaceID, m.UserID, m.Role, capabilityStrings(m.Permissions), m.Status).
		Scan(&m.ID, &m.JoinedAt)
}

// UpdateRole changes a member's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.WorkspaceRole) error {
	const q = `UPDATE team_members SET role = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, role, id)
	return err
}

// UpdatePermissions replaces a member's explicit permission override.
// Passing nil clears the override so role defaults apply again.
func (r *Repository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []models.Capability) error {
	const q = `UPDATE team_members SET permissions = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, capabilityStrings(permissions), id)
	return err
}

// Deactivate marks a member INACTIVE and stamps left_at.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE team_members SET status = $1, left_at = $2 WHERE id = $3 AND status = $4`
	_, err := r.pool.Exec(ctx, q, models.MemberInactive, at, id, models.MemberActive)
	return err
}

// Recipient is an active member joined with the user's contact details, for
// notification dispatch.
type Recipient struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// ListRecipients returns members of a workspace with their emails. Pass
// includeInactive true for dissolution notices, which go out after the
// members have already been deactivated.
func (r *Repository) ListRecipients(ctx context.Context, workspaceID uuid.UUID, includeInactive bool) ([]Recipient, error) {
	q := `SELECT tm.user_id, u.email, COALESCE(u.full_name, '')
		FROM team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.workspace_id = $1`
	args := []interface{}{workspaceID}
	if !includeInactive {
		q += ` AND tm.status = $2`
		args = append(args, models.MemberActive)
	}
	q += ` ORDER BY tm.joined_at ASC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.UserID, &rec.Email, &rec.FullName); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanMember(row pgx.Row) (*models.TeamMember, error) {
	var m models.TeamMember
	var perms []string
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &perms, &m.Status, &m.JoinedAt, &m.LeftAt)
	if err != nil {
		return nil, err
	}
	if perms != nil {
		m.Permissions = make([]models.Capability, len(perms))
		for i, p := range perms {
			m.Permissions[i] = models.Capability(p)
		}
	}
	return &m, nil
}

func capabilityStrings(caps []models.Capability) []string {
	if caps == nil {
		return nil
	}
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
