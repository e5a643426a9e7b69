package workspaces

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workspace repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workspaceColumns = `id, event_id, name, status, settings, dissolved_at, created_at, updated_at`

// Create inserts the workspace, owner member, default channels and seed
// tasks in a single transaction. The unique event_id constraint rejects a
// racing duplicate provision.
func (r *Repository) Create(ctx context.Context, ws *models.Workspace, owner *models.TeamMember, channels []models.Channel, tasks []models.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertWorkspace = `INSERT INTO workspaces (id, event_id, name, status, settings)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertWorkspace, ws.EventID, ws.Name, ws.Status, ws.Settings).
		Scan(&ws.ID, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
		return err
	}

	const insertMember = `INSERT INTO team_members (id, workspace_id, user_id, role, permissions, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, joined_at`
	owner.WorkspaceID = ws.ID
	if err := tx.QueryRow(ctx, insertMember, ws.ID, owner.UserID, owner.Role, capabilityStrings(owner.Permissions), owner.Status).
		Scan(&owner.ID, &owner.JoinedAt); err != nil {
		return err
	}

	const insertChannel = `INSERT INTO channels (id, workspace_id, name, type)
		VALUES (gen_random_uuid(), $1, $2, $3)`
	for _, ch := range channels {
		if _, err := tx.Exec(ctx, insertChannel, ws.ID, ch.Name, ch.Type); err != nil {
			return err
		}
	}

	const insertTask = `INSERT INTO tasks (id, workspace_id, title, category, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)`
	for _, t := range tasks {
		if _, err := tx.Exec(ctx, insertTask, ws.ID, t.Title, t.Category, t.Status); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a workspace by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	const q = `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	return r.scanWorkspace(r.pool.QueryRow(ctx, q, id))
}

// GetByEventID returns the workspace owned by an event.
func (r *Repository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*models.Workspace, error) {
	const q = `SELECT ` + workspaceColumns + ` FROM workspaces WHERE event_id = $1`
	return r.scanWorkspace(r.pool.QueryRow(ctx, q, eventID))
}

// UpdateSettings replaces the settings record.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, settings models.WorkspaceSettings) error {
	const q = `UPDATE workspaces SET settings = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, settings, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionStatus is a conditional status update: the WHERE clause carries
// the expected current status so two racing transitions cannot both commit.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.WorkspaceStatus) error {
	const q = `UPDATE workspaces SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Dissolve sets DISSOLVED + dissolved_at and deactivates all active members
// in one transaction, guarded by the current status being one of `from`.
func (r *Repository) Dissolve(ctx context.Context, id uuid.UUID, from []models.WorkspaceStatus, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const dissolve = `UPDATE workspaces SET status = $1, dissolved_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)`
	tag, err := tx.Exec(ctx, dissolve, models.WorkspaceDissolved, at, id, statusStrings(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	const deactivate = `UPDATE team_members SET status = $1, left_at = $2
		WHERE workspace_id = $3 AND status = $4`
	if _, err := tx.Exec(ctx, deactivate, models.MemberInactive, at, id, models.MemberActive); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Reactivate moves a DISSOLVED workspace back to ACTIVE, clearing
// dissolved_at and restoring every member that had been deactivated.
func (r *Repository) Reactivate(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const restore = `UPDATE workspaces SET status = $1, dissolved_at = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3`
	tag, err := tx.Exec(ctx, restore, models.WorkspaceActive, id, models.WorkspaceDissolved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	const rejoin = `UPDATE team_members SET status = $1, left_at = NULL
		WHERE workspace_id = $2 AND left_at IS NOT NULL`
	if _, err := tx.Exec(ctx, rejoin, models.MemberActive, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListSweepCandidates returns winding-down workspaces whose event has
// completed, been cancelled, or passed its end date.
func (r *Repository) ListSweepCandidates(ctx context.Context, now time.Time) ([]SweepCandidate, error) {
	const q = `SELECT w.id, w.event_id, w.name, w.status, w.settings, w.dissolved_at, w.created_at, w.updated_at,
			e.status, e.ends_at
		FROM workspaces w
		INNER JOIN events e ON e.id = w.event_id
		WHERE w.status = $1 AND (e.status = ANY($2) OR e.ends_at < $3)
		ORDER BY e.ends_at ASC`
	terminal := []string{string(models.EventCompleted), string(models.EventCancelled)}
	rows, err := r.pool.Query(ctx, q, models.WorkspaceWindingDown, terminal, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []SweepCandidate
	for rows.Next() {
		var c SweepCandidate
		if err := rows.Scan(&c.Workspace.ID, &c.Workspace.EventID, &c.Workspace.Name, &c.Workspace.Status,
			&c.Workspace.Settings, &c.Workspace.DissolvedAt, &c.Workspace.CreatedAt, &c.Workspace.UpdatedAt,
			&c.EventStatus, &c.EventEndsAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) scanWorkspace(row pgx.Row) (*models.Workspace, error) {
	var ws models.Workspace
	err := row.Scan(&ws.ID, &ws.EventID, &ws.Name, &ws.Status, &ws.Settings, &ws.DissolvedAt, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func statusStrings(statuses []models.WorkspaceStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
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
