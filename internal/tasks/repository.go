package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles task persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, workspace_id, title, category, status, assignee_id, due_date, created_at, updated_at`

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	const q = `INSERT INTO tasks (id, workspace_id, title, category, status, assignee_id, due_date)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.WorkspaceID, t.Title, t.Category, t.Status, t.AssigneeID, t.DueDate).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a task by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var t models.Task
	err := r.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Category, &t.Status,
		&t.AssigneeID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByWorkspace returns a workspace's tasks, optionally filtered by
// category.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, category string) ([]models.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if category != "" {
		q += ` AND category = $2`
		args = append(args, category)
	}
	q += ` ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Title, &t.Category, &t.Status,
			&t.AssigneeID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// UpdateStatus changes a task's progress status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error {
	const q = `UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, status, id)
	return err
}

// UpdateAssignee changes a task's assignee; nil unassigns.
func (r *Repository) UpdateAssignee(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) error {
	const q = `UPDATE tasks SET assignee_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, assigneeID, id)
	return err
}

// UpdateDetails changes title, category and due date.
func (r *Repository) UpdateDetails(ctx context.Context, id uuid.UUID, title, category string, dueDate *time.Time) error {
	const q = `UPDATE tasks SET title = COALESCE(NULLIF($1, ''), title),
		category = COALESCE(NULLIF($2, ''), category),
		due_date = COALESCE($3, due_date),
		updated_at = NOW()
		WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, title, category, dueDate, id)
	return err
}
