package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, organizer_id, status, starts_at, ends_at, created_at, updated_at`

// Create inserts a new event in DRAFT.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, organizer_id, status, starts_at, ends_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.OrganizerID, e.Status, e.StartsAt, e.EndsAt).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Title, &e.Description, &e.OrganizerID, &e.Status,
		&e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events, optionally filtered by organizer.
func (r *Repository) List(ctx context.Context, organizerID *uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if organizerID != nil {
		q += ` WHERE organizer_id = $1`
		args = append(args, *organizerID)
	}
	q += ` ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.OrganizerID, &e.Status,
			&e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// TransitionStatus is a conditional event status update guarded by the
// expected current statuses. Returns false when no row matched.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []models.EventStatus, to models.EventStatus) (bool, error) {
	const q = `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2 AND status = ANY($3)`
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, q, to, id, fromStrs)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateSchedule changes the event's start/end times.
func (r *Repository) UpdateSchedule(ctx context.Context, id uuid.UUID, startsAt, endsAt time.Time) error {
	const q = `UPDATE events SET starts_at = $1, ends_at = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, startsAt, endsAt, id)
	return err
}
