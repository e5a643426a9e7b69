package channels

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evora-events/backend/internal/models"
)

// Repository handles channel and channel message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a channels repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a channel by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	const q = `SELECT id, workspace_id, name, type, created_at FROM channels WHERE id = $1`
	var ch models.Channel
	err := r.pool.QueryRow(ctx, q, id).Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.Type, &ch.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ListByWorkspace returns a workspace's channels in creation order.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	const q = `SELECT id, workspace_id, name, type, created_at FROM channels
		WHERE workspace_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.Type, &ch.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// CreateMessage inserts a channel message.
func (r *Repository) CreateMessage(ctx context.Context, m *models.ChannelMessage) error {
	const q = `INSERT INTO channel_messages (id, channel_id, sender_id, body)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ChannelID, m.SenderID, m.Body).Scan(&m.ID, &m.CreatedAt)
}

// ListMessages returns a channel's messages, newest first, capped at limit
// (0 means the default of 100).
func (r *Repository) ListMessages(ctx context.Context, channelID uuid.UUID, limit int) ([]models.ChannelMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, channel_id, sender_id, body, created_at FROM channel_messages
		WHERE channel_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ChannelMessage
	for rows.Next() {
		var m models.ChannelMessage
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
