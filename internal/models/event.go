package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event represents a platform event. Each event owns at most one workspace.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	OrganizerID uuid.UUID   `json:"organizer_id"`
	Status      EventStatus `json:"status"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Ended reports whether the event's scheduled end has passed.
func (e *Event) Ended(now time.Time) bool {
	return now.After(e.EndsAt)
}
