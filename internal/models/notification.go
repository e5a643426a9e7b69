package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus is the delivery status of a notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationLog records one notification delivery attempt to a team member.
type NotificationLog struct {
	ID          uuid.UUID          `json:"id"`
	WorkspaceID uuid.UUID          `json:"workspace_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Kind        string             `json:"kind"`
	Recipient   string             `json:"recipient"`
	Subject     string             `json:"subject"`
	Status      NotificationStatus `json:"status"`
	Error       string             `json:"error,omitempty"`
	SentAt      *time.Time         `json:"sent_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
