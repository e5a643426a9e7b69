package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType classifies a workspace communication channel.
type ChannelType string

const (
	ChannelGeneral      ChannelType = "GENERAL"
	ChannelAnnouncement ChannelType = "ANNOUNCEMENT"
	ChannelTaskSpecific ChannelType = "TASK_SPECIFIC"
)

// Channel is a communication channel scoped to one workspace.
type Channel struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	Name        string      `json:"name"`
	Type        ChannelType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ChannelMessage is one message posted to a channel.
type ChannelMessage struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
