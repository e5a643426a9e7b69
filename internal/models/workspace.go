package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceStatus is the lifecycle status of a workspace.
type WorkspaceStatus string

const (
	WorkspaceProvisioning WorkspaceStatus = "PROVISIONING"
	WorkspaceActive       WorkspaceStatus = "ACTIVE"
	WorkspaceWindingDown  WorkspaceStatus = "WINDING_DOWN"
	WorkspaceDissolved    WorkspaceStatus = "DISSOLVED"
)

// DefaultRetentionDays is how long a workspace survives in WINDING_DOWN
// after its event ends, unless overridden in settings.
const DefaultRetentionDays = 30

// WorkspaceSettings is the typed configuration record for a workspace.
// All updates go through ApplySettingsUpdate so partial updates never drop
// sibling fields.
type WorkspaceSettings struct {
	RetentionPeriodDays  int      `json:"retention_period_days"`
	DefaultChannels      []string `json:"default_channels"`
	TaskCategories       []string `json:"task_categories"`
	AllowExternalMembers bool     `json:"allow_external_members"`
}

// SettingsUpdate is a partial settings change; nil fields are left untouched.
type SettingsUpdate struct {
	RetentionPeriodDays  *int      `json:"retention_period_days,omitempty"`
	DefaultChannels      *[]string `json:"default_channels,omitempty"`
	TaskCategories       *[]string `json:"task_categories,omitempty"`
	AllowExternalMembers *bool     `json:"allow_external_members,omitempty"`
}

// DefaultWorkspaceSettings returns the settings applied at provisioning time.
func DefaultWorkspaceSettings() WorkspaceSettings {
	return WorkspaceSettings{
		RetentionPeriodDays:  DefaultRetentionDays,
		DefaultChannels:      []string{"general", "announcements", "tasks"},
		TaskCategories:       []string{"setup", "logistics", "marketing", "wrap-up"},
		AllowExternalMembers: false,
	}
}

// ApplySettingsUpdate merges a partial update into existing settings.
// Explicit fields win; a negative retention period is clamped to zero.
func ApplySettingsUpdate(s WorkspaceSettings, u SettingsUpdate) WorkspaceSettings {
	if u.RetentionPeriodDays != nil {
		s.RetentionPeriodDays = *u.RetentionPeriodDays
		if s.RetentionPeriodDays < 0 {
			s.RetentionPeriodDays = 0
		}
	}
	if u.DefaultChannels != nil {
		s.DefaultChannels = *u.DefaultChannels
	}
	if u.TaskCategories != nil {
		s.TaskCategories = *u.TaskCategories
	}
	if u.AllowExternalMembers != nil {
		s.AllowExternalMembers = *u.AllowExternalMembers
	}
	return s
}

// Workspace is the collaborative space owned by exactly one event.
type Workspace struct {
	ID          uuid.UUID         `json:"id"`
	EventID     uuid.UUID         `json:"event_id"`
	Name        string            `json:"name"`
	Status      WorkspaceStatus   `json:"status"`
	Settings    WorkspaceSettings `json:"settings"`
	DissolvedAt *time.Time        `json:"dissolved_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
