package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by lifecycle and membership operations.
const (
	AuditWorkspaceProvisioned  = "WORKSPACE_PROVISIONED"
	AuditWindDownInitiated     = "WORKSPACE_WIND_DOWN_INITIATED"
	AuditDissolutionManual     = "DISSOLUTION_INITIATED_MANUALLY"
	AuditWorkspaceDissolved    = "WORKSPACE_DISSOLVED"
	AuditWorkspaceReactivated  = "WORKSPACE_REACTIVATED"
	AuditEmergencyRevoke       = "EMERGENCY_ACCESS_REVOKED"
	AuditSettingsUpdated       = "WORKSPACE_SETTINGS_UPDATED"
	AuditMemberAdded           = "MEMBER_ADDED"
	AuditMemberUpdated         = "MEMBER_UPDATED"
	AuditMemberDeactivated     = "MEMBER_DEACTIVATED"
	AuditIncidentReported      = "INCIDENT_REPORTED"
	AuditIncidentUpdated       = "INCIDENT_UPDATED"
	AuditTrailExported         = "AUDIT_TRAIL_EXPORTED"
	AuditAccessDenied          = "ACCESS_DENIED"
)

// Dissolution / wind-down reasons recorded in audit details.
const (
	ReasonEventCompleted   = "EVENT_COMPLETED"
	ReasonEventCancelled   = "EVENT_CANCELLED"
	ReasonRetentionElapsed = "RETENTION_PERIOD_ELAPSED"
	ReasonManual           = "MANUAL"
)

// AuditEntry is one immutable row of the workspace audit log. Entries are
// append-only; nothing in the service updates or deletes them.
type AuditEntry struct {
	ID          uuid.UUID       `json:"id"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	ResourceID  *uuid.UUID      `json:"resource_id,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
