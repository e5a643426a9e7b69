package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentSeverity grades a security incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "LOW"
	SeverityMedium   IncidentSeverity = "MEDIUM"
	SeverityHigh     IncidentSeverity = "HIGH"
	SeverityCritical IncidentSeverity = "CRITICAL"
)

// IncidentStatus is the handling status of a security incident.
type IncidentStatus string

const (
	IncidentDetected   IncidentStatus = "DETECTED"
	IncidentResponding IncidentStatus = "RESPONDING"
	IncidentResolved   IncidentStatus = "RESOLVED"
)

// ResponseAction is one step taken while handling an incident.
type ResponseAction struct {
	Action  string    `json:"action"`
	TakenBy uuid.UUID `json:"taken_by"`
	TakenAt time.Time `json:"taken_at"`
}

// SecurityIncident records unauthorized access or an explicit report within
// a workspace.
type SecurityIncident struct {
	ID              uuid.UUID        `json:"id"`
	WorkspaceID     uuid.UUID        `json:"workspace_id"`
	ReportedBy      uuid.UUID        `json:"reported_by"`
	Severity        IncidentSeverity `json:"severity"`
	Status          IncidentStatus   `json:"status"`
	Description     string           `json:"description"`
	ResponseActions []ResponseAction `json:"response_actions"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
