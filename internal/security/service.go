package security

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/models"
)

// Service records and advances security incidents.
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates a security incident service.
func NewService(repo *Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Report creates a new incident in DETECTED.
func (s *Service) Report(ctx context.Context, workspaceID, reportedBy uuid.UUID, severity models.IncidentSeverity, description string) (*models.SecurityIncident, error) {
	inc := &models.SecurityIncident{
		WorkspaceID: workspaceID,
		ReportedBy:  reportedBy,
		Severity:    severity,
		Status:      models.IncidentDetected,
		Description: description,
	}
	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, err
	}
	s.logger.Warn("security incident reported",
		zap.String("incident_id", inc.ID.String()),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("severity", string(severity)))
	return inc, nil
}

// ReportEmergency records the critical incident behind an emergency access
// revocation, including the revocation itself as the first response action.
func (s *Service) ReportEmergency(ctx context.Context, workspaceID, userID uuid.UUID, reason string) error {
	inc := &models.SecurityIncident{
		WorkspaceID: workspaceID,
		ReportedBy:  userID,
		Severity:    models.SeverityCritical,
		Status:      models.IncidentResponding,
		Description: reason,
		ResponseActions: []models.ResponseAction{{
			Action:  "emergency access revocation",
			TakenBy: userID,
			TakenAt: time.Now().UTC(),
		}},
	}
	return s.repo.Create(ctx, inc)
}

// Respond appends a response action, moving the incident to RESPONDING.
func (s *Service) Respond(ctx context.Context, incidentID, userID uuid.UUID, action string) error {
	return s.repo.AppendResponse(ctx, incidentID, models.ResponseAction{
		Action:  action,
		TakenBy: userID,
		TakenAt: time.Now().UTC(),
	}, models.IncidentResponding)
}

// Resolve appends a closing action and marks the incident RESOLVED.
func (s *Service) Resolve(ctx context.Context, incidentID, userID uuid.UUID, action string) error {
	if action == "" {
		action = "incident resolved"
	}
	return s.repo.AppendResponse(ctx, incidentID, models.ResponseAction{
		Action:  action,
		TakenBy: userID,
		TakenAt: time.Now().UTC(),
	}, models.IncidentResolved)
}
