package workspaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/evora-events/backend/internal/models"
)

// Store is the workspace persistence boundary. Mutating methods that change
// status are conditional on the expected current status and commit
// atomically, so a racing caller observes ErrInvalidTransition instead of
// double-applying an effect.
type Store interface {
	// Create inserts the workspace, its owner member, default channels and
	// seed tasks in one transaction.
	Create(ctx context.Context, ws *models.Workspace, owner *models.TeamMember, channels []models.Channel, tasks []models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*models.Workspace, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings models.WorkspaceSettings) error
	// TransitionStatus performs a compare-and-set status update; it returns
	// ErrInvalidTransition when the workspace is no longer in `from`.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.WorkspaceStatus) error
	// Dissolve sets DISSOLVED + dissolved_at and deactivates every member in
	// one transaction, guarded by the workspace currently being in one of
	// `from`.
	Dissolve(ctx context.Context, id uuid.UUID, from []models.WorkspaceStatus, at time.Time) error
	// Reactivate moves a DISSOLVED workspace back to ACTIVE, clears
	// dissolved_at and reactivates members whose left_at is set, in one
	// transaction.
	Reactivate(ctx context.Context, id uuid.UUID) error
	// ListSweepCandidates returns WINDING_DOWN workspaces whose event is
	// completed, cancelled, or past its end date.
	ListSweepCandidates(ctx context.Context, now time.Time) ([]SweepCandidate, error)
}

// SweepCandidate pairs a winding-down workspace with the event fields the
// sweeper needs to compute its dissolution date.
type SweepCandidate struct {
	Workspace   models.Workspace
	EventStatus models.EventStatus
	EventEndsAt time.Time
}

// EventSource resolves events for lifecycle decisions.
type EventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// PermissionChecker verifies a caller holds a capability within a workspace.
type PermissionChecker interface {
	Verify(ctx context.Context, workspaceID, userID uuid.UUID, capability models.Capability) error
}

// AuditRecorder appends audit entries. Implementations must never fail the
// calling operation; write errors are swallowed into the operational log.
type AuditRecorder interface {
	Record(ctx context.Context, workspaceID uuid.UUID, userID *uuid.UUID, action, resource string, resourceID *uuid.UUID, details map[string]any)
}

// Notifier dispatches team notifications. Calls are fire-and-forget; a
// notification failure never affects a committed transition.
type Notifier interface {
	WorkspaceWindingDown(ctx context.Context, workspaceID uuid.UUID, dissolveAt time.Time)
	WorkspaceDissolved(ctx context.Context, workspaceID uuid.UUID, reason string)
}

// IncidentReporter records a security incident for emergency revocations.
type IncidentReporter interface {
	ReportEmergency(ctx context.Context, workspaceID, userID uuid.UUID, reason string) error
}

// Service owns the workspace lifecycle state machine.
type Service struct {
	store     Store
	events    EventSource
	checker   PermissionChecker
	audit     AuditRecorder
	notifier  Notifier
	incidents IncidentReporter
	logger    *zap.Logger
}

// NewService creates the lifecycle service. notifier and incidents may be nil.
func NewService(store Store, events EventSource, checker PermissionChecker, audit AuditRecorder, notifier Notifier, incidents IncidentReporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		events:    events,
		checker:   checker,
		audit:     audit,
		notifier:  notifier,
		incidents: incidents,
		logger:    logger,
	}
}

// Provision creates the workspace for an event: workspace in PROVISIONING,
// owner member, default channels and seed tasks in one transaction, then the
// flip to ACTIVE. A second call for the same event fails with
// ErrAlreadyExists.
func (s *Service) Provision(ctx context.Context, eventID, organizerID uuid.UUID) (*models.Workspace, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	if ev.OrganizerID != organizerID {
		return nil, fmt.Errorf("user %s is not the organizer of event %s: %w", organizerID, eventID, ErrNotAuthorized)
	}

	if existing, err := s.store.GetByEventID(ctx, eventID); err == nil && existing != nil {
		return nil, ErrAlreadyExists
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing workspace: %w", err)
	}

	settings := models.DefaultWorkspaceSettings()
	ws := &models.Workspace{
		EventID:  eventID,
		Name:     ev.Title,
		Status:   models.WorkspaceProvisioning,
		Settings: settings,
	}
	owner := &models.TeamMember{
		UserID: organizerID,
		Role:   models.RoleWorkspaceOwner,
		Status: models.MemberActive,
	}

	if err := s.store.Create(ctx, ws, owner, defaultChannels(settings), seedTasks(settings)); err != nil {
		if isUniqueViolation(err) {
			// Racing provision for the same event; the unique event_id
			// constraint is the final arbiter.
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	if err := s.store.TransitionStatus(ctx, ws.ID, models.WorkspaceProvisioning, models.WorkspaceActive); err != nil {
		// Leave the workspace in PROVISIONING; a retry can complete the flip.
		return nil, fmt.Errorf("activate workspace %s: %w", ws.ID, err)
	}
	ws.Status = models.WorkspaceActive

	s.audit.Record(ctx, ws.ID, &organizerID, models.AuditWorkspaceProvisioned, "workspace", &ws.ID, map[string]any{
		"event_id":              eventID.String(),
		"retention_period_days": settings.RetentionPeriodDays,
	})
	return ws, nil
}

// HandleEventCompleted moves an ACTIVE workspace into WINDING_DOWN and
// records the scheduled dissolution date. Anything other than ACTIVE is a
// no-op so an already-dissolving workspace is not re-triggered.
func (s *Service) HandleEventCompleted(ctx context.Context, workspaceID uuid.UUID) error {
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.Status != models.WorkspaceActive {
		return nil
	}
	if err := s.store.TransitionStatus(ctx, ws.ID, models.WorkspaceActive, models.WorkspaceWindingDown); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Lost a race with another transition; treat as the no-op above.
			return nil
		}
		return err
	}

	details := map[string]any{"reason": models.ReasonEventCompleted}
	dissolveAt, err := s.dissolutionDate(ctx, ws)
	if err != nil {
		// dissolveAt stays zero; the notifier omits the date from the notice.
		s.logger.Warn("compute dissolution date", zap.String("workspace_id", ws.ID.String()), zap.Error(err))
	} else {
		details["scheduled_dissolution"] = dissolveAt
	}

	s.audit.Record(ctx, ws.ID, nil, models.AuditWindDownInitiated, "workspace", &ws.ID, details)
	if s.notifier != nil {
		s.notifier.WorkspaceWindingDown(ctx, ws.ID, dissolveAt)
	}
	return nil
}

// HandleEventCancelled dissolves the workspace immediately: a cancelled
// event has no reason to retain collaboration data, so the retention window
// is bypassed entirely.
func (s *Service) HandleEventCancelled(ctx context.Context, workspaceID uuid.UUID) error {
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.Status == models.WorkspaceDissolved {
		return nil
	}
	from := []models.WorkspaceStatus{models.WorkspaceProvisioning, models.WorkspaceActive, models.WorkspaceWindingDown}
	if err := s.store.Dissolve(ctx, ws.ID, from, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}
	s.audit.Record(ctx, ws.ID, nil, models.AuditWorkspaceDissolved, "workspace", &ws.ID, map[string]any{
		"reason": models.ReasonEventCancelled,
	})
	if s.notifier != nil {
		s.notifier.WorkspaceDissolved(ctx, ws.ID, models.ReasonEventCancelled)
	}
	return nil
}

// HandleEventReactivated restores a DISSOLVED workspace to ACTIVE, clearing
// dissolved_at and reactivating every member that had been deactivated.
//
// The reference behavior guarded reactivation on dissolved_at being absent,
// which made reactivation after cancellation unreachable because the
// cancellation path sets dissolved_at. The guard was the bug: eligibility
// here is simply the workspace being DISSOLVED.
func (s *Service) HandleEventReactivated(ctx context.Context, workspaceID uuid.UUID) error {
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.Status != models.WorkspaceDissolved {
		return nil
	}
	if err := s.store.Reactivate(ctx, ws.ID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}
	s.audit.Record(ctx, ws.ID, nil, models.AuditWorkspaceReactivated, "workspace", &ws.ID, nil)
	return nil
}

// InitiateWindDown starts a manual wind-down. Requires MANAGE_WORKSPACE and
// a currently ACTIVE workspace. retentionOverride, when set, replaces
// settings.retention_period_days, written only once the transition has
// committed so a failed transition leaves the settings untouched.
func (s *Service) InitiateWindDown(ctx context.Context, workspaceID, userID uuid.UUID, retentionOverride *int) error {
	if err := s.verify(ctx, workspaceID, userID, models.CapManageWorkspace); err != nil {
		return err
	}
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.Status != models.WorkspaceActive {
		return fmt.Errorf("workspace %s is %s: %w", ws.ID, ws.Status, ErrInvalidTransition)
	}
	if err := s.store.TransitionStatus(ctx, ws.ID, models.WorkspaceActive, models.WorkspaceWindingDown); err != nil {
		return err
	}
	if retentionOverride != nil {
		ws.Settings = models.ApplySettingsUpdate(ws.Settings, models.SettingsUpdate{RetentionPeriodDays: retentionOverride})
		if err := s.store.UpdateSettings(ctx, ws.ID, ws.Settings); err != nil {
			return fmt.Errorf("update retention period: %w", err)
		}
	}

	details := map[string]any{
		"reason":                models.ReasonManual,
		"retention_period_days": ws.Settings.RetentionPeriodDays,
	}
	dissolveAt, err := s.dissolutionDate(ctx, ws)
	if err != nil {
		s.logger.Warn("compute dissolution date", zap.String("workspace_id", ws.ID.String()), zap.Error(err))
	} else {
		details["scheduled_dissolution"] = dissolveAt
	}
	s.audit.Record(ctx, ws.ID, &userID, models.AuditDissolutionManual, "workspace", &ws.ID, details)
	if s.notifier != nil {
		s.notifier.WorkspaceWindingDown(ctx, ws.ID, dissolveAt)
	}
	return nil
}

// EmergencyRevoke deactivates all members and dissolves the workspace
// immediately, skipping WINDING_DOWN. This is the only path that can jump
// ACTIVE -> DISSOLVED directly; it models a security emergency and records a
// critical incident.
func (s *Service) EmergencyRevoke(ctx context.Context, workspaceID, userID uuid.UUID, reason string) error {
	if err := s.verify(ctx, workspaceID, userID, models.CapManageWorkspace); err != nil {
		return err
	}
	from := []models.WorkspaceStatus{models.WorkspaceActive, models.WorkspaceWindingDown}
	if err := s.store.Dissolve(ctx, workspaceID, from, time.Now().UTC()); err != nil {
		return err
	}
	s.audit.Record(ctx, workspaceID, &userID, models.AuditEmergencyRevoke, "workspace", &workspaceID, map[string]any{
		"reason": reason,
	})
	if s.incidents != nil {
		if err := s.incidents.ReportEmergency(ctx, workspaceID, userID, reason); err != nil {
			s.logger.Error("record emergency incident", zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.WorkspaceDissolved(ctx, workspaceID, reason)
	}
	return nil
}

// UpdateSettings applies a partial settings update through the single merge
// path. Requires MANAGE_WORKSPACE.
func (s *Service) UpdateSettings(ctx context.Context, workspaceID, userID uuid.UUID, update models.SettingsUpdate) (*models.Workspace, error) {
	if err := s.verify(ctx, workspaceID, userID, models.CapManageWorkspace); err != nil {
		return nil, err
	}
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	ws.Settings = models.ApplySettingsUpdate(ws.Settings, update)
	if err := s.store.UpdateSettings(ctx, ws.ID, ws.Settings); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.audit.Record(ctx, ws.ID, &userID, models.AuditSettingsUpdated, "workspace", &ws.ID, map[string]any{
		"retention_period_days": ws.Settings.RetentionPeriodDays,
	})
	return ws, nil
}

// LifecycleStatus is the read model for GET /workspaces/:id/status.
type LifecycleStatus struct {
	Status               models.WorkspaceStatus   `json:"status"`
	CanTransitionTo      []models.WorkspaceStatus `json:"can_transition_to"`
	RetentionPeriodDays  int                      `json:"retention_period_days"`
	ScheduledDissolution *time.Time               `json:"scheduled_dissolution,omitempty"`
	DaysUntilDissolution *int                     `json:"days_until_dissolution,omitempty"`
	DissolvedAt          *time.Time               `json:"dissolved_at,omitempty"`
}

// Status returns the lifecycle read model. Pure read; the scheduled
// dissolution is derived only while the workspace is WINDING_DOWN.
func (s *Service) Status(ctx context.Context, workspaceID uuid.UUID) (*LifecycleStatus, error) {
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	st := &LifecycleStatus{
		Status:              ws.Status,
		CanTransitionTo:     NextStatuses(ws.Status),
		RetentionPeriodDays: ws.Settings.RetentionPeriodDays,
		DissolvedAt:         ws.DissolvedAt,
	}
	if ws.Status == models.WorkspaceWindingDown {
		dissolveAt, err := s.dissolutionDate(ctx, ws)
		if err != nil {
			return nil, err
		}
		st.ScheduledDissolution = &dissolveAt
		days := int(time.Until(dissolveAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		st.DaysUntilDissolution = &days
	}
	return st, nil
}

// Get returns a workspace by id, mapping a missing row to ErrNotFound.
func (s *Service) Get(ctx context.Context, workspaceID uuid.UUID) (*models.Workspace, error) {
	return s.getWorkspace(ctx, workspaceID)
}

// Sweep dissolves every winding-down workspace whose retention window has
// elapsed. A failure on one workspace is logged and does not stop the rest
// of the batch. Returns the number of workspaces dissolved.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	candidates, err := s.store.ListSweepCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list sweep candidates: %w", err)
	}

	dissolved := 0
	for _, cand := range candidates {
		dissolveAt := cand.EventEndsAt.AddDate(0, 0, cand.Workspace.Settings.RetentionPeriodDays)
		if now.Before(dissolveAt) {
			continue
		}
		wsID := cand.Workspace.ID
		if err := s.store.Dissolve(ctx, wsID, []models.WorkspaceStatus{models.WorkspaceWindingDown}, now); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				// Another operation got there first; nothing to retry.
				continue
			}
			s.logger.Error("sweep: dissolve workspace", zap.String("workspace_id", wsID.String()), zap.Error(err))
			continue
		}
		dissolved++
		s.audit.Record(ctx, wsID, nil, models.AuditWorkspaceDissolved, "workspace", &wsID, map[string]any{
			"reason":           models.ReasonRetentionElapsed,
			"dissolution_date": dissolveAt,
		})
		if s.notifier != nil {
			s.notifier.WorkspaceDissolved(ctx, wsID, models.ReasonRetentionElapsed)
		}
	}
	return dissolved, nil
}

func (s *Service) getWorkspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	return ws, nil
}

// verify runs the permission check and audits denials; the check itself has
// no side effects.
func (s *Service) verify(ctx context.Context, workspaceID, userID uuid.UUID, capability models.Capability) error {
	err := s.checker.Verify(ctx, workspaceID, userID, capability)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrNotAuthorized) {
		s.audit.Record(ctx, workspaceID, &userID, models.AuditAccessDenied, "workspace", &workspaceID, map[string]any{
			"required_capability": string(capability),
		})
	}
	return err
}

// dissolutionDate computes event.ends_at + retention for the workspace.
func (s *Service) dissolutionDate(ctx context.Context, ws *models.Workspace) (time.Time, error) {
	ev, err := s.events.GetByID(ctx, ws.EventID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load event %s: %w", ws.EventID, err)
	}
	return ev.EndsAt.AddDate(0, 0, ws.Settings.RetentionPeriodDays), nil
}

// defaultChannels builds the three provisioned channels. The names come from
// settings but the types are fixed by position: general, announcements, tasks.
func defaultChannels(settings models.WorkspaceSettings) []models.Channel {
	types := []models.ChannelType{models.ChannelGeneral, models.ChannelAnnouncement, models.ChannelTaskSpecific}
	channels := make([]models.Channel, 0, len(settings.DefaultChannels))
	for i, name := range settings.DefaultChannels {
		t := models.ChannelGeneral
		if i < len(types) {
			t = types[i]
		}
		channels = append(channels, models.Channel{Name: name, Type: t})
	}
	return channels
}

// seedTasks builds one open kickoff task per configured category.
func seedTasks(settings models.WorkspaceSettings) []models.Task {
	tasks := make([]models.Task, 0, len(settings.TaskCategories))
	for _, category := range settings.TaskCategories {
		tasks = append(tasks, models.Task{
			Title:    "Plan " + category,
			Category: category,
			Status:   models.TaskOpen,
		})
	}
	return tasks
}
