package workspaces

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evora-events/backend/internal/models"
)

type fakeStore struct {
	workspaces map[uuid.UUID]*models.Workspace
	byEvent    map[uuid.UUID]uuid.UUID
	members    map[uuid.UUID][]*models.TeamMember
	channels   map[uuid.UUID][]models.Channel
	tasks      map[uuid.UUID][]models.Task
	candidates []SweepCandidate

	failDissolve map[uuid.UUID]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspaces:   make(map[uuid.UUID]*models.Workspace),
		byEvent:      make(map[uuid.UUID]uuid.UUID),
		members:      make(map[uuid.UUID][]*models.TeamMember),
		channels:     make(map[uuid.UUID][]models.Channel),
		tasks:        make(map[uuid.UUID][]models.Task),
		failDissolve: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) Create(_ context.Context, ws *models.Workspace, owner *models.TeamMember, channels []models.Channel, tasks []models.Task) error {
	if _, dup := f.byEvent[ws.EventID]; dup {
		return ErrAlreadyExists
	}
	ws.ID = uuid.New()
	ws.CreatedAt = time.Now()
	f.workspaces[ws.ID] = ws
	f.byEvent[ws.EventID] = ws.ID
	owner.ID = uuid.New()
	owner.WorkspaceID = ws.ID
	f.members[ws.ID] = []*models.TeamMember{owner}
	f.channels[ws.ID] = channels
	f.tasks[ws.ID] = tasks
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws, ok := f.workspaces[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeStore) GetByEventID(_ context.Context, eventID uuid.UUID) (*models.Workspace, error) {
	id, ok := f.byEvent[eventID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *f.workspaces[id]
	return &cp, nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, id uuid.UUID, settings models.WorkspaceSettings) error {
	ws, ok := f.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	ws.Settings = settings
	return nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.WorkspaceStatus) error {
	ws, ok := f.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	if ws.Status != from {
		return ErrInvalidTransition
	}
	ws.Status = to
	return nil
}

func (f *fakeStore) Dissolve(_ context.Context, id uuid.UUID, from []models.WorkspaceStatus, at time.Time) error {
	if err, ok := f.failDissolve[id]; ok {
		return err
	}
	ws, ok := f.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	matched := false
	for _, s := range from {
		if ws.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return ErrInvalidTransition
	}
	ws.Status = models.WorkspaceDissolved
	ws.DissolvedAt = &at
	for _, m := range f.members[id] {
		if m.Status == models.MemberActive {
			m.Status = models.MemberInactive
			left := at
			m.LeftAt = &left
		}
	}
	return nil
}

func (f *fakeStore) Reactivate(_ context.Context, id uuid.UUID) error {
	ws, ok := f.workspaces[id]
	if !ok {
		return ErrNotFound
	}
	if ws.Status != models.WorkspaceDissolved {
		return ErrInvalidTransition
	}
	ws.Status = models.WorkspaceActive
	ws.DissolvedAt = nil
	for _, m := range f.members[id] {
		if m.LeftAt != nil {
			m.Status = models.MemberActive
			m.LeftAt = nil
		}
	}
	return nil
}

func (f *fakeStore) ListSweepCandidates(_ context.Context, _ time.Time) ([]SweepCandidate, error) {
	return f.candidates, nil
}

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ev, nil
}

// allowAll grants every capability to every caller.
type allowAll struct{}

func (allowAll) Verify(context.Context, uuid.UUID, uuid.UUID, models.Capability) error { return nil }

// denyAll refuses every capability.
type denyAll struct{ err error }

func (d denyAll) Verify(context.Context, uuid.UUID, uuid.UUID, models.Capability) error {
	return d.err
}

type auditSpy struct {
	actions     []string
	lastDetails map[string]any
}

func (a *auditSpy) Record(_ context.Context, _ uuid.UUID, _ *uuid.UUID, action, _ string, _ *uuid.UUID, details map[string]any) {
	a.actions = append(a.actions, action)
	a.lastDetails = details
}

func (a *auditSpy) has(action string) bool {
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

type notifierSpy struct {
	windDowns  []uuid.UUID
	dissolved  []uuid.UUID
	lastReason string
}

func (n *notifierSpy) WorkspaceWindingDown(_ context.Context, id uuid.UUID, _ time.Time) {
	n.windDowns = append(n.windDowns, id)
}

func (n *notifierSpy) WorkspaceDissolved(_ context.Context, id uuid.UUID, reason string) {
	n.dissolved = append(n.dissolved, id)
	n.lastReason = reason
}

type incidentSpy struct {
	reported int
	err      error
}

func (i *incidentSpy) ReportEmergency(context.Context, uuid.UUID, uuid.UUID, string) error {
	i.reported++
	return i.err
}

type fixture struct {
	store     *fakeStore
	events    *fakeEvents
	audit     *auditSpy
	notifier  *notifierSpy
	incidents *incidentSpy
	svc       *Service
}

func newFixture(checker PermissionChecker) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		events:    &fakeEvents{events: make(map[uuid.UUID]*models.Event)},
		audit:     &auditSpy{},
		notifier:  &notifierSpy{},
		incidents: &incidentSpy{},
	}
	f.svc = NewService(f.store, f.events, checker, f.audit, f.notifier, f.incidents, nil)
	return f
}

func (f *fixture) addEvent(organizerID uuid.UUID, endsAt time.Time) *models.Event {
	ev := &models.Event{
		ID:          uuid.New(),
		Title:       "Summer Conference",
		OrganizerID: organizerID,
		Status:      models.EventPublished,
		StartsAt:    endsAt.Add(-8 * time.Hour),
		EndsAt:      endsAt,
	}
	f.events.events[ev.ID] = ev
	return ev
}

func (f *fixture) provision(t *testing.T, organizerID uuid.UUID, endsAt time.Time) *models.Workspace {
	t.Helper()
	ev := f.addEvent(organizerID, endsAt)
	ws, err := f.svc.Provision(context.Background(), ev.ID, organizerID)
	require.NoError(t, err)
	return ws
}

func TestProvisionCreatesActiveWorkspace(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	assert.Equal(t, models.WorkspaceActive, ws.Status)
	assert.Equal(t, "Summer Conference", ws.Name)
	assert.Equal(t, models.DefaultRetentionDays, ws.Settings.RetentionPeriodDays)

	members := f.store.members[ws.ID]
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleWorkspaceOwner, members[0].Role)
	assert.Equal(t, organizer, members[0].UserID)

	channels := f.store.channels[ws.ID]
	require.Len(t, channels, 3)
	assert.Equal(t, "general", channels[0].Name)
	assert.Equal(t, models.ChannelAnnouncement, channels[1].Type)

	tasks := f.store.tasks[ws.ID]
	require.Len(t, tasks, 4)
	assert.Equal(t, "Plan setup", tasks[0].Title)
	assert.Equal(t, models.TaskOpen, tasks[0].Status)

	assert.True(t, f.audit.has(models.AuditWorkspaceProvisioned))
}

func TestProvisionRejectsNonOrganizer(t *testing.T) {
	f := newFixture(allowAll{})
	ev := f.addEvent(uuid.New(), time.Now().Add(24*time.Hour))

	_, err := f.svc.Provision(context.Background(), ev.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestProvisionDuplicateEvent(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ev := f.addEvent(organizer, time.Now().Add(24*time.Hour))

	_, err := f.svc.Provision(context.Background(), ev.ID, organizer)
	require.NoError(t, err)

	_, err = f.svc.Provision(context.Background(), ev.ID, organizer)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestProvisionUnknownEvent(t *testing.T) {
	f := newFixture(allowAll{})
	_, err := f.svc.Provision(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventCompletedStartsWindDown(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(-time.Hour))

	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceWindingDown, got.Status)
	assert.True(t, f.audit.has(models.AuditWindDownInitiated))
	assert.Equal(t, []uuid.UUID{ws.ID}, f.notifier.windDowns)

	// Second completion is a no-op, not an error.
	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), ws.ID))
	assert.Len(t, f.notifier.windDowns, 1)
}

func TestEventCancelledDissolvesImmediately(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.HandleEventCancelled(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
	require.NotNil(t, got.DissolvedAt)

	// Members lose access as part of the same operation.
	for _, m := range f.store.members[ws.ID] {
		assert.Equal(t, models.MemberInactive, m.Status)
	}
	assert.Equal(t, models.ReasonEventCancelled, f.notifier.lastReason)
	assert.True(t, f.audit.has(models.AuditWorkspaceDissolved))
}

func TestReactivationRestoresCancelledWorkspace(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	// Cancellation sets dissolved_at; reactivation must still work.
	require.NoError(t, f.svc.HandleEventCancelled(context.Background(), ws.ID))
	require.NoError(t, f.svc.HandleEventReactivated(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceActive, got.Status)
	assert.Nil(t, got.DissolvedAt)
	for _, m := range f.store.members[ws.ID] {
		assert.Equal(t, models.MemberActive, m.Status)
		assert.Nil(t, m.LeftAt)
	}
	assert.True(t, f.audit.has(models.AuditWorkspaceReactivated))
}

func TestReactivationIgnoresLiveWorkspace(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.HandleEventReactivated(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceActive, got.Status)
	assert.False(t, f.audit.has(models.AuditWorkspaceReactivated))
}

func TestInitiateWindDownAppliesRetentionOverride(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	override := 7
	require.NoError(t, f.svc.InitiateWindDown(context.Background(), ws.ID, organizer, &override))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceWindingDown, got.Status)
	assert.Equal(t, 7, got.Settings.RetentionPeriodDays)
	assert.True(t, f.audit.has(models.AuditDissolutionManual))
}

func TestInitiateWindDownRequiresActive(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.InitiateWindDown(context.Background(), ws.ID, organizer, nil))
	err := f.svc.InitiateWindDown(context.Background(), ws.ID, organizer, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInitiateWindDownFailedTransitionKeepsSettings(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.InitiateWindDown(context.Background(), ws.ID, organizer, nil))

	// A second wind-down with an override must not move the scheduled
	// dissolution of the workspace that is already winding down.
	override := 5
	err := f.svc.InitiateWindDown(context.Background(), ws.ID, organizer, &override)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.DefaultRetentionDays, got.Settings.RetentionPeriodDays)
}

func TestEventCancelledDissolvesProvisioningWorkspace(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	// A cancellation can land before the workspace finished activating.
	f.store.workspaces[ws.ID].Status = models.WorkspaceProvisioning
	require.NoError(t, f.svc.HandleEventCancelled(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
	assert.True(t, CanTransition(models.WorkspaceProvisioning, models.WorkspaceDissolved))
}

func TestEventCompletedWithMissingEventSkipsDissolutionDate(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(-time.Hour))
	delete(f.events.events, ws.EventID)

	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), ws.ID))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceWindingDown, got.Status)
	assert.True(t, f.audit.has(models.AuditWindDownInitiated))
	// The date could not be computed, so neither the audit entry nor the
	// notice should carry a zero timestamp.
	_, hasDate := f.audit.lastDetails["scheduled_dissolution"]
	assert.False(t, hasDate)
	assert.Len(t, f.notifier.windDowns, 1)
}

func TestEmergencyRevokeDeniedWithoutCapability(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	denied := newFixture(denyAll{err: ErrNotAuthorized})
	denied.store = f.store
	denied.svc = NewService(f.store, f.events, denyAll{err: ErrNotAuthorized}, denied.audit, denied.notifier, denied.incidents, nil)

	err := denied.svc.EmergencyRevoke(context.Background(), ws.ID, uuid.New(), "compromised account")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceActive, got.Status)
	assert.True(t, denied.audit.has(models.AuditAccessDenied))
}

func TestEmergencyRevokeDissolvesAndReportsIncident(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.EmergencyRevoke(context.Background(), ws.ID, organizer, "credential leak"))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
	assert.Equal(t, 1, f.incidents.reported)
	assert.True(t, f.audit.has(models.AuditEmergencyRevoke))
	assert.Equal(t, "credential leak", f.notifier.lastReason)
}

func TestEmergencyRevokeSurvivesIncidentFailure(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	f.incidents.err = errors.New("incident store down")
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.EmergencyRevoke(context.Background(), ws.ID, organizer, "credential leak"))

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
}

func TestUpdateSettingsMergesPartialUpdate(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	ws := f.provision(t, organizer, time.Now().Add(24*time.Hour))

	days := 14
	updated, err := f.svc.UpdateSettings(context.Background(), ws.ID, organizer, models.SettingsUpdate{RetentionPeriodDays: &days})
	require.NoError(t, err)

	assert.Equal(t, 14, updated.Settings.RetentionPeriodDays)
	// Untouched fields survive the partial update.
	assert.Equal(t, []string{"general", "announcements", "tasks"}, updated.Settings.DefaultChannels)
	assert.True(t, f.audit.has(models.AuditSettingsUpdated))
}

func TestStatusReportsScheduledDissolution(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	endsAt := time.Now().Add(-2 * time.Hour)
	ws := f.provision(t, organizer, endsAt)

	st, err := f.svc.Status(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkspaceActive, st.Status)
	assert.Nil(t, st.ScheduledDissolution)
	assert.ElementsMatch(t, []models.WorkspaceStatus{models.WorkspaceWindingDown, models.WorkspaceDissolved}, st.CanTransitionTo)

	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), ws.ID))

	st, err = f.svc.Status(context.Background(), ws.ID)
	require.NoError(t, err)
	require.NotNil(t, st.ScheduledDissolution)
	want := endsAt.AddDate(0, 0, models.DefaultRetentionDays)
	assert.WithinDuration(t, want, *st.ScheduledDissolution, time.Second)
	require.NotNil(t, st.DaysUntilDissolution)
	assert.Equal(t, 29, *st.DaysUntilDissolution)
}

func sweepCandidate(f *fixture, ws *models.Workspace, endsAt time.Time) {
	got, _ := f.store.GetByID(context.Background(), ws.ID)
	f.store.candidates = append(f.store.candidates, SweepCandidate{
		Workspace:   *got,
		EventStatus: models.EventCompleted,
		EventEndsAt: endsAt,
	})
}

func TestSweepRespectsRetentionWindow(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})

	recent := f.provision(t, organizer, time.Now().Add(-24*time.Hour))
	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), recent.ID))
	sweepCandidate(f, recent, time.Now().Add(-24*time.Hour))

	expired := f.provision(t, organizer, time.Now().AddDate(0, 0, -45))
	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), expired.ID))
	sweepCandidate(f, expired, time.Now().AddDate(0, 0, -45))

	dissolved, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dissolved)

	got, _ := f.store.GetByID(context.Background(), recent.ID)
	assert.Equal(t, models.WorkspaceWindingDown, got.Status)
	got, _ = f.store.GetByID(context.Background(), expired.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
	assert.Equal(t, models.ReasonRetentionElapsed, f.notifier.lastReason)
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})

	broken := f.provision(t, organizer, time.Now().AddDate(0, 0, -45))
	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), broken.ID))
	sweepCandidate(f, broken, time.Now().AddDate(0, 0, -45))
	f.store.failDissolve[broken.ID] = errors.New("deadlock detected")

	healthy := f.provision(t, organizer, time.Now().AddDate(0, 0, -45))
	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), healthy.ID))
	sweepCandidate(f, healthy, time.Now().AddDate(0, 0, -45))

	dissolved, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dissolved)

	got, _ := f.store.GetByID(context.Background(), healthy.ID)
	assert.Equal(t, models.WorkspaceDissolved, got.Status)
}

// Full lifecycle: provision, event completes, retention elapses, sweep
// dissolves, reactivation restores.
func TestLifecycleEndToEnd(t *testing.T) {
	organizer := uuid.New()
	f := newFixture(allowAll{})
	endsAt := time.Now().AddDate(0, 0, -45)
	ws := f.provision(t, organizer, endsAt)

	require.NoError(t, f.svc.HandleEventCompleted(context.Background(), ws.ID))
	sweepCandidate(f, ws, endsAt)

	dissolved, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, dissolved)

	got, _ := f.store.GetByID(context.Background(), ws.ID)
	require.Equal(t, models.WorkspaceDissolved, got.Status)

	require.NoError(t, f.svc.HandleEventReactivated(context.Background(), ws.ID))
	got, _ = f.store.GetByID(context.Background(), ws.ID)
	assert.Equal(t, models.WorkspaceActive, got.Status)
}
