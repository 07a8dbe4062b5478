package incidents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store/memstore"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t         *testing.T
	store     *memstore.Store
	engine    *Engine
	page      models.StatusPage
	component models.Component
	monitor   models.Monitor
	clock     time.Time
}

func newFixture(t *testing.T, linked bool) *fixture {
	ms := memstore.New()
	account := ms.AddAccount(models.Account{Email: "ops@example.com"})
	page := ms.AddStatusPage(models.StatusPage{AccountID: account.ID, Name: "Acme", Slug: "acme", IsPublic: true})
	component := ms.AddComponent(models.Component{StatusPageID: page.ID, AccountID: account.ID, Name: "API"})

	monitor := models.Monitor{AccountID: account.ID, Name: "API", URL: "https://api.example.com", IsActive: true, CheckIntervalSeconds: 300}
	if linked {
		monitor.ComponentID = &component.ID
	}
	monitor = ms.AddMonitor(monitor)

	return &fixture{
		t:         t,
		store:     ms,
		engine:    NewEngine(ms, logger.NewNop()),
		page:      page,
		component: component,
		monitor:   monitor,
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// record persists a check and runs detection, the way the scheduler does.
func (f *fixture) record(status types.HealthStatus) Transition {
	f.t.Helper()
	f.clock = f.clock.Add(5 * time.Minute)
	f.store.AddHealthCheck(models.HealthCheck{MonitorID: f.monitor.ID, Status: status, CheckedAt: f.clock})

	tr, err := f.engine.DetectTransition(context.Background(), f.monitor.ID, status)
	require.NoError(f.t, err)
	return tr
}

func (f *fixture) openIncidents() []models.Incident {
	var open []models.Incident
	for _, inc := range f.store.Incidents() {
		if inc.IsOpen() {
			open = append(open, inc)
		}
	}
	return open
}

func TestDetectTransition_InsufficientHistory(t *testing.T) {
	f := newFixture(t, true)

	tr := f.record(types.HealthDown)

	assert.Equal(t, Unchanged, tr.Kind)
	assert.Empty(t, f.store.Incidents())
}

func TestDetectTransition_OpensOnceAfterHealthyBaseline(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, Unchanged, f.record(types.HealthHealthy).Kind)
	assert.Equal(t, Unchanged, f.record(types.HealthDown).Kind, "a single failure is not an incident")

	tr := f.record(types.HealthDown)
	require.Equal(t, Opened, tr.Kind)
	require.NotNil(t, tr.Incident)
	assert.Equal(t, "API is down", tr.Incident.Title)
	assert.Equal(t, "Automated: API detected as down", tr.Incident.Message)
	assert.Equal(t, types.SeverityMajor, tr.Incident.Severity)
	assert.Equal(t, types.IncidentInvestigating, tr.Incident.Status)
	assert.Equal(t, types.OriginAuto, tr.Incident.CreatedBy)
	assert.Equal(t, f.page.ID, tr.Incident.StatusPageID)
	assert.True(t, tr.Incident.Affects(f.component.ID))
	assert.Equal(t, types.ComponentMajorOutage, f.store.Component(f.component.ID).Status)

	updates := f.store.IncidentUpdates(tr.Incident.ID)
	require.Len(t, updates, 1)
	assert.Equal(t, types.IncidentInvestigating, updates[0].Status)

	for i := 0; i < 3; i++ {
		assert.Equal(t, Unchanged, f.record(types.HealthDown).Kind)
	}
	assert.Len(t, f.openIncidents(), 1)
}

func TestDetectTransition_DegradedOpensMinor(t *testing.T) {
	f := newFixture(t, true)

	f.record(types.HealthHealthy)
	f.record(types.HealthDegraded)
	tr := f.record(types.HealthDegraded)

	require.Equal(t, Opened, tr.Kind)
	assert.Equal(t, types.SeverityMinor, tr.Incident.Severity)
	assert.Equal(t, "API is degraded", tr.Incident.Title)
	assert.Equal(t, types.ComponentDegraded, f.store.Component(f.component.ID).Status)
}

func TestDetectTransition_TwoChecksCountAsHealthyBaseline(t *testing.T) {
	f := newFixture(t, true)

	f.record(types.HealthDown)
	tr := f.record(types.HealthDown)

	assert.Equal(t, Opened, tr.Kind)
}

func TestDetectTransition_ResolvePairsWithOpen(t *testing.T) {
	f := newFixture(t, true)

	f.record(types.HealthHealthy)
	f.record(types.HealthDown)
	opened := f.record(types.HealthDown)
	require.Equal(t, Opened, opened.Kind)

	resolved := f.record(types.HealthHealthy)
	require.Equal(t, Resolved, resolved.Kind)
	assert.Equal(t, opened.Incident.ID, resolved.Incident.ID)
	assert.Equal(t, types.IncidentResolved, resolved.Incident.Status)
	require.NotNil(t, resolved.Incident.ResolvedAt)
	assert.Equal(t, types.ComponentOperational, f.store.Component(f.component.ID).Status)

	updates := f.store.IncidentUpdates(opened.Incident.ID)
	require.Len(t, updates, 2)
	assert.Equal(t, types.IncidentResolved, updates[1].Status)
	assert.Equal(t, "Automated: Service has recovered and is operating normally.", updates[1].Message)

	assert.Equal(t, Unchanged, f.record(types.HealthHealthy).Kind, "nothing left to resolve")
	assert.Empty(t, f.openIncidents())
}

func TestDetectTransition_NoComponentNeverOpens(t *testing.T) {
	f := newFixture(t, false)

	f.record(types.HealthHealthy)
	for i := 0; i < 6; i++ {
		assert.Equal(t, Unchanged, f.record(types.HealthDown).Kind)
	}
	assert.Empty(t, f.store.Incidents())
}

func TestDetectTransition_ManualIncidentBlocksAutoOpenAndResolvesOnRecovery(t *testing.T) {
	f := newFixture(t, true)
	manual := f.store.AddIncident(models.Incident{
		StatusPageID:       f.page.ID,
		Title:              "Elevated error rates",
		Status:             types.IncidentIdentified,
		Severity:           types.SeverityMinor,
		AffectedComponents: []uuid.UUID{f.component.ID},
		CreatedBy:          types.OriginManual,
	})
	require.NoError(t, f.store.UpdateComponentStatus(context.Background(), f.component.ID, types.ComponentDegraded))

	f.record(types.HealthHealthy)
	f.record(types.HealthDown)
	assert.Equal(t, Unchanged, f.record(types.HealthDown).Kind)
	require.Len(t, f.store.Incidents(), 1)

	tr := f.record(types.HealthHealthy)
	assert.Equal(t, Resolved, tr.Kind)
	require.NotNil(t, tr.Incident)
	assert.Equal(t, manual.ID, tr.Incident.ID)

	incidents := f.store.Incidents()
	require.Len(t, incidents, 1)
	assert.False(t, incidents[0].IsOpen())
	assert.NotNil(t, incidents[0].ResolvedAt)
	assert.Empty(t, f.openIncidents())
	assert.Equal(t, types.ComponentOperational, f.store.Component(f.component.ID).Status)

	updates := f.store.IncidentUpdates(manual.ID)
	require.Len(t, updates, 1)
	assert.Equal(t, types.IncidentResolved, updates[0].Status)
}

func TestDetectTransition_StoreReadFailure(t *testing.T) {
	f := newFixture(t, true)
	f.store.FailOn("RecentHealthChecks", errors.New("connection reset"))

	tr, err := f.engine.DetectTransition(context.Background(), f.monitor.ID, types.HealthDown)

	assert.Error(t, err)
	assert.Equal(t, Unchanged, tr.Kind)
}

func TestDetectTransition_ConcurrentMonitorsOnOneComponent(t *testing.T) {
	f := newFixture(t, true)
	second := f.store.AddMonitor(models.Monitor{AccountID: f.monitor.AccountID, ComponentID: &f.component.ID, Name: "API mirror", IsActive: true})

	base := f.clock
	for i, status := range []types.HealthStatus{types.HealthHealthy, types.HealthDown, types.HealthDown} {
		at := base.Add(time.Duration(i) * time.Minute)
		f.store.AddHealthCheck(models.HealthCheck{MonitorID: f.monitor.ID, Status: status, CheckedAt: at})
		f.store.AddHealthCheck(models.HealthCheck{MonitorID: second.ID, Status: status, CheckedAt: at})
	}

	var wg sync.WaitGroup
	results := make([]Transition, 2)
	for i, id := range []uuid.UUID{f.monitor.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			tr, err := f.engine.DetectTransition(context.Background(), id, types.HealthDown)
			assert.NoError(t, err)
			results[i] = tr
		}(i, id)
	}
	wg.Wait()

	opened := 0
	for _, tr := range results {
		if tr.Kind == Opened {
			opened++
		}
	}
	assert.Equal(t, 1, opened)
	assert.Len(t, f.openIncidents(), 1)
}

func TestApplyUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	other := f.store.AddComponent(models.Component{StatusPageID: f.page.ID, Name: "Web", Status: types.ComponentMajorOutage})
	require.NoError(t, f.store.UpdateComponentStatus(ctx, f.component.ID, types.ComponentDegraded))

	inc := f.store.AddIncident(models.Incident{
		StatusPageID:       f.page.ID,
		Title:              "Elevated errors",
		Status:             types.IncidentInvestigating,
		Severity:           types.SeverityMajor,
		AffectedComponents: []uuid.UUID{f.component.ID, other.ID},
		CreatedBy:          types.OriginManual,
	})

	updated, err := f.engine.ApplyUpdate(ctx, inc.ID, types.IncidentIdentified, "Root cause found", "alice")
	require.NoError(t, err)
	assert.Equal(t, types.IncidentIdentified, updated.Status)
	assert.Nil(t, updated.ResolvedAt)
	assert.Equal(t, types.ComponentDegraded, f.store.Component(f.component.ID).Status)

	updated, err = f.engine.ApplyUpdate(ctx, inc.ID, types.IncidentResolved, "Fixed", "alice")
	require.NoError(t, err)
	assert.Equal(t, types.IncidentResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, types.ComponentOperational, f.store.Component(f.component.ID).Status)
	assert.Equal(t, types.ComponentOperational, f.store.Component(other.ID).Status)
	assert.Len(t, f.store.IncidentUpdates(inc.ID), 2)

	_, err = f.engine.ApplyUpdate(ctx, inc.ID, types.IncidentMonitoring, "again", "alice")
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
}

func TestApplyUpdate_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	inc := f.store.AddIncident(models.Incident{StatusPageID: f.page.ID, Status: types.IncidentInvestigating, CreatedBy: types.OriginManual})

	_, err := f.engine.ApplyUpdate(ctx, inc.ID, "fixed", "msg", "alice")
	assert.True(t, errors.Is(err, ErrInvalidUpdate))

	_, err = f.engine.ApplyUpdate(ctx, inc.ID, types.IncidentMonitoring, "   ", "alice")
	assert.True(t, errors.Is(err, ErrInvalidUpdate))
	assert.Empty(t, f.store.IncidentUpdates(inc.ID))
}
