package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/incidents"
	"github.com/monocle-dev/statuswatch/internal/live"
	"github.com/monocle-dev/statuswatch/internal/lock"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/retention"
	"github.com/monocle-dev/statuswatch/internal/services"
	"github.com/monocle-dev/statuswatch/internal/store/memstore"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProber returns a fixed status per URL, and panics for URLs in panics.
type scriptedProber struct {
	mu       sync.Mutex
	statuses map[string]types.HealthStatus
	panics   map[string]bool
	calls    int32
}

func newScriptedProber() *scriptedProber {
	return &scriptedProber{statuses: map[string]types.HealthStatus{}, panics: map[string]bool{}}
}

func (p *scriptedProber) set(url string, status types.HealthStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[url] = status
}

func (p *scriptedProber) Check(ctx context.Context, cfg types.CheckConfig) types.CheckResult {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	status, ok := p.statuses[cfg.URL]
	panics := p.panics[cfg.URL]
	p.mu.Unlock()

	if panics {
		panic("probe exploded")
	}
	if !ok {
		status = types.HealthHealthy
	}
	if status == types.HealthDown {
		msg := "connection refused"
		return types.CheckResult{Status: status, ErrorMessage: &msg}
	}
	code := 200
	return types.CheckResult{Status: status, ResponseTimeMs: 120, HTTPStatus: &code}
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, uuid.UUID, uuid.UUID, services.Event) {}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []live.Message
}

func (p *recordingPublisher) Publish(pageID uuid.UUID, msg live.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *recordingPublisher) all() []live.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]live.Message(nil), p.messages...)
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDueMonitors(t *testing.T) {
	recent := epoch.Add(-200 * time.Second)
	stale := epoch.Add(-301 * time.Second)

	monitors := []models.Monitor{
		{Name: "recent", CheckIntervalSeconds: 300, LastCheckAt: &recent},
		{Name: "stale", CheckIntervalSeconds: 300, LastCheckAt: &stale},
		{Name: "never", CheckIntervalSeconds: 300},
	}

	due := DueMonitors(monitors, epoch)

	var names []string
	for _, m := range due {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"stale", "never"}, names)
}

func TestRunCycle_ChecksOnlyDueMonitors(t *testing.T) {
	st := memstore.New()
	recent := epoch.Add(-200 * time.Second)
	st.AddMonitor(models.Monitor{Name: "recent", URL: "https://a.example.com", IsActive: true, CheckIntervalSeconds: 300, LastCheckAt: &recent})
	due := st.AddMonitor(models.Monitor{Name: "due", URL: "https://b.example.com", IsActive: true, CheckIntervalSeconds: 300})
	st.AddMonitor(models.Monitor{Name: "paused", URL: "https://c.example.com", IsActive: true, IsPaused: true, CheckIntervalSeconds: 300})

	prober := newScriptedProber()
	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())

	summary, err := s.RunCycle(context.Background(), epoch)
	require.NoError(t, err)

	assert.Equal(t, Summary{Checked: 1, Healthy: 1}, summary)
	assert.Equal(t, int32(1), atomic.LoadInt32(&prober.calls))

	checks := st.HealthChecks(due.ID)
	require.Len(t, checks, 1)
	assert.Equal(t, epoch, checks[0].CheckedAt)

	updated := st.Monitor(due.ID)
	require.NotNil(t, updated.LastCheckAt)
	assert.Equal(t, epoch, *updated.LastCheckAt)
	assert.Equal(t, types.HealthHealthy, updated.LastStatus)
}

func TestRunCycle_BatchesAllMonitors(t *testing.T) {
	st := memstore.New()
	for i := 0; i < 25; i++ {
		st.AddMonitor(models.Monitor{Name: fmt.Sprintf("m%d", i), URL: fmt.Sprintf("https://%d.example.com", i), IsActive: true, CheckIntervalSeconds: 60})
	}

	prober := newScriptedProber()
	prober.set("https://3.example.com", types.HealthDegraded)
	prober.set("https://7.example.com", types.HealthDown)

	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop(), WithBatchSize(10))

	summary, err := s.RunCycle(context.Background(), epoch)
	require.NoError(t, err)

	assert.Equal(t, 25, summary.Checked)
	assert.Equal(t, 23, summary.Healthy)
	assert.Equal(t, 1, summary.Degraded)
	assert.Equal(t, 1, summary.Down)
}

func TestRunCycle_IsolatesMonitorFailures(t *testing.T) {
	st := memstore.New()
	bad := st.AddMonitor(models.Monitor{Name: "bad", URL: "https://bad.example.com", IsActive: true, CheckIntervalSeconds: 60})
	good := st.AddMonitor(models.Monitor{Name: "good", URL: "https://good.example.com", IsActive: true, CheckIntervalSeconds: 60})

	prober := newScriptedProber()
	prober.panics["https://bad.example.com"] = true

	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())

	summary, err := s.RunCycle(context.Background(), epoch)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Checked)
	assert.Empty(t, st.HealthChecks(bad.ID))
	assert.Len(t, st.HealthChecks(good.ID), 1)
}

func TestRunCycle_PersistenceFailureStillCounts(t *testing.T) {
	st := memstore.New()
	st.AddMonitor(models.Monitor{Name: "api", URL: "https://api.example.com", IsActive: true, CheckIntervalSeconds: 60})
	st.FailOn("InsertHealthCheck", errors.New("disk full"))
	st.FailOn("UpdateMonitorCheck", errors.New("disk full"))

	s := NewScheduler(st, newScriptedProber(), incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())

	summary, err := s.RunCycle(context.Background(), epoch)
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 1, Healthy: 1}, summary)
}

func TestRunCycle_ListFailure(t *testing.T) {
	st := memstore.New()
	st.FailOn("ActiveMonitors", errors.New("connection reset"))

	s := NewScheduler(st, newScriptedProber(), incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())

	_, err := s.RunCycle(context.Background(), epoch)
	assert.Error(t, err)
}

func TestRunCycle_CanceledContextStartsNoBatch(t *testing.T) {
	st := memstore.New()
	st.AddMonitor(models.Monitor{Name: "api", URL: "https://api.example.com", IsActive: true, CheckIntervalSeconds: 60})

	prober := newScriptedProber()
	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.RunCycle(ctx, epoch)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)
	assert.Zero(t, atomic.LoadInt32(&prober.calls))
}

func TestRunCycle_IncidentLifecycle(t *testing.T) {
	st := memstore.New()
	account := st.AddAccount(models.Account{Email: "ops@example.com"})
	page := st.AddStatusPage(models.StatusPage{AccountID: account.ID, Name: "Acme", Slug: "acme", IsPublic: true})
	component := st.AddComponent(models.Component{StatusPageID: page.ID, AccountID: account.ID, Name: "API"})
	monitor := st.AddMonitor(models.Monitor{
		AccountID:            account.ID,
		ComponentID:          &component.ID,
		Name:                 "API",
		URL:                  "https://api.example.com/health",
		IsActive:             true,
		CheckIntervalSeconds: 60,
	})

	var hits int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	st.AddChannel(models.NotificationChannel{
		AccountID: account.ID,
		Name:      "ops hook",
		Type:      types.ChannelWebhook,
		Config:    []byte(fmt.Sprintf(`{"url":%q}`, hook.URL)),
		IsActive:  true,
	})

	dispatcher := services.NewDispatcher(st, services.NewLogMailer(logger.NewNop()), logger.NewNop(), services.DispatcherConfig{
		AppURL: "https://status.example.com",
	})
	defer dispatcher.Close()

	prober := newScriptedProber()
	publisher := &recordingPublisher{}
	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), dispatcher, logger.NewNop(), WithPublisher(publisher))

	now := epoch
	run := func(status types.HealthStatus) Summary {
		t.Helper()
		prober.set(monitor.URL, status)
		summary, err := s.RunCycle(context.Background(), now)
		require.NoError(t, err)
		now = now.Add(61 * time.Second)
		return summary
	}

	assert.Zero(t, run(types.HealthHealthy).IncidentsOpened)
	assert.Zero(t, run(types.HealthDown).IncidentsOpened)

	opened := run(types.HealthDown)
	assert.Equal(t, 1, opened.IncidentsOpened)
	assert.Equal(t, types.ComponentMajorOutage, st.Component(component.ID).Status)

	incs := st.Incidents()
	require.Len(t, incs, 1)
	assert.True(t, incs[0].IsOpen())

	logs := st.NotificationLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, types.EventIncidentCreated, logs[0].EventType)
	assert.Equal(t, types.EventMonitorDown, logs[1].EventType)
	assert.Equal(t, types.DeliverySent, logs[0].Status)

	assert.Zero(t, run(types.HealthDown).IncidentsOpened)
	require.Len(t, st.Incidents(), 1)

	resolved := run(types.HealthHealthy)
	assert.Equal(t, 1, resolved.IncidentsResolved)
	assert.Equal(t, types.ComponentOperational, st.Component(component.ID).Status)
	assert.False(t, st.Incidents()[0].IsOpen())

	logs = st.NotificationLogs()
	require.Len(t, logs, 4)
	assert.Equal(t, types.EventIncidentResolved, logs[2].EventType)
	assert.Equal(t, types.EventMonitorRecovered, logs[3].EventType)
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))

	msgs := publisher.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "incident_opened", msgs[0].Type)
	assert.Equal(t, page.ID, msgs[0].PageID)
	assert.Equal(t, types.ComponentMajorOutage, msgs[0].ComponentStatus)
	assert.Equal(t, "incident_resolved", msgs[1].Type)
}

func TestRunCycle_StatusPageLookupFailureStillNotifies(t *testing.T) {
	st := memstore.New()
	account := st.AddAccount(models.Account{Email: "ops@example.com"})
	page := st.AddStatusPage(models.StatusPage{AccountID: account.ID, Name: "Acme", Slug: "acme", IsPublic: true})
	component := st.AddComponent(models.Component{StatusPageID: page.ID, AccountID: account.ID, Name: "API"})
	monitor := st.AddMonitor(models.Monitor{
		AccountID:            account.ID,
		ComponentID:          &component.ID,
		Name:                 "API",
		URL:                  "https://api.example.com/health",
		IsActive:             true,
		CheckIntervalSeconds: 60,
	})

	var hits int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	st.AddChannel(models.NotificationChannel{
		AccountID: account.ID,
		Name:      "ops hook",
		Type:      types.ChannelWebhook,
		Config:    []byte(fmt.Sprintf(`{"url":%q}`, hook.URL)),
		IsActive:  true,
	})
	st.FailOn("GetStatusPage", errors.New("db down"))

	dispatcher := services.NewDispatcher(st, services.NewLogMailer(logger.NewNop()), logger.NewNop(), services.DispatcherConfig{})
	defer dispatcher.Close()

	prober := newScriptedProber()
	publisher := &recordingPublisher{}
	s := NewScheduler(st, prober, incidents.NewEngine(st, logger.NewNop()), dispatcher, logger.NewNop(), WithPublisher(publisher))

	now := epoch
	for _, status := range []types.HealthStatus{types.HealthHealthy, types.HealthDown, types.HealthDown} {
		prober.set(monitor.URL, status)
		_, err := s.RunCycle(context.Background(), now)
		require.NoError(t, err)
		now = now.Add(61 * time.Second)
	}

	require.Len(t, st.Incidents(), 1)
	logs := st.NotificationLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, types.EventIncidentCreated, logs[0].EventType)
	assert.Equal(t, types.EventMonitorDown, logs[1].EventType)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	require.Len(t, publisher.all(), 1)
}

type stubSweeper struct{ calls int32 }

func (s *stubSweeper) Sweep(ctx context.Context, now time.Time) (retention.Result, error) {
	atomic.AddInt32(&s.calls, 1)
	return retention.Result{RetentionDays: 90, Cutoff: now.AddDate(0, 0, -90)}, nil
}

func TestRunner_SkipsWhenLocked(t *testing.T) {
	st := memstore.New()
	st.AddMonitor(models.Monitor{Name: "api", URL: "https://api.example.com", IsActive: true, CheckIntervalSeconds: 60})

	locker := lock.NewLocal()
	s := NewScheduler(st, newScriptedProber(), incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())
	sweeper := &stubSweeper{}
	r := NewRunner(s, sweeper, locker, time.Minute, logger.NewNop())

	release, err := locker.Acquire(context.Background(), checkLockKey, time.Minute)
	require.NoError(t, err)

	_, err = r.RunCheck(context.Background())
	assert.ErrorIs(t, err, lock.ErrLocked)

	res, err := r.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, res.RetentionDays)

	release()

	summary, err := r.RunCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
}

func TestRunner_StartStop(t *testing.T) {
	st := memstore.New()
	s := NewScheduler(st, newScriptedProber(), incidents.NewEngine(st, logger.NewNop()), noopNotifier{}, logger.NewNop())
	sweeper := &stubSweeper{}
	r := NewRunner(s, sweeper, lock.NewLocal(), time.Minute, logger.NewNop())

	r.Start(time.Hour, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeper.calls) > 0 }, time.Second, 5*time.Millisecond)
	r.Stop()
	r.Stop()
}
