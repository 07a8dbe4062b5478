// Package memstore is an in-memory store.Store with fault injection, used by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type Store struct {
	mu sync.Mutex

	accounts      map[uuid.UUID]models.Account
	pages         map[uuid.UUID]models.StatusPage
	components    map[uuid.UUID]models.Component
	monitors      map[uuid.UUID]models.Monitor
	channels      []models.NotificationChannel
	subscribers   []models.Subscriber
	incidents     []models.Incident
	updates       []models.IncidentUpdate
	healthChecks  []models.HealthCheck
	notifications []models.NotificationLog

	failures map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:   make(map[uuid.UUID]models.Account),
		pages:      make(map[uuid.UUID]models.StatusPage),
		components: make(map[uuid.UUID]models.Component),
		monitors:   make(map[uuid.UUID]models.Monitor),
		failures:   make(map[string]error),
	}
}

// FailOn makes every later call of the named method return err. A nil err clears it.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) fail(method string) error {
	return s.failures[method]
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func stamp(b *models.BaseModel) {
	ensureID(&b.ID)
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Seeding helpers.

func (s *Store) AddAccount(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&a.BaseModel)
	s.accounts[a.ID] = a
	return a
}

func (s *Store) AddStatusPage(p models.StatusPage) models.StatusPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&p.BaseModel)
	s.pages[p.ID] = p
	return p
}

func (s *Store) AddComponent(c models.Component) models.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&c.BaseModel)
	if c.Status == "" {
		c.Status = types.ComponentOperational
	}
	s.components[c.ID] = c
	return c
}

func (s *Store) AddMonitor(m models.Monitor) models.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&m.BaseModel)
	s.monitors[m.ID] = m
	return m
}

func (s *Store) AddChannel(c models.NotificationChannel) models.NotificationChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&c.BaseModel)
	s.channels = append(s.channels, c)
	return c
}

// SetChannelActive flips a channel's active flag, the way an operator disables it.
func (s *Store) SetChannelActive(id uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels[i].IsActive = active
		}
	}
}

func (s *Store) AddSubscriber(sub models.Subscriber) models.Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&sub.BaseModel)
	s.subscribers = append(s.subscribers, sub)
	return sub
}

func (s *Store) AddHealthCheck(c models.HealthCheck) models.HealthCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&c.ID)
	s.healthChecks = append(s.healthChecks, c)
	return c
}

func (s *Store) AddIncident(i models.Incident) models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&i.BaseModel)
	s.incidents = append(s.incidents, i)
	return i
}

// Inspection helpers.

func (s *Store) Incidents() []models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Incident(nil), s.incidents...)
}

func (s *Store) IncidentUpdates(incidentID uuid.UUID) []models.IncidentUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.IncidentUpdate
	for _, u := range s.updates {
		if u.IncidentID == incidentID {
			out = append(out, u)
		}
	}
	return out
}

func (s *Store) NotificationLogs() []models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationLog(nil), s.notifications...)
}

func (s *Store) HealthChecks(monitorID uuid.UUID) []models.HealthCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HealthCheck
	for _, c := range s.healthChecks {
		if c.MonitorID == monitorID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Component(id uuid.UUID) models.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.components[id]
}

func (s *Store) Monitor(id uuid.UUID) models.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitors[id]
}

// store.MonitorStore

func (s *Store) ActiveMonitors(ctx context.Context) ([]models.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ActiveMonitors"); err != nil {
		return nil, err
	}
	var out []models.Monitor
	for _, m := range s.monitors {
		if m.IsActive && !m.IsPaused {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetMonitor(ctx context.Context, id uuid.UUID) (*models.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetMonitor"); err != nil {
		return nil, err
	}
	m, ok := s.monitors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) UpdateMonitorCheck(ctx context.Context, id uuid.UUID, update store.MonitorCheckUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateMonitorCheck"); err != nil {
		return err
	}
	m, ok := s.monitors[id]
	if !ok {
		return store.ErrNotFound
	}
	checkedAt := update.CheckedAt
	rt := update.ResponseTimeMs
	m.LastCheckAt = &checkedAt
	m.LastStatus = update.Status
	m.LastResponseTimeMs = &rt
	s.monitors[id] = m
	return nil
}

// store.HealthCheckStore

func (s *Store) InsertHealthCheck(ctx context.Context, check *models.HealthCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertHealthCheck"); err != nil {
		return err
	}
	ensureID(&check.ID)
	s.healthChecks = append(s.healthChecks, *check)
	return nil
}

func (s *Store) RecentHealthChecks(ctx context.Context, monitorID uuid.UUID, limit int) ([]models.HealthCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RecentHealthChecks"); err != nil {
		return nil, err
	}
	var out []models.HealthCheck
	for _, c := range s.healthChecks {
		if c.MonitorID == monitorID {
			out = append(out, c)
		}
	}
	// Stable on insertion order so checks sharing a timestamp stay newest-first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	reverseTies(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// reverseTies flips runs of equal timestamps so later inserts come first.
func reverseTies(checks []models.HealthCheck) {
	for i := 0; i < len(checks); {
		j := i + 1
		for j < len(checks) && checks[j].CheckedAt.Equal(checks[i].CheckedAt) {
			j++
		}
		for a, b := i, j-1; a < b; a, b = a+1, b-1 {
			checks[a], checks[b] = checks[b], checks[a]
		}
		i = j
	}
}

func (s *Store) HealthChecksSince(ctx context.Context, monitorID uuid.UUID, since time.Time) ([]models.HealthCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("HealthChecksSince"); err != nil {
		return nil, err
	}
	var out []models.HealthCheck
	for _, c := range s.healthChecks {
		if c.MonitorID == monitorID && !c.CheckedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.Before(out[j].CheckedAt) })
	return out, nil
}

func (s *Store) DeleteHealthChecksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteHealthChecksBefore"); err != nil {
		return 0, err
	}
	kept := s.healthChecks[:0]
	var deleted int64
	for _, c := range s.healthChecks {
		if c.CheckedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.healthChecks = kept
	return deleted, nil
}

// store.ComponentStore

func (s *Store) GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetComponent"); err != nil {
		return nil, err
	}
	c, ok := s.components[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateComponentStatus(ctx context.Context, id uuid.UUID, status types.ComponentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateComponentStatus"); err != nil {
		return err
	}
	c, ok := s.components[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	s.components[id] = c
	return nil
}

func (s *Store) ComponentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ComponentsForPage"); err != nil {
		return nil, err
	}
	var out []models.Component
	for _, c := range s.components {
		if c.StatusPageID == pageID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// store.IncidentStore

func (s *Store) OpenIncidentForComponent(ctx context.Context, componentID uuid.UUID) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("OpenIncidentForComponent"); err != nil {
		return nil, err
	}
	for i := len(s.incidents) - 1; i >= 0; i-- {
		inc := s.incidents[i]
		if inc.IsOpen() && inc.Affects(componentID) {
			return &inc, nil
		}
	}
	return nil, nil
}

func (s *Store) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetIncident"); err != nil {
		return nil, err
	}
	for _, inc := range s.incidents {
		if inc.ID == id {
			return &inc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateIncident(ctx context.Context, incident *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateIncident"); err != nil {
		return err
	}
	stamp(&incident.BaseModel)
	s.incidents = append(s.incidents, *incident)
	return nil
}

func (s *Store) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateIncident"); err != nil {
		return err
	}
	for i := range s.incidents {
		if s.incidents[i].ID == incident.ID {
			incident.UpdatedAt = time.Now().UTC()
			s.incidents[i] = *incident
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) InsertIncidentUpdate(ctx context.Context, update *models.IncidentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertIncidentUpdate"); err != nil {
		return err
	}
	stamp(&update.BaseModel)
	s.updates = append(s.updates, *update)
	return nil
}

func (s *Store) OpenIncidentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("OpenIncidentsForPage"); err != nil {
		return nil, err
	}
	var out []models.Incident
	for i := len(s.incidents) - 1; i >= 0; i-- {
		if inc := s.incidents[i]; inc.StatusPageID == pageID && inc.IsOpen() {
			out = append(out, inc)
		}
	}
	return out, nil
}

// store.StatusPageStore

func (s *Store) GetStatusPage(ctx context.Context, id uuid.UUID) (*models.StatusPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetStatusPage"); err != nil {
		return nil, err
	}
	p, ok := s.pages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) StatusPageBySlug(ctx context.Context, slug string) (*models.StatusPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("StatusPageBySlug"); err != nil {
		return nil, err
	}
	for _, p := range s.pages {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) MonitorsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MonitorsForPage"); err != nil {
		return nil, err
	}
	var out []models.Monitor
	for _, m := range s.monitors {
		if m.ComponentID == nil || !m.IsActive {
			continue
		}
		if c, ok := s.components[*m.ComponentID]; ok && c.StatusPageID == pageID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// store.NotificationStore

func (s *Store) ActiveChannels(ctx context.Context, accountID uuid.UUID) ([]models.NotificationChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ActiveChannels"); err != nil {
		return nil, err
	}
	var out []models.NotificationChannel
	for _, c := range s.channels {
		if c.AccountID == accountID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) VerifiedSubscribers(ctx context.Context, pageID uuid.UUID) ([]models.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("VerifiedSubscribers"); err != nil {
		return nil, err
	}
	var out []models.Subscriber
	for _, sub := range s.subscribers {
		if sub.StatusPageID == pageID && sub.Active() {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) InsertNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertNotificationLog"); err != nil {
		return err
	}
	ensureID(&entry.ID)
	s.notifications = append(s.notifications, *entry)
	return nil
}

// store.AccountStore

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetAccount"); err != nil {
		return nil, err
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}
