package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/types"
)

var ErrNotFound = errors.New("record not found")

// MonitorCheckUpdate is the denormalized last-check snapshot written back to a monitor.
type MonitorCheckUpdate struct {
	CheckedAt      time.Time
	Status         types.HealthStatus
	ResponseTimeMs int
}

type MonitorStore interface {
	ActiveMonitors(ctx context.Context) ([]models.Monitor, error)
	GetMonitor(ctx context.Context, id uuid.UUID) (*models.Monitor, error)
	UpdateMonitorCheck(ctx context.Context, id uuid.UUID, update MonitorCheckUpdate) error
}

type HealthCheckStore interface {
	InsertHealthCheck(ctx context.Context, check *models.HealthCheck) error
	// RecentHealthChecks returns at most limit checks for the monitor, newest first.
	RecentHealthChecks(ctx context.Context, monitorID uuid.UUID, limit int) ([]models.HealthCheck, error)
	HealthChecksSince(ctx context.Context, monitorID uuid.UUID, since time.Time) ([]models.HealthCheck, error)
	DeleteHealthChecksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ComponentStore interface {
	GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error)
	UpdateComponentStatus(ctx context.Context, id uuid.UUID, status types.ComponentStatus) error
	ComponentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Component, error)
}

type IncidentStore interface {
	// OpenIncidentForComponent returns the newest unresolved incident affecting the
	// component, or nil when there is none.
	OpenIncidentForComponent(ctx context.Context, componentID uuid.UUID) (*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	CreateIncident(ctx context.Context, incident *models.Incident) error
	UpdateIncident(ctx context.Context, incident *models.Incident) error
	InsertIncidentUpdate(ctx context.Context, update *models.IncidentUpdate) error
	OpenIncidentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Incident, error)
}

type StatusPageStore interface {
	GetStatusPage(ctx context.Context, id uuid.UUID) (*models.StatusPage, error)
	StatusPageBySlug(ctx context.Context, slug string) (*models.StatusPage, error)
	MonitorsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Monitor, error)
}

type NotificationStore interface {
	ActiveChannels(ctx context.Context, accountID uuid.UUID) ([]models.NotificationChannel, error)
	VerifiedSubscribers(ctx context.Context, pageID uuid.UUID) ([]models.Subscriber, error)
	InsertNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Store is the full persistence surface used by the monitoring pipeline.
type Store interface {
	MonitorStore
	HealthCheckStore
	ComponentStore
	IncidentStore
	StatusPageStore
	NotificationStore
	AccountStore
}
