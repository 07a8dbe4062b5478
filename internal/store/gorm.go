package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func first[T any](ctx context.Context, q *gorm.DB, conds ...interface{}) (*T, error) {
	var out T
	if err := q.WithContext(ctx).First(&out, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) ActiveMonitors(ctx context.Context) ([]models.Monitor, error) {
	var monitors []models.Monitor
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND is_paused = ?", true, false).
		Find(&monitors).Error
	return monitors, err
}

func (s *GormStore) GetMonitor(ctx context.Context, id uuid.UUID) (*models.Monitor, error) {
	return first[models.Monitor](ctx, s.db, "id = ?", id)
}

func (s *GormStore) UpdateMonitorCheck(ctx context.Context, id uuid.UUID, update MonitorCheckUpdate) error {
	return s.db.WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_check_at":         update.CheckedAt,
		"last_status":           update.Status,
		"last_response_time_ms": update.ResponseTimeMs,
	}).Error
}

func (s *GormStore) InsertHealthCheck(ctx context.Context, check *models.HealthCheck) error {
	return s.db.WithContext(ctx).Create(check).Error
}

func (s *GormStore) RecentHealthChecks(ctx context.Context, monitorID uuid.UUID, limit int) ([]models.HealthCheck, error) {
	var checks []models.HealthCheck
	err := s.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (s *GormStore) HealthChecksSince(ctx context.Context, monitorID uuid.UUID, since time.Time) ([]models.HealthCheck, error) {
	var checks []models.HealthCheck
	err := s.db.WithContext(ctx).
		Where("monitor_id = ? AND checked_at >= ?", monitorID, since).
		Order("checked_at ASC").
		Find(&checks).Error
	return checks, err
}

func (s *GormStore) DeleteHealthChecksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("checked_at < ?", cutoff).Delete(&models.HealthCheck{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete health checks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return first[models.Component](ctx, s.db, "id = ?", id)
}

func (s *GormStore) UpdateComponentStatus(ctx context.Context, id uuid.UUID, status types.ComponentStatus) error {
	return s.db.WithContext(ctx).Model(&models.Component{}).Where("id = ?", id).Update("status", status).Error
}

func (s *GormStore) ComponentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Component, error) {
	var components []models.Component
	err := s.db.WithContext(ctx).
		Where("status_page_id = ?", pageID).
		Order("position ASC, name ASC").
		Find(&components).Error
	return components, err
}

func (s *GormStore) OpenIncidentForComponent(ctx context.Context, componentID uuid.UUID) (*models.Incident, error) {
	incident, err := first[models.Incident](ctx, s.db.
		Where("status <> ?", types.IncidentResolved).
		Where(datatypes.JSONArrayQuery("affected_components").Contains(componentID.String())).
		Order("created_at DESC"))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return incident, err
}

func (s *GormStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return first[models.Incident](ctx, s.db, "id = ?", id)
}

func (s *GormStore) CreateIncident(ctx context.Context, incident *models.Incident) error {
	return s.db.WithContext(ctx).Create(incident).Error
}

func (s *GormStore) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	return s.db.WithContext(ctx).Save(incident).Error
}

func (s *GormStore) InsertIncidentUpdate(ctx context.Context, update *models.IncidentUpdate) error {
	return s.db.WithContext(ctx).Create(update).Error
}

func (s *GormStore) OpenIncidentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("status_page_id = ? AND status <> ?", pageID, types.IncidentResolved).
		Order("started_at DESC").
		Find(&incidents).Error
	return incidents, err
}

func (s *GormStore) GetStatusPage(ctx context.Context, id uuid.UUID) (*models.StatusPage, error) {
	return first[models.StatusPage](ctx, s.db, "id = ?", id)
}

func (s *GormStore) StatusPageBySlug(ctx context.Context, slug string) (*models.StatusPage, error) {
	return first[models.StatusPage](ctx, s.db, "slug = ?", slug)
}

func (s *GormStore) MonitorsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Monitor, error) {
	var monitors []models.Monitor
	err := s.db.WithContext(ctx).
		Joins("JOIN components ON components.id = monitors.component_id").
		Where("components.status_page_id = ? AND monitors.is_active = ?", pageID, true).
		Find(&monitors).Error
	return monitors, err
}

func (s *GormStore) ActiveChannels(ctx context.Context, accountID uuid.UUID) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Find(&channels).Error
	return channels, err
}

func (s *GormStore) VerifiedSubscribers(ctx context.Context, pageID uuid.UUID) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	err := s.db.WithContext(ctx).
		Where("status_page_id = ? AND is_verified = ? AND unsubscribed_at IS NULL", pageID, true).
		Order("created_at ASC").
		Find(&subscribers).Error
	return subscribers, err
}

func (s *GormStore) InsertNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return first[models.Account](ctx, s.db, "id = ?", id)
}
