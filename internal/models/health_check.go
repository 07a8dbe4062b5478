package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
	"gorm.io/gorm"
)

// HealthCheck is append-only; rows are only ever removed by the retention sweep.
type HealthCheck struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	MonitorID      uuid.UUID          `gorm:"type:uuid;not null;index:idx_health_checks_monitor_checked,priority:1" json:"monitor_id"`
	Status         types.HealthStatus `gorm:"not null" json:"status"`
	ResponseTimeMs int                `gorm:"not null" json:"response_time_ms"`
	HTTPStatus     *int               `json:"http_status"`
	ErrorMessage   *string            `json:"error_message"`
	CheckedAt      time.Time          `gorm:"not null;index;index:idx_health_checks_monitor_checked,priority:2,sort:desc" json:"checked_at"`
}

func (h *HealthCheck) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
