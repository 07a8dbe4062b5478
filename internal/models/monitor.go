package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type Monitor struct {
	BaseModel

	AccountID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"account_id"`
	ComponentID          *uuid.UUID         `gorm:"type:uuid;index" json:"component_id"`
	Name                 string             `gorm:"not null" json:"name"`
	URL                  string             `gorm:"not null" json:"url"`
	Method               string             `gorm:"not null;default:GET" json:"method"`
	ExpectedStatus       int                `gorm:"not null;default:200" json:"expected_status"`
	CheckIntervalSeconds int                `gorm:"not null;default:300" json:"check_interval_seconds"`
	TimeoutMs            int                `gorm:"not null;default:10000" json:"timeout_ms"`
	IsActive             bool               `gorm:"not null;default:true;index" json:"is_active"`
	IsPaused             bool               `gorm:"not null;default:false" json:"is_paused"`
	LastCheckAt          *time.Time         `json:"last_check_at"`
	LastStatus           types.HealthStatus `json:"last_status,omitempty"`
	LastResponseTimeMs   *int               `json:"last_response_time_ms"`

	// Relationships
	HealthChecks []HealthCheck `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// IsDue reports whether the monitor should be probed at now. A monitor that has never
// been checked is always due.
func (m Monitor) IsDue(now time.Time) bool {
	if m.LastCheckAt == nil {
		return true
	}
	return now.Sub(*m.LastCheckAt) >= time.Duration(m.CheckIntervalSeconds)*time.Second
}

func (m Monitor) CheckConfig() types.CheckConfig {
	return types.CheckConfig{
		URL:            m.URL,
		Method:         m.Method,
		ExpectedStatus: m.ExpectedStatus,
		TimeoutMs:      m.TimeoutMs,
	}
}
