package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
	"gorm.io/datatypes"
)

type Incident struct {
	BaseModel

	StatusPageID       uuid.UUID                      `gorm:"type:uuid;not null;index" json:"status_page_id"`
	AccountID          uuid.UUID                      `gorm:"type:uuid;not null;index" json:"account_id"`
	Title              string                         `gorm:"not null" json:"title"`
	Status             types.IncidentStatus           `gorm:"not null;index" json:"status"`
	Severity           types.IncidentSeverity         `gorm:"not null" json:"severity"`
	Message            string                         `json:"message"`
	AffectedComponents datatypes.JSONSlice[uuid.UUID] `json:"affected_components"`
	IsMaintenance      bool                           `gorm:"not null;default:false" json:"is_maintenance"`
	StartedAt          time.Time                      `gorm:"not null" json:"started_at"`
	ResolvedAt         *time.Time                     `json:"resolved_at"`
	CreatedBy          types.Originator               `gorm:"not null" json:"created_by"`

	// Relationships
	Updates []IncidentUpdate `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (i Incident) IsOpen() bool {
	return i.Status != types.IncidentResolved
}

func (i Incident) Affects(componentID uuid.UUID) bool {
	for _, id := range i.AffectedComponents {
		if id == componentID {
			return true
		}
	}
	return false
}
