package models

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type IncidentUpdate struct {
	BaseModel

	IncidentID uuid.UUID            `gorm:"type:uuid;not null;index" json:"incident_id"`
	Status     types.IncidentStatus `gorm:"not null" json:"status"`
	Message    string               `gorm:"not null" json:"message"`
	CreatedBy  string               `json:"created_by"`
}
