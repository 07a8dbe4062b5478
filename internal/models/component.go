package models

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type Component struct {
	BaseModel

	StatusPageID uuid.UUID             `gorm:"type:uuid;not null;index" json:"status_page_id"`
	AccountID    uuid.UUID             `gorm:"type:uuid;not null;index" json:"account_id"`
	Name         string                `gorm:"not null" json:"name"`
	Description  string                `json:"description"`
	GroupName    string                `json:"group_name,omitempty"`
	Position     int                   `gorm:"not null;default:0" json:"position"`
	Status       types.ComponentStatus `gorm:"not null;default:operational" json:"status"`
}
