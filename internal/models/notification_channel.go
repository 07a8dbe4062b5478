package models

import (
	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
	"gorm.io/datatypes"
)

type NotificationChannel struct {
	BaseModel

	AccountID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"account_id"`
	StatusPageID *uuid.UUID        `gorm:"type:uuid;index" json:"status_page_id"`
	Name         string            `gorm:"not null" json:"name"`
	Type         types.ChannelType `gorm:"not null" json:"type"`
	Config       datatypes.JSON    `gorm:"type:jsonb" json:"config"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
}

// ParsedConfig decodes the stored config into its typed variant.
func (c NotificationChannel) ParsedConfig() (types.ChannelConfig, error) {
	return types.ParseChannelConfig(c.Type, c.Config)
}

// ServesPage reports whether the channel receives events for the given page. Unscoped
// channels receive every page of the account.
func (c NotificationChannel) ServesPage(pageID uuid.UUID) bool {
	return c.StatusPageID == nil || *c.StatusPageID == pageID
}
