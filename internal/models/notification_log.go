package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
	"gorm.io/datatypes"
)

// NotificationLog is the append-only audit record of one delivery attempt.
type NotificationLog struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID    *uuid.UUID           `gorm:"type:uuid;index" json:"channel_id"`
	IncidentID   *uuid.UUID           `gorm:"type:uuid;index" json:"incident_id"`
	MonitorID    *uuid.UUID           `gorm:"type:uuid;index" json:"monitor_id"`
	ChannelType  types.ChannelType    `gorm:"not null" json:"channel_type"`
	Recipient    string               `json:"recipient,omitempty"`
	EventType    types.EventType      `gorm:"not null" json:"type"`
	Payload      datatypes.JSON       `gorm:"type:jsonb" json:"payload"`
	Status       types.DeliveryStatus `gorm:"not null" json:"status"`
	ErrorMessage *string              `json:"error_message"`
	SentAt       time.Time            `gorm:"not null" json:"sent_at"`
}
