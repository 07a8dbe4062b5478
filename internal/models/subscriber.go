package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscriber struct {
	BaseModel

	StatusPageID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subscriber_page_email" json:"status_page_id"`
	Email          string     `gorm:"not null;uniqueIndex:idx_subscriber_page_email" json:"email"`
	IsVerified     bool       `gorm:"not null;default:false" json:"is_verified"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

func (s Subscriber) Active() bool {
	return s.IsVerified && s.UnsubscribedAt == nil
}
