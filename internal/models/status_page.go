package models

import "github.com/google/uuid"

type StatusPage struct {
	BaseModel

	AccountID   uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`
	IsPublic    bool      `gorm:"not null;default:true" json:"is_public"`

	// Relationships
	Components  []Component  `gorm:"foreignKey:StatusPageID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Subscribers []Subscriber `gorm:"foreignKey:StatusPageID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
