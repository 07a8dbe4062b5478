package models

type Account struct {
	BaseModel

	Email              string `gorm:"uniqueIndex;not null" json:"email"`
	SubscriptionPlan   string `gorm:"not null;default:free" json:"subscription_plan"`
	SubscriptionStatus string `gorm:"not null;default:free" json:"subscription_status"` // active, trialing, past_due, canceled, free

	// Relationships
	StatusPages []StatusPage `gorm:"foreignKey:AccountID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Monitors    []Monitor    `gorm:"foreignKey:AccountID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
