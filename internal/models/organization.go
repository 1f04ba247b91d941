package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "TRIAL"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

type Plan string

const (
	PlanFreeTrial  Plan = "FREE_TRIAL"
	PlanBasic      Plan = "BASIC"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

type Organization struct {
	ID                    uint64             `gorm:"primarykey" json:"id"`
	Name                  string             `gorm:"type:varchar(255);not null" json:"name"`
	SubscriptionStatus    SubscriptionStatus `gorm:"type:varchar(20);not null;default:'TRIAL'" json:"subscription_status"`
	Plan                  Plan               `gorm:"type:varchar(20);not null;default:'FREE_TRIAL'" json:"plan"`
	TrialStartDate        time.Time          `gorm:"not null" json:"trial_start_date"`
	TrialEndDate          time.Time          `gorm:"not null" json:"trial_end_date"`
	SubscriptionStartDate *time.Time         `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time         `json:"subscription_end_date,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`

	// Relations
	Users []User `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks []Task `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
}
