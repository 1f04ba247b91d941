package models

import (
	"time"
)

type Invite struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Email          string    `gorm:"type:varchar(255);not null" json:"email"`
	Role           Role      `gorm:"type:varchar(20);not null" json:"role"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	InvitedByID    uint64    `gorm:"not null" json:"invited_by_id"`
	Token          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	Used           bool      `gorm:"not null;default:false" json:"used"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the invite can no longer be accepted at now.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
