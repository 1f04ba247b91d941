package models

import (
	"time"
)

// Role is the single organization role a user holds.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

type User struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_org_email" json:"email"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	OrganizationID uint64    `gorm:"not null;index;uniqueIndex:idx_users_org_email" json:"organization_id"`
	Role           Role      `gorm:"type:varchar(20);not null;default:'EMPLOYEE';index" json:"role"`
	TasksCount     int       `gorm:"not null;default:0" json:"tasks_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization  Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	AssignedTasks []Task       `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedTasks  []Task       `gorm:"foreignKey:CreatedByID" json:"-"`
}
