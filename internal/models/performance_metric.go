package models

import (
	"time"
)

// PerformanceMetric is the derived performance snapshot of one user in one organization.
type PerformanceMetric struct {
	ID              uint64     `gorm:"primarykey" json:"id"`
	UserID          uint64     `gorm:"not null;uniqueIndex:idx_metrics_user_org" json:"user_id"`
	OrganizationID  uint64     `gorm:"not null;index;uniqueIndex:idx_metrics_user_org" json:"organization_id"`
	CompletionRate  int        `gorm:"not null;default:0" json:"completion_rate"`
	AverageTimeDays int        `gorm:"not null;default:0" json:"average_time_days"`
	TasksCompleted  int        `gorm:"not null;default:0" json:"tasks_completed"`
	TasksInProgress int        `gorm:"not null;default:0" json:"tasks_in_progress"`
	TasksOverdue    int        `gorm:"not null;default:0" json:"tasks_overdue"`
	LastEvaluation  string     `gorm:"type:text" json:"last_evaluation"`
	EvaluationDate  *time.Time `json:"evaluation_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
