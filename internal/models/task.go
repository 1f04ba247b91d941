package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TO_DO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
)

// ActiveTaskStatuses are the statuses that count toward a user's workload.
var ActiveTaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusBlocked:
		return true
	}
	return false
}

// Active reports whether a task in status s counts toward workload.
func (s TaskStatus) Active() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusBlocked
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	Title       string       `gorm:"type:varchar(500);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	AssigneeID  *uint64      `gorm:"index:idx_tasks_org_assignee,priority:2" json:"assignee_id"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'TO_DO';index:idx_tasks_org_status,priority:2" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	// DueDate is free text ("2025-02-15", "end of Q4").
	DueDate        string    `gorm:"type:varchar(255);not null" json:"due_date"`
	OrganizationID uint64    `gorm:"not null;index:idx_tasks_org_status,priority:1;index:idx_tasks_org_assignee,priority:1" json:"organization_id"`
	CreatedByID    uint64    `gorm:"not null;index" json:"created_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Assignee     *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatedBy    User          `gorm:"foreignKey:CreatedByID" json:"-"`
	Organization Organization  `gorm:"foreignKey:OrganizationID" json:"-"`
	Comments     []TaskComment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}
