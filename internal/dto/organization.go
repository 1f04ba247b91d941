package dto

import (
	"time"

	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/services"
)

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID                 uint64                    `json:"id"`
	Name               string                    `json:"name"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status"`
	Plan               models.Plan               `json:"plan"`
	TrialEndDate       time.Time                 `json:"trial_end_date"`
}

// InviteDTO represents a pending or used invite. The token is only returned
// through the invite link when the invite is created.
type InviteDTO struct {
	ID          uint64      `json:"id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	InvitedByID uint64      `json:"invited_by_id"`
	Used        bool        `json:"used"`
	ExpiresAt   time.Time   `json:"expires_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MetricDTO represents one member's performance snapshot
type MetricDTO struct {
	User            UserDTO    `json:"user"`
	CompletionRate  int        `json:"completion_rate"`
	AverageTimeDays int        `json:"average_time_days"`
	TasksCompleted  int        `json:"tasks_completed"`
	TasksInProgress int        `json:"tasks_in_progress"`
	TasksOverdue    int        `json:"tasks_overdue"`
	LastEvaluation  string     `json:"last_evaluation"`
	EvaluationDate  *time.Time `json:"evaluation_date"`
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:                 org.ID,
		Name:               org.Name,
		SubscriptionStatus: org.SubscriptionStatus,
		Plan:               org.Plan,
		TrialEndDate:       org.TrialEndDate,
	}
}

// ToInviteDTO converts an invite
func ToInviteDTO(invite models.Invite) InviteDTO {
	return InviteDTO{
		ID:          invite.ID,
		Email:       invite.Email,
		Role:        invite.Role,
		InvitedByID: invite.InvitedByID,
		Used:        invite.Used,
		ExpiresAt:   invite.ExpiresAt,
		CreatedAt:   invite.CreatedAt,
	}
}

// ToMetricDTOs converts recomputed member metrics
func ToMetricDTOs(metrics []services.MemberMetric) []MetricDTO {
	out := make([]MetricDTO, len(metrics))
	for i, m := range metrics {
		out[i] = MetricDTO{
			User:            ToUserDTO(m.User),
			CompletionRate:  m.Metric.CompletionRate,
			AverageTimeDays: m.Metric.AverageTimeDays,
			TasksCompleted:  m.Metric.TasksCompleted,
			TasksInProgress: m.Metric.TasksInProgress,
			TasksOverdue:    m.Metric.TasksOverdue,
			LastEvaluation:  m.Metric.LastEvaluation,
			EvaluationDate:  m.Metric.EvaluationDate,
		}
	}
	return out
}
