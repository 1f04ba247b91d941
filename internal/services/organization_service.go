package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"gorm.io/gorm"
)

var ErrOrganizationNotFound = errors.New("organization not found")

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo repository.OrganizationRepository
	now     func() time.Time
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo: orgRepo,
		now:     time.Now,
	}
}

// TrialStatus describes where an organization is in its free trial.
type TrialStatus struct {
	IsActive      bool                      `json:"is_active"`
	DaysRemaining int                       `json:"days_remaining"`
	Status        models.SubscriptionStatus `json:"status"`
	TrialEndDate  time.Time                 `json:"trial_end_date"`
}

// GetOrganization returns the actor's organization.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor permissions.Actor) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, actor.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// TrialStatus reports whether the trial is still running and how many
// started days remain. A lapsed trial is persisted as EXPIRED.
func (s *OrganizationService) TrialStatus(ctx context.Context, actor permissions.Actor) (*TrialStatus, error) {
	org, err := s.GetOrganization(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := trialStatusAt(org, now)
	if !status.IsActive && org.SubscriptionStatus == models.SubscriptionTrial {
		expired, err := s.orgRepo.ExpireTrial(ctx, org.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to expire trial: %w", err)
		}
		if expired {
			status.Status = models.SubscriptionExpired
		}
	}
	return status, nil
}

func trialStatusAt(org *models.Organization, now time.Time) *TrialStatus {
	status := &TrialStatus{
		IsActive:     !now.After(org.TrialEndDate),
		Status:       org.SubscriptionStatus,
		TrialEndDate: org.TrialEndDate,
	}
	if status.IsActive {
		status.DaysRemaining = int(math.Ceil(org.TrialEndDate.Sub(now).Hours() / 24))
	}
	return status
}
