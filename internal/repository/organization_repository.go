package repository

import (
	"context"
	"time"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// ExpireTrial moves an organization from TRIAL to EXPIRED once its trial
// ended before now. Paid or already expired organizations are left alone.
func (r *GormOrganizationRepository) ExpireTrial(ctx context.Context, id uint64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ? AND subscription_status = ? AND trial_end_date < ?", id, models.SubscriptionTrial, now).
		Update("subscription_status", models.SubscriptionExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
