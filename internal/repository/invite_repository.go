package repository

import (
	"context"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
)

// GormInviteRepository is a GORM implementation of InviteRepository
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &GormInviteRepository{db: db}
}

func (r *GormInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *GormInviteRepository) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkUsed consumes the invite; the used = false guard keeps it single-use
// under concurrent acceptance.
func (r *GormInviteRepository) MarkUsed(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Invite{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormInviteRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Invite, error) {
	var invites []models.Invite
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}
