package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateOrganization is returned when creating an organization fails inside the signup transaction.
	ErrCreateOrganization = errors.New("user repository: create organization failed")
	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateWithOrganization creates an organization and its first user atomically.
func (r *GormUserRepository) CreateWithOrganization(ctx context.Context, user *models.User, org *models.Organization) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOrganization, err)
		}

		user.OrganizationID = org.ID

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		return nil
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindInOrganization finds a user by ID within an organization
func (r *GormUserRepository) FindInOrganization(ctx context.Context, organizationID, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds the first user registered with an email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).Order("id").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsInOrganization reports whether email already belongs to a member
func (r *GormUserRepository) ExistsInOrganization(ctx context.Context, organizationID uint64, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("organization_id = ? AND email = ?", organizationID, email).
		Count(&count).Error
	return count > 0, err
}

// ListByOrganization lists members ordered by name
func (r *GormUserRepository) ListByOrganization(ctx context.Context, organizationID uint64, roles ...models.Role) ([]models.User, error) {
	var users []models.User
	query := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	if err := query.Order("name ASC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateTasksCount overwrites the cached active-task counter
func (r *GormUserRepository) UpdateTasksCount(ctx context.Context, userID uint64, count int64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("tasks_count", count).Error
}
